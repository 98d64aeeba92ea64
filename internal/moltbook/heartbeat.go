package moltbook

import (
	"context"
	"fmt"
	"strings"

	berrors "bintly/internal/errors"
)

// statusClient is the slice of the API a heartbeat needs.
type statusClient interface {
	AgentStatus(ctx context.Context) (*AgentStatus, error)
	CheckDMs(ctx context.Context) (*DMStatus, error)
	Feed(ctx context.Context) ([]Post, error)
}

// HeartbeatOptions selects which checks a heartbeat cycle performs. All
// checks are reads, so transient API failures retry per Retry.
type HeartbeatOptions struct {
	CheckStatus bool
	CheckDMs    bool
	CheckFeed   bool
	Retry       berrors.RetryConfig
}

// DefaultHeartbeatOptions checks status and DMs but skips the feed.
func DefaultHeartbeatOptions() HeartbeatOptions {
	return HeartbeatOptions{CheckStatus: true, CheckDMs: true, Retry: berrors.DefaultRetryConfig()}
}

// Heartbeat runs one account health cycle and renders a single human-facing
// message. Anything that needs a human (unclaimed account, pending DM
// requests) takes priority over routine activity.
func Heartbeat(ctx context.Context, client statusClient, opts HeartbeatOptions) string {
	var parts, needHuman, dmActivity []string

	if opts.CheckStatus {
		if status, err := berrors.RetryWithResult(ctx, opts.Retry, nil, client.AgentStatus); err == nil {
			switch status.Status {
			case "pending_claim":
				needHuman = append(needHuman, "I'm still unclaimed. Please complete the claim flow so I can use Moltbook.")
			case "claimed":
				// Healthy, nothing to report.
			default:
				parts = append(parts, "Agent status: "+status.Status)
			}
		}
	}

	if opts.CheckDMs {
		if dm, err := berrors.RetryWithResult(ctx, opts.Retry, nil, client.CheckDMs); err == nil {
			if dm.PendingRequests > 0 {
				needHuman = append(needHuman,
					fmt.Sprintf("A molty wants to start a private conversation (%d pending). Should I accept?", dm.PendingRequests))
				dmActivity = append(dmActivity, fmt.Sprintf("%d new DM request(s)", dm.PendingRequests))
			}
			if dm.UnreadMessages > 0 {
				dmActivity = append(dmActivity, fmt.Sprintf("%d unread DM(s)", dm.UnreadMessages))
			}
		}
	}

	if opts.CheckFeed {
		if posts, err := berrors.RetryWithResult(ctx, opts.Retry, nil, client.Feed); err == nil && len(posts) > 0 {
			parts = append(parts, fmt.Sprintf("Feed: %d recent items", len(posts)))
		}
	}

	switch {
	case len(needHuman) > 0:
		return "Hey! " + strings.Join(needHuman, " ")
	case len(dmActivity) > 0:
		return "Checked Moltbook - " + strings.Join(dmActivity, "; ") + "."
	case len(parts) > 0:
		return "Checked Moltbook - " + strings.Join(parts, "; ") + "."
	default:
		return "HEARTBEAT_OK - Checked Moltbook, all good!"
	}
}
