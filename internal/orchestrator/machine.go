package orchestrator

import (
	"context"
	"fmt"

	"bintly/internal/config"
	berrors "bintly/internal/errors"
	"bintly/internal/logging"
	"bintly/internal/moltbook"
)

// Client is the slice of the Moltbook API the orchestrator drives. The
// rate-limited client satisfies it; tests inject fakes.
type Client interface {
	CreatePost(ctx context.Context, req moltbook.CreatePostRequest) (*moltbook.Post, error)
	ListPosts(ctx context.Context, limit int) ([]moltbook.Post, error)
	ListComments(ctx context.Context, postID string) ([]moltbook.Comment, error)
	CreateReply(ctx context.Context, postID, commentID string, req moltbook.CreateReplyRequest) (*moltbook.Comment, error)
}

// Limits are the orchestrator's hard limits and posting target.
type Limits struct {
	Submolt           string
	MaxPostsPerRun    int
	MaxRepliesPerPost int
	MaxReplyTokens    int
	RecentErrorLimit  int
}

// LimitsFromConfig lifts the orchestrator limits out of the runtime config.
func LimitsFromConfig(cfg config.RuntimeConfig) Limits {
	return Limits{
		Submolt:           cfg.Submolt,
		MaxPostsPerRun:    cfg.MaxPostsPerRun,
		MaxRepliesPerPost: cfg.MaxRepliesPerPost,
		MaxReplyTokens:    cfg.MaxReplyTokens,
		RecentErrorLimit:  cfg.RecentErrorLimit,
	}
}

// Orchestrator runs the publish/poll/reply machine over a persisted state.
// Every transition loads the state, applies one change, and saves before
// the next externally visible action.
type Orchestrator struct {
	limits     Limits
	states     StateStore
	client     Client
	classifier *CommentClassifier
	logger     logging.Logger
	metrics    *Metrics
	retry      berrors.RetryConfig
}

// New builds an orchestrator. A nil logger is replaced with a no-op one.
func New(limits Limits, states StateStore, client Client, logger logging.Logger) (*Orchestrator, error) {
	if states == nil {
		return nil, fmt.Errorf("orchestrator: nil state store")
	}
	if client == nil {
		return nil, fmt.Errorf("orchestrator: nil client")
	}
	classifier, err := NewCommentClassifier(256)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		limits:     limits,
		states:     states,
		client:     client,
		classifier: classifier,
		logger:     logging.OrNop(logger),
		metrics:    defaultMetrics(),
		retry:      berrors.DefaultRetryConfig(),
	}, nil
}

// PublishOnce publishes the canonical post if and only if no post exists in
// persisted state for this run. A second attempt is a StateConflictError
// and leaves the state on disk untouched.
func (o *Orchestrator) PublishOnce(ctx context.Context, title, content string) (*moltbook.Post, error) {
	state, err := o.states.Load()
	if err != nil {
		return nil, err
	}
	if state.LastPostID != "" || state.PostsPublished >= o.limits.MaxPostsPerRun {
		return nil, &berrors.StateConflictError{
			Op:     "publish",
			Reason: fmt.Sprintf("a post was already published this run (post %s)", state.LastPostID),
		}
	}

	post, err := o.client.CreatePost(ctx, moltbook.CreatePostRequest{
		Submolt: o.limits.Submolt,
		Title:   title,
		Content: content,
	})
	if err != nil {
		state.RecordError("publish: "+err.Error(), o.limits.RecentErrorLimit)
		if saveErr := o.states.Save(state); saveErr != nil {
			o.logger.Error("save state after publish failure: %v", saveErr)
		}
		o.metrics.IncPublishFailure()
		return nil, err
	}

	state.PostsPublished++
	state.LastPostID = post.ID
	if err := o.states.Save(state); err != nil {
		return nil, fmt.Errorf("post %s published but state save failed: %w", post.ID, err)
	}
	o.metrics.IncPostPublished()
	o.logger.Info("published post %s to m/%s", post.ID, o.limits.Submolt)
	return post, nil
}

// recoveryScanLimit is how many recent posts a recovery scan fetches.
const recoveryScanLimit = 25

// RecoverPost restores a lost post id by scanning recent posts for the
// given title. When the state already records a post this is a no-op. The
// recovered post counts against the publish limit: the post exists, so a
// later PublishOnce must conflict.
func (o *Orchestrator) RecoverPost(ctx context.Context, title string) (*moltbook.Post, error) {
	state, err := o.states.Load()
	if err != nil {
		return nil, err
	}
	if state.LastPostID != "" {
		return &moltbook.Post{ID: state.LastPostID}, nil
	}

	posts, err := berrors.RetryWithResult(ctx, o.retry, o.logger, func(ctx context.Context) ([]moltbook.Post, error) {
		return o.client.ListPosts(ctx, recoveryScanLimit)
	})
	if err != nil {
		return nil, err
	}
	for _, post := range posts {
		if post.Title != title {
			continue
		}
		state.LastPostID = post.ID
		if state.PostsPublished < 1 {
			state.PostsPublished = 1
		}
		if err := o.states.Save(state); err != nil {
			return nil, fmt.Errorf("post %s recovered but state save failed: %w", post.ID, err)
		}
		o.logger.Info("recovered post %s from the recent-post scan", post.ID)
		return &post, nil
	}
	return nil, &berrors.StateConflictError{
		Op:     "recover",
		Reason: fmt.Sprintf("no post titled %q among the %d most recent posts", title, recoveryScanLimit),
	}
}

// AnsweredComment is one comment the poll cycle replied to.
type AnsweredComment struct {
	Comment moltbook.Comment
	Kind    CommentKind
	Reply   string
}

// PollReport summarizes one poll cycle. ResultReports carries every
// result-report comment body seen, answered or not, so the ingestion step
// can normalize them independently of the reply bound.
type PollReport struct {
	Answered      []AnsweredComment
	Unanswered    []moltbook.Comment
	Ignored       int
	ResultReports []moltbook.Comment
	RepliesSent   int
}

// PollAndReply runs one poll cycle: fetch the comments on the published
// post, classify each, and reply to qualifying ones while the reply bound
// holds. Qualifying comments past the bound are recorded, never answered.
// Each confirmed reply is persisted before the next comment is considered,
// so a crash mid-cycle cannot overrun the bound on restart.
func (o *Orchestrator) PollAndReply(ctx context.Context) (*PollReport, error) {
	state, err := o.states.Load()
	if err != nil {
		return nil, err
	}
	if state.LastPostID == "" {
		return nil, &berrors.StateConflictError{Op: "poll", Reason: "no published post on record"}
	}

	// Listing is a read, so transient failures retry here. Replies never
	// do; an unknown reply outcome must not be repeated blindly.
	comments, err := berrors.RetryWithResult(ctx, o.retry, o.logger, func(ctx context.Context) ([]moltbook.Comment, error) {
		return o.client.ListComments(ctx, state.LastPostID)
	})
	if err != nil {
		state.RecordError("poll: "+err.Error(), o.limits.RecentErrorLimit)
		if saveErr := o.states.Save(state); saveErr != nil {
			o.logger.Error("save state after poll failure: %v", saveErr)
		}
		return nil, err
	}

	report := &PollReport{}
	for _, comment := range comments {
		if state.HasReplied(comment.ID) {
			continue
		}
		kind := o.classifier.Classify(comment.ID, comment.Content)
		if kind == KindIgnore {
			report.Ignored++
			o.metrics.IncCommentIgnored()
			continue
		}
		if kind == KindResultReport {
			report.ResultReports = append(report.ResultReports, comment)
		}
		if state.RepliesSent >= o.limits.MaxRepliesPerPost {
			report.Unanswered = append(report.Unanswered, comment)
			continue
		}

		reply := replyFor(kind, o.limits.MaxReplyTokens)
		if _, err := o.client.CreateReply(ctx, state.LastPostID, comment.ID, moltbook.CreateReplyRequest{Content: reply}); err != nil {
			// Outcome unknown or failed: log it, never count it.
			state.RecordError(fmt.Sprintf("reply to %s: %v", comment.ID, err), o.limits.RecentErrorLimit)
			if saveErr := o.states.Save(state); saveErr != nil {
				o.logger.Error("save state after reply failure: %v", saveErr)
			}
			o.metrics.IncReplyFailure()
			o.logger.Warn("reply to comment %s failed: %v", comment.ID, err)
			continue
		}

		state.RepliesSent++
		state.MarkReplied(comment.ID)
		if err := o.states.Save(state); err != nil {
			return report, fmt.Errorf("reply sent but state save failed: %w", err)
		}
		o.metrics.IncReplySent(string(kind))
		report.Answered = append(report.Answered, AnsweredComment{Comment: comment, Kind: kind, Reply: reply})
		o.logger.Info("replied to comment %s (%s), %d/%d replies used",
			comment.ID, kind, state.RepliesSent, o.limits.MaxRepliesPerPost)
	}
	report.RepliesSent = state.RepliesSent
	return report, nil
}

// State returns the current persisted state.
func (o *Orchestrator) State() (State, error) {
	return o.states.Load()
}
