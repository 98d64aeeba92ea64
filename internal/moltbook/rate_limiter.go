package moltbook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Rate limit defaults for the Moltbook API.
const (
	postCooldown  = 30 * time.Minute
	replyCooldown = 20 * time.Second
)

// RateLimitedClient wraps a Client with the platform's posting cooldowns.
type RateLimitedClient struct {
	*Client

	mu        sync.Mutex
	lastPost  time.Time
	lastReply time.Time
}

// NewRateLimitedClient creates a rate-limited Moltbook client.
func NewRateLimitedClient(cfg Config) *RateLimitedClient {
	return newRateLimitedClient(cfg, nil)
}

func newRateLimitedClient(cfg Config, httpClient *Client) *RateLimitedClient {
	if httpClient == nil {
		httpClient = NewClient(cfg)
	}
	return &RateLimitedClient{Client: httpClient}
}

// CreatePost publishes a post, enforcing the post cooldown.
func (r *RateLimitedClient) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	r.mu.Lock()
	since := time.Since(r.lastPost)
	if !r.lastPost.IsZero() && since < postCooldown {
		remaining := postCooldown - since
		r.mu.Unlock()
		return nil, fmt.Errorf("moltbook: rate limited, next post allowed in %s", remaining.Truncate(time.Second))
	}
	r.mu.Unlock()

	post, err := r.Client.CreatePost(ctx, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.lastPost = time.Now()
	r.mu.Unlock()
	return post, nil
}

// CreateReply answers a comment, enforcing the reply cooldown.
func (r *RateLimitedClient) CreateReply(ctx context.Context, postID, commentID string, req CreateReplyRequest) (*Comment, error) {
	r.mu.Lock()
	since := time.Since(r.lastReply)
	if !r.lastReply.IsZero() && since < replyCooldown {
		remaining := replyCooldown - since
		r.mu.Unlock()
		return nil, fmt.Errorf("moltbook: rate limited, next reply allowed in %s", remaining.Truncate(time.Second))
	}
	r.mu.Unlock()

	reply, err := r.Client.CreateReply(ctx, postID, commentID, req)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.lastReply = time.Now()
	r.mu.Unlock()
	return reply, nil
}
