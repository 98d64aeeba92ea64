// Package moltbook is the HTTP client for the Moltbook social platform. The
// orchestrator drives it; nothing here knows about benchmark semantics.
package moltbook

import (
	"fmt"
	"time"
)

// Post represents a Moltbook post.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Author    string    `json:"author"`
	Submolt   string    `json:"submolt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Upvotes   int       `json:"upvotes"`
	Comments  int       `json:"comments"`
}

// Comment represents a Moltbook comment.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentStatus is the account health snapshot from /agents/status.
type AgentStatus struct {
	Status       string `json:"status"`
	Karma        int    `json:"karma"`
	PendingClaim bool   `json:"pending_claim"`
}

// DMStatus is the direct-message counters from /agents/dm/check.
type DMStatus struct {
	PendingRequests int `json:"pending_requests"`
	UnreadMessages  int `json:"unread_messages"`
}

// CreatePostRequest is the payload for creating a new post.
type CreatePostRequest struct {
	Submolt string `json:"submolt"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateReplyRequest is the payload for replying to a comment.
type CreateReplyRequest struct {
	Content string `json:"content"`
}

// MoltbookError represents an API error from Moltbook.
type MoltbookError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *MoltbookError) Error() string {
	return fmt.Sprintf("moltbook: HTTP %d: %s", e.StatusCode, e.Message)
}
