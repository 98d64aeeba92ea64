package moltbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	berrors "bintly/internal/errors"
	"bintly/internal/logging"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 * 1024 * 1024
)

// Config configures the Moltbook client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client is the plain (unthrottled) Moltbook API client. Production code
// goes through RateLimitedClient.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logging.Logger
}

// NewClient builds a Moltbook client from the config.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logging.OrNop(cfg.Logger)}
}

// CreatePost publishes a post to the configured submolt.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	var post Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts fetches the newest posts, capped at limit.
func (c *Client) ListPosts(ctx context.Context, limit int) ([]Post, error) {
	query := url.Values{"sort": {"new"}, "limit": {strconv.Itoa(limit)}}
	var resp struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// ListComments fetches all comments on a post.
func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	var resp struct {
		Comments []Comment `json:"comments"`
	}
	path := fmt.Sprintf("/posts/%s/comments", url.PathEscape(postID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// CreateReply answers one comment on a post.
func (c *Client) CreateReply(ctx context.Context, postID, commentID string, req CreateReplyRequest) (*Comment, error) {
	var reply Comment
	path := fmt.Sprintf("/posts/%s/comments/%s/replies", url.PathEscape(postID), url.PathEscape(commentID))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// AgentStatus fetches the account health snapshot.
func (c *Client) AgentStatus(ctx context.Context) (*AgentStatus, error) {
	var status AgentStatus
	if err := c.do(ctx, http.MethodGet, "/agents/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CheckDMs fetches the direct-message counters.
func (c *Client) CheckDMs(ctx context.Context) (*DMStatus, error) {
	var dm DMStatus
	if err := c.do(ctx, http.MethodGet, "/agents/dm/check", nil, nil, &dm); err != nil {
		return nil, err
	}
	return &dm, nil
}

// Feed fetches the personalized feed.
func (c *Client) Feed(ctx context.Context) ([]Post, error) {
	var resp struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/feed", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

// do issues one request. 429 and 5xx responses and transport failures come
// back as transient errors so the caller's retry policy applies; other 4xx
// responses are terminal MoltbookErrors.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("moltbook: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("moltbook: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return berrors.Transient(method+" "+path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return berrors.Transient(method+" "+path, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return berrors.Transient(method+" "+path,
			&MoltbookError{StatusCode: resp.StatusCode, Message: apiMessage(data)})
	}
	if resp.StatusCode >= 400 {
		return &MoltbookError{StatusCode: resp.StatusCode, Message: apiMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("moltbook: decode %s %s: %w", method, path, err)
		}
	}
	c.logger.Debug("moltbook %s %s -> %d", method, path, resp.StatusCode)
	return nil
}

// apiMessage pulls the error text out of an API error body, falling back to
// the raw body.
func apiMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if len(data) > 200 {
		data = data[:200]
	}
	return string(data)
}
