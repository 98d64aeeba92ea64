package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "bintly/internal/errors"
	"bintly/internal/moltbook"
)

type fakeClient struct {
	posts        []moltbook.CreatePostRequest
	published    []moltbook.Post
	comments     []moltbook.Comment
	replies      []string
	postErr      error
	replyErr     error
	commentsErr  error
	listFailures int // transient ListComments failures before recovery
	listCalls    int
}

func (f *fakeClient) CreatePost(_ context.Context, req moltbook.CreatePostRequest) (*moltbook.Post, error) {
	if f.postErr != nil {
		return nil, f.postErr
	}
	f.posts = append(f.posts, req)
	p := moltbook.Post{ID: fmt.Sprintf("p-%d", len(f.posts)), Title: req.Title}
	f.published = append(f.published, p)
	return &p, nil
}

func (f *fakeClient) ListPosts(_ context.Context, limit int) ([]moltbook.Post, error) {
	if limit < len(f.published) {
		return f.published[:limit], nil
	}
	return f.published, nil
}

func (f *fakeClient) ListComments(_ context.Context, _ string) ([]moltbook.Comment, error) {
	f.listCalls++
	if f.listFailures > 0 {
		f.listFailures--
		return nil, berrors.Transient("GET /posts/p-1/comments", errors.New("bad gateway"))
	}
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	return f.comments, nil
}

func (f *fakeClient) CreateReply(_ context.Context, _, commentID string, _ moltbook.CreateReplyRequest) (*moltbook.Comment, error) {
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	f.replies = append(f.replies, commentID)
	return &moltbook.Comment{ID: "r-" + commentID}, nil
}

func testLimits() Limits {
	return Limits{
		Submolt:           "general",
		MaxPostsPerRun:    1,
		MaxRepliesPerPost: 3,
		MaxReplyTokens:    150,
		RecentErrorLimit:  20,
	}
}

func newTestOrchestrator(t *testing.T, client Client) (*Orchestrator, string) {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "state.json")
	o, err := New(testLimits(), NewFileStateStore(statePath), client, nil)
	require.NoError(t, err)
	return o, statePath
}

func methodologyComment(id string) moltbook.Comment {
	return moltbook.Comment{ID: id, Content: "What was the methodology for the benchmark?"}
}

func TestPublishOnceThenConflict(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, statePath := newTestOrchestrator(t, client)

	post, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)
	assert.Equal(t, "p-1", post.ID)
	require.Len(t, client.posts, 1)
	assert.Equal(t, "general", client.posts[0].Submolt)

	afterFirst, err := os.ReadFile(statePath)
	require.NoError(t, err)

	// Second attempt: exactly one published transition, loud conflict, and
	// the state on disk is byte-identical to the state after the first.
	_, err = o.PublishOnce(ctx, "launch", "body")
	require.Error(t, err)
	assert.True(t, berrors.IsStateConflict(err))
	assert.True(t, berrors.IsFatal(err))
	assert.Len(t, client.posts, 1)

	afterSecond, err := os.ReadFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)
}

func TestPublishConflictSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	statePath := filepath.Join(t.TempDir(), "state.json")

	first, err := New(testLimits(), NewFileStateStore(statePath), client, nil)
	require.NoError(t, err)
	_, err = first.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	// A fresh process reading the same state must not double-publish.
	second, err := New(testLimits(), NewFileStateStore(statePath), client, nil)
	require.NoError(t, err)
	_, err = second.PublishOnce(ctx, "launch", "body")
	require.Error(t, err)
	assert.True(t, berrors.IsStateConflict(err))
	assert.Len(t, client.posts, 1)
}

func TestPublishTransportFailureIsNotConflict(t *testing.T) {
	client := &fakeClient{postErr: berrors.Transient("POST /posts", fmt.Errorf("connection refused"))}
	o, _ := newTestOrchestrator(t, client)

	_, err := o.PublishOnce(context.Background(), "launch", "body")
	require.Error(t, err)
	assert.True(t, berrors.IsTransient(err))

	state, err := o.State()
	require.NoError(t, err)
	assert.Equal(t, 0, state.PostsPublished)
	assert.NotEmpty(t, state.RecentErrors)
}

func TestPollRequiresPublishedPost(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeClient{})
	_, err := o.PollAndReply(context.Background())
	require.Error(t, err)
	assert.True(t, berrors.IsStateConflict(err))
}

func TestReplyBoundHoldsAcrossPollCycles(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	client.comments = []moltbook.Comment{
		methodologyComment("c-1"),
		methodologyComment("c-2"),
		{ID: "c-3", Content: "our results attached, we ran it twice"},
		methodologyComment("c-4"),
	}

	report, err := o.PollAndReply(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Answered, 3)
	require.Len(t, report.Unanswered, 1)
	assert.Equal(t, "c-4", report.Unanswered[0].ID)
	assert.Equal(t, 3, report.RepliesSent)

	// More cycles, more qualifying comments: recorded, never replied.
	client.comments = append(client.comments, methodologyComment("c-5"))
	for i := 0; i < 3; i++ {
		report, err = o.PollAndReply(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Answered)
	}
	assert.Len(t, client.replies, 3)
}

func TestResultReportsCollectedPastBound(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	client.comments = []moltbook.Comment{
		methodologyComment("c-1"),
		methodologyComment("c-2"),
		methodologyComment("c-3"),
		{ID: "c-4", Content: `our results: {"task_id":"t01","arm":"swarm","succeeded":true}`},
	}
	report, err := o.PollAndReply(ctx)
	require.NoError(t, err)

	// The result report is past the reply bound but still surfaces for
	// ingestion.
	require.Len(t, report.ResultReports, 1)
	assert.Equal(t, "c-4", report.ResultReports[0].ID)
	assert.Len(t, report.Unanswered, 1)
}

func TestUnknownReplyOutcomeNeverIncrements(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	client.comments = []moltbook.Comment{methodologyComment("c-1")}
	client.replyErr = berrors.Transient("POST reply", fmt.Errorf("timeout"))

	report, err := o.PollAndReply(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Answered)

	state, err := o.State()
	require.NoError(t, err)
	assert.Equal(t, 0, state.RepliesSent)
	assert.False(t, state.HasReplied("c-1"))
	require.NotEmpty(t, state.RecentErrors)
	assert.Contains(t, state.RecentErrors[0], "c-1")

	// Once the transport recovers, the same comment is answered.
	client.replyErr = nil
	report, err = o.PollAndReply(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Answered, 1)
	state, _ = o.State()
	assert.Equal(t, 1, state.RepliesSent)
}

func TestHostileCommentsIgnored(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	client.comments = []moltbook.Comment{
		{ID: "c-1", Content: "this is a scam, prove it"},
		{ID: "c-2", Content: "total garbage"},
		{ID: "c-3", Content: "nice weather today"},
	}
	report, err := o.PollAndReply(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Answered)
	assert.Equal(t, 3, report.Ignored)
	assert.Empty(t, client.replies)
}

func TestRecentErrorsRingIsBounded(t *testing.T) {
	var s State
	for i := 0; i < 30; i++ {
		s.RecordError(fmt.Sprintf("err-%d", i), 20)
	}
	require.Len(t, s.RecentErrors, 20)
	assert.Equal(t, "err-10", s.RecentErrors[0])
	assert.Equal(t, "err-29", s.RecentErrors[19])
}

func fastRetry() berrors.RetryConfig {
	return berrors.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestPollRetriesTransientListFailures(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	o.retry = fastRetry()
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	client.comments = []moltbook.Comment{methodologyComment("c-1")}
	client.listFailures = 1
	report, err := o.PollAndReply(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Answered, 1)
	assert.Equal(t, 2, client.listCalls)
}

func TestPollDoesNotRetryTerminalListFailures(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	o.retry = fastRetry()
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	client.commentsErr = errors.New("post deleted")
	_, err = o.PollAndReply(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, client.listCalls)
}

func TestRecoverPostFromScan(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{published: []moltbook.Post{
		{ID: "p-9", Title: "unrelated"},
		{ID: "p-7", Title: "launch"},
	}}
	o, _ := newTestOrchestrator(t, client)

	recovered, err := o.RecoverPost(ctx, "launch")
	require.NoError(t, err)
	assert.Equal(t, "p-7", recovered.ID)

	state, err := o.State()
	require.NoError(t, err)
	assert.Equal(t, "p-7", state.LastPostID)
	assert.Equal(t, 1, state.PostsPublished)

	// The recovered post counts against the publish limit.
	_, err = o.PublishOnce(ctx, "launch", "body")
	require.Error(t, err)
	assert.True(t, berrors.IsStateConflict(err))

	// Polling works against the recovered post.
	client.comments = []moltbook.Comment{methodologyComment("c-1")}
	report, err := o.PollAndReply(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Answered, 1)
}

func TestRecoverPostIsIdempotent(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	o, _ := newTestOrchestrator(t, client)
	_, err := o.PublishOnce(ctx, "launch", "body")
	require.NoError(t, err)

	recovered, err := o.RecoverPost(ctx, "launch")
	require.NoError(t, err)
	assert.Equal(t, "p-1", recovered.ID)

	state, err := o.State()
	require.NoError(t, err)
	assert.Equal(t, 1, state.PostsPublished)
}

func TestRecoverPostWithoutMatchIsConflict(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{published: []moltbook.Post{{ID: "p-9", Title: "unrelated"}}}
	o, _ := newTestOrchestrator(t, client)

	_, err := o.RecoverPost(ctx, "launch")
	require.Error(t, err)
	assert.True(t, berrors.IsStateConflict(err))

	state, err := o.State()
	require.NoError(t, err)
	assert.Empty(t, state.LastPostID)
}
