// Package orchestrator is the publish/poll/reply state machine. It owns the
// one piece of state that survives process restarts and enforces the hard
// limits: at most one post per run, at most three replies per post.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	berrors "bintly/internal/errors"
)

// State is the persisted orchestrator state. It is passed into every
// transition and written back after each state-changing step; the file store
// is the only mutation point.
type State struct {
	PostsPublished    int       `json:"posts_published_this_run"`
	RepliesSent       int       `json:"replies_sent_this_post"`
	LastPostID        string    `json:"last_post_id,omitempty"`
	RepliedCommentIDs []string  `json:"replied_comment_ids,omitempty"`
	RecentErrors      []string  `json:"recent_errors,omitempty"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// HasReplied reports whether the comment was already answered.
func (s *State) HasReplied(commentID string) bool {
	for _, id := range s.RepliedCommentIDs {
		if id == commentID {
			return true
		}
	}
	return false
}

// MarkReplied records a confirmed reply.
func (s *State) MarkReplied(commentID string) {
	if !s.HasReplied(commentID) {
		s.RepliedCommentIDs = append(s.RepliedCommentIDs, commentID)
	}
}

// RecordError appends to the bounded error ring, dropping the oldest entry
// once the limit is hit.
func (s *State) RecordError(msg string, limit int) {
	s.RecentErrors = append(s.RecentErrors, msg)
	if limit > 0 && len(s.RecentErrors) > limit {
		s.RecentErrors = s.RecentErrors[len(s.RecentErrors)-limit:]
	}
}

// StateStore persists orchestrator state across invocations.
type StateStore interface {
	Load() (State, error)
	Save(State) error
}

// FileStateStore keeps the state in one JSON file, written atomically so a
// concurrent reader never sees a partial document.
type FileStateStore struct {
	path string
}

// NewFileStateStore builds a store over the given path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

// Load reads the state, returning the zero state when no file exists yet.
func (f *FileStateStore) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read orchestrator state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode orchestrator state: %w", err)
	}
	return state, nil
}

// Save writes the state through a temp file and rename.
func (f *FileStateStore) Save(state State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode orchestrator state: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// Lock is the single-writer marker for the orchestrator. A second process
// trying to acquire it gets a StateConflictError instead of interleaving.
type Lock struct {
	path string
}

// NewLock builds a lock next to the state file.
func NewLock(statePath string) *Lock {
	return &Lock{path: statePath + ".lock"}
}

// Acquire creates the lock file exclusively.
func (l *Lock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		return &berrors.StateConflictError{
			Op:     "acquire lock",
			Reason: "another orchestrator invocation holds " + l.path,
		}
	}
	if err != nil {
		return fmt.Errorf("create lock file: %w", err)
	}
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	return f.Close()
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
