package runstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"bintly/internal/logging"
)

// Rejection is one line of the runs file (or one Put) that violated the
// schema. Rejections are reported with a reason and skipped; they never
// abort a whole load.
type Rejection struct {
	Line   int    `json:"line,omitempty"`
	TaskID string `json:"task_id,omitempty"`
	Reason string `json:"reason"`
}

// FileStore is an append-only JSONL run record store. Reads happen from the
// in-memory index built at open time; every Put appends one line.
type FileStore struct {
	mu     sync.Mutex
	path   string
	mem    *InMemoryStore
	logger logging.Logger

	rejections []Rejection
}

// OpenFile loads (or creates) a JSONL run record file. Malformed or
// duplicate lines are collected as rejections, not fatal errors.
func OpenFile(path string, logger logging.Logger) (*FileStore, error) {
	logger = logging.OrNop(logger)
	s := &FileStore{path: path, mem: NewInMemoryStore(), logger: logger}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create runs dir: %w", err)
		}
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open runs file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record RunRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			s.reject(Rejection{Line: line, Reason: fmt.Sprintf("malformed record: %v", err)})
			continue
		}
		if err := s.mem.Put(context.Background(), record); err != nil {
			s.reject(Rejection{Line: line, TaskID: record.TaskID, Reason: err.Error()})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan runs file: %w", err)
	}
	return s, nil
}

func (s *FileStore) reject(r Rejection) {
	s.rejections = append(s.rejections, r)
	s.logger.Warn("runs file line %d rejected: %s", r.Line, r.Reason)
}

// Rejections returns lines rejected while loading.
func (s *FileStore) Rejections() []Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Rejection, len(s.rejections))
	copy(out, s.rejections)
	return out
}

// Put validates, indexes, and appends one record. The in-memory index is the
// invariant gate; the file is only written once the record is accepted.
func (s *FileStore) Put(ctx context.Context, record RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.mem.Len()
	if err := s.mem.Put(ctx, record); err != nil {
		return err
	}
	if s.mem.Len() == before {
		// Idempotent external re-ingestion: nothing new to append.
		return nil
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode run record: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open runs file for append: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append run record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync runs file: %w", err)
	}
	return nil
}

// List returns all accepted records in file order.
func (s *FileStore) List(ctx context.Context) ([]RunRecord, error) {
	return s.mem.List(ctx)
}

// Len returns the number of accepted records.
func (s *FileStore) Len() int {
	return s.mem.Len()
}
