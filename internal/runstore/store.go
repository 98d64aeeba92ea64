package runstore

import (
	"context"
	"sync"

	berrors "bintly/internal/errors"
)

// Store is the run record collection the aggregation pipeline reads.
type Store interface {
	// Put adds a record. A duplicate internal record for the same
	// (task_id, arm) is a DataIntegrityError. Re-putting an identical
	// external key is an idempotent no-op: ingesting the same external
	// submission twice yields no duplicate.
	Put(ctx context.Context, record RunRecord) error
	// List returns all records in insertion order.
	List(ctx context.Context) ([]RunRecord, error)
}

// InMemoryStore is the in-process Store used by the aggregation pass and by
// tests. The file store loads into one of these.
type InMemoryStore struct {
	mu      sync.RWMutex
	order   []Key
	records map[Key]RunRecord
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[Key]RunRecord)}
}

func (s *InMemoryStore) Put(_ context.Context, record RunRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	key := record.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[key]; exists {
		if record.Source == SourceInternal {
			return &berrors.DataIntegrityError{
				TaskID: record.TaskID,
				Arm:    string(record.Arm),
				Reason: "duplicate internal run record for the same (task_id, arm)",
			}
		}
		// Same external submission seen again: keep the first, drop this one.
		return nil
	}
	s.records[key] = record
	s.order = append(s.order, key)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.records[key])
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// ByArm filters records for one arm, preserving order.
func ByArm(records []RunRecord, arm Arm) []RunRecord {
	var out []RunRecord
	for _, r := range records {
		if r.Arm == arm {
			out = append(out, r)
		}
	}
	return out
}

// BySource filters records for one source, preserving order.
func BySource(records []RunRecord, source Source) []RunRecord {
	var out []RunRecord
	for _, r := range records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}
