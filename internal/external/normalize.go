// Package external normalizes third-party benchmark replications into run
// records. External data is additive context for future aggregation passes;
// it never corrects the benchmark's own records.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"bintly/internal/benchmark"
	berrors "bintly/internal/errors"
	"bintly/internal/logging"
	"bintly/internal/runstore"
)

// Submission is the accepted subset of an external report. Unknown fields
// are ignored; a missing task_id is a rejection.
type Submission struct {
	TaskID              string   `json:"task_id"`
	Arm                 string   `json:"arm"`
	Succeeded           bool     `json:"succeeded"`
	TokensUsed          int      `json:"tokens_used"`
	WallTimeSeconds     float64  `json:"wall_time_seconds"`
	QualityScore        *float64 `json:"quality_score"`
	ConstraintAdherence *float64 `json:"constraint_adherence"`
	ErrorKind           string   `json:"error_kind"`
	SourceID            string   `json:"source_id"`
}

// Rejection records one submission that did not make it into the store.
type Rejection struct {
	Index  int    `json:"index"`
	TaskID string `json:"task_id,omitempty"`
	Reason string `json:"reason"`
}

// Result is the outcome of one normalization pass.
type Result struct {
	// PassID tags the pass in logs so replayed ingests are traceable.
	PassID    string      `json:"pass_id"`
	Accepted  int         `json:"accepted"`
	Duplicate int         `json:"duplicate"`
	Rejected  []Rejection `json:"rejected,omitempty"`
}

// Normalizer validates external submissions against the frozen benchmark
// and writes the survivors into the run record store.
type Normalizer struct {
	bench  *benchmark.Benchmark
	store  runstore.Store
	logger logging.Logger
}

// NewNormalizer builds a normalizer over the given benchmark and store.
func NewNormalizer(bench *benchmark.Benchmark, store runstore.Store, logger logging.Logger) *Normalizer {
	return &Normalizer{bench: bench, store: store, logger: logging.OrNop(logger)}
}

// Ingest parses a raw external report and normalizes every submission in
// it. The payload may be a single object or an array; close-but-broken JSON
// (truncated braces, single quotes, trailing commas) is repaired before
// parsing. One bad submission never aborts the pass: it becomes a rejection
// and the rest proceed.
func (n *Normalizer) Ingest(ctx context.Context, raw []byte) (Result, error) {
	result := Result{PassID: uuid.NewString()}

	submissions, err := decodeSubmissions(raw)
	if err != nil {
		return result, err
	}

	for i, sub := range submissions {
		record, err := n.normalize(sub)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, TaskID: sub.TaskID, Reason: err.Error()})
			n.logger.Warn("ingest %s: submission %d rejected: %v", result.PassID, i, err)
			continue
		}
		before := storeLen(n.store)
		if err := n.store.Put(ctx, record); err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, TaskID: sub.TaskID, Reason: err.Error()})
			n.logger.Warn("ingest %s: submission %d rejected by store: %v", result.PassID, i, err)
			continue
		}
		if before >= 0 && storeLen(n.store) == before {
			result.Duplicate++
			continue
		}
		result.Accepted++
	}
	n.logger.Info("ingest %s: %d accepted, %d duplicate, %d rejected",
		result.PassID, result.Accepted, result.Duplicate, len(result.Rejected))
	return result, nil
}

// normalize maps one submission to a store-ready external record.
func (n *Normalizer) normalize(sub Submission) (runstore.RunRecord, error) {
	if strings.TrimSpace(sub.TaskID) == "" {
		return runstore.RunRecord{}, &berrors.DataIntegrityError{Reason: "submission has no task_id"}
	}
	if !n.bench.Has(sub.TaskID) {
		return runstore.RunRecord{}, &berrors.DataIntegrityError{
			TaskID: sub.TaskID,
			Reason: "task_id not in benchmark " + n.bench.Version,
		}
	}
	arm := runstore.Arm(strings.ToLower(strings.TrimSpace(sub.Arm)))
	if !arm.Valid() {
		return runstore.RunRecord{}, &berrors.DataIntegrityError{TaskID: sub.TaskID, Reason: "unknown arm " + sub.Arm}
	}
	if strings.TrimSpace(sub.SourceID) == "" {
		return runstore.RunRecord{}, &berrors.DataIntegrityError{TaskID: sub.TaskID, Reason: "submission has no source_id"}
	}

	record := runstore.RunRecord{
		TaskID:              sub.TaskID,
		Arm:                 arm,
		Succeeded:           sub.Succeeded,
		TokensUsed:          sub.TokensUsed,
		WallTimeSeconds:     sub.WallTimeSeconds,
		QualityScore:        sub.QualityScore,
		ConstraintAdherence: sub.ConstraintAdherence,
		ErrorKind:           runstore.ErrorKind(sub.ErrorKind),
		Source:              runstore.SourceExternal,
		SourceID:            strings.TrimSpace(sub.SourceID),
	}
	if err := record.Validate(); err != nil {
		return runstore.RunRecord{}, err
	}
	return record, nil
}

// decodeSubmissions accepts an object or an array, repairing the JSON when
// the strict parse fails.
func decodeSubmissions(raw []byte) ([]Submission, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, &berrors.DataIntegrityError{Reason: "empty external report"}
	}
	if !json.Valid([]byte(text)) {
		repaired, err := jsonrepair.JSONRepair(text)
		if err != nil {
			return nil, &berrors.DataIntegrityError{Reason: fmt.Sprintf("unparseable external report: %v", err)}
		}
		text = repaired
	}

	if strings.HasPrefix(text, "[") {
		var subs []Submission
		if err := json.Unmarshal([]byte(text), &subs); err != nil {
			return nil, &berrors.DataIntegrityError{Reason: fmt.Sprintf("malformed external report: %v", err)}
		}
		return subs, nil
	}
	var sub Submission
	if err := json.Unmarshal([]byte(text), &sub); err != nil {
		return nil, &berrors.DataIntegrityError{Reason: fmt.Sprintf("malformed external report: %v", err)}
	}
	return []Submission{sub}, nil
}

// storeLen reports the store size when the store exposes one, -1 otherwise.
// It backs the duplicate-vs-accepted split in the pass result.
func storeLen(s runstore.Store) int {
	type lener interface{ Len() int }
	if l, ok := s.(lener); ok {
		return l.Len()
	}
	return -1
}
