// Package runstore holds the normalized per-task, per-arm run records that
// the evaluation pipeline aggregates. Records are produced by the execution
// layer (internal) or by third-party replications (external); this package
// only stores and validates them.
package runstore

import (
	"time"

	berrors "bintly/internal/errors"
)

// Arm identifies which execution strategy produced a record.
type Arm string

const (
	ArmMonolith Arm = "monolith"
	ArmSwarm    Arm = "swarm"
)

// Valid reports whether the arm is one of the two known strategies.
func (a Arm) Valid() bool {
	return a == ArmMonolith || a == ArmSwarm
}

// Source distinguishes the benchmark's own records from third-party reports.
type Source string

const (
	SourceInternal Source = "internal"
	SourceExternal Source = "external"
)

// ErrorKind is the failure reason taxonomy. Exactly one kind per failed run;
// failed runs with no kind are grouped under ErrorKindUnclassified when the
// taxonomy is built.
type ErrorKind string

const (
	ErrorKindPlanning        ErrorKind = "planning_error"
	ErrorKindToolMisuse      ErrorKind = "tool_misuse"
	ErrorKindHallucination   ErrorKind = "hallucination"
	ErrorKindTimeout         ErrorKind = "timeout"
	ErrorKindConstraintBreak ErrorKind = "constraint_break"
	ErrorKindBudgetExceeded  ErrorKind = "budget_exceeded"
	ErrorKindUnclassified    ErrorKind = "unclassified"
)

// RunRecord is one execution of one task under one arm.
type RunRecord struct {
	TaskID                string    `json:"task_id"`
	TaskBucket            string    `json:"task_bucket,omitempty"`
	Arm                   Arm       `json:"arm"`
	Succeeded             bool      `json:"succeeded"`
	TokensUsed            int       `json:"tokens_used"`
	WallTimeSeconds       float64   `json:"wall_time_seconds"`
	QualityScore          *float64  `json:"quality_score,omitempty"`        // 0–5
	ConstraintAdherence   *float64  `json:"constraint_adherence,omitempty"` // 0–1
	ToolCorrectness       *float64  `json:"tool_correctness,omitempty"`     // 0–1, set only when the task used tools
	PolicyViolation       bool      `json:"policy_violation,omitempty"`
	CriticalHallucination bool      `json:"critical_hallucination,omitempty"`
	ErrorKind             ErrorKind `json:"error_kind,omitempty"`
	Source                Source    `json:"source"`
	SourceID              string    `json:"source_id,omitempty"` // external submitter identifier
	RecordedAt            time.Time `json:"recorded_at,omitempty"`
}

// Key identifies a record for uniqueness checks. Internal records carry an
// empty SourceID, so an internal and an external record for the same
// task/arm never collide: external data is additive, never a correction.
type Key struct {
	TaskID   string
	Arm      Arm
	Source   Source
	SourceID string
}

// Key returns the uniqueness key of the record.
func (r RunRecord) Key() Key {
	sourceID := r.SourceID
	if r.Source == SourceInternal {
		sourceID = ""
	}
	return Key{TaskID: r.TaskID, Arm: r.Arm, Source: r.Source, SourceID: sourceID}
}

// Validate rejects records that do not conform to the closed schema.
func (r RunRecord) Validate() error {
	if r.TaskID == "" {
		return &berrors.DataIntegrityError{Reason: "run record has no task_id"}
	}
	if !r.Arm.Valid() {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Reason: "unknown arm " + string(r.Arm)}
	}
	if r.Source != SourceInternal && r.Source != SourceExternal {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "unknown source " + string(r.Source)}
	}
	if r.Source == SourceExternal && r.SourceID == "" {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "external record has no source identifier"}
	}
	if r.TokensUsed < 0 {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "tokens_used is negative"}
	}
	if r.WallTimeSeconds < 0 {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "wall_time_seconds is negative"}
	}
	if r.QualityScore != nil && (*r.QualityScore < 0 || *r.QualityScore > 5) {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "quality_score outside 0–5"}
	}
	if r.ConstraintAdherence != nil && (*r.ConstraintAdherence < 0 || *r.ConstraintAdherence > 1) {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "constraint_adherence outside 0–1"}
	}
	if r.ToolCorrectness != nil && (*r.ToolCorrectness < 0 || *r.ToolCorrectness > 1) {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "tool_correctness outside 0–1"}
	}
	if r.Succeeded && r.ErrorKind != "" {
		return &berrors.DataIntegrityError{TaskID: r.TaskID, Arm: string(r.Arm), Reason: "error_kind set on a successful run"}
	}
	return nil
}
