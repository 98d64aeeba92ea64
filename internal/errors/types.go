// Package errors defines the error taxonomy for the benchmark evaluation
// pipeline and the Bintly orchestrator, plus classification helpers used to
// decide whether an operation may be retried.
package errors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ConfigurationError reports an invalid configuration value, such as ASR
// weights that do not sum to one or a malformed task list. It is fatal and
// must halt the operation before any output is produced.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for a named field.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataIntegrityError reports a record that violates a store invariant, such
// as a duplicate internal run record or an external submission naming an
// unknown task. It is surfaced as a per-record rejection and does not halt
// an aggregation pass.
type DataIntegrityError struct {
	TaskID string
	Arm    string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("data integrity error: %s", e.Reason)
	}
	if e.Arm == "" {
		return fmt.Sprintf("data integrity error: task %s: %s", e.TaskID, e.Reason)
	}
	return fmt.Sprintf("data integrity error: task %s arm %s: %s", e.TaskID, e.Arm, e.Reason)
}

// StateConflictError reports an orchestrator invariant violation: a second
// publish attempt, or a concurrent invocation holding the state lock. Fatal
// for the invocation; the persisted state remains valid and unchanged.
type StateConflictError struct {
	Op     string
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %s: %s", e.Op, e.Reason)
}

// TransientError wraps a network or timeout failure that the operator may
// retry on the next invocation.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError for the named operation.
func Transient(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsDataIntegrity reports whether err is a DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}

// IsStateConflict reports whether err is a StateConflictError.
func IsStateConflict(err error) bool {
	var se *StateConflictError
	return errors.As(err, &se)
}

// IsFatal reports whether err must halt the invocation rather than be
// retried: configuration errors and state conflicts.
func IsFatal(err error) bool {
	return IsConfiguration(err) || IsStateConflict(err)
}

// IsTransient reports whether err is retry-able. Explicit taxonomy markers
// win; otherwise network-level failures are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if IsFatal(err) || IsDataIntegrity(err) {
		return false
	}

	return isNetworkError(err)
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT, syscall.EPIPE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "temporarily unavailable", "connection refused", "connection reset"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
