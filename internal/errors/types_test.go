package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func TestTaxonomyClassification(t *testing.T) {
	cfg := NewConfigurationError("asr_weights", "weights sum to %.2f, want 1", 1.2)
	if !IsConfiguration(cfg) || !IsFatal(cfg) || IsTransient(cfg) {
		t.Fatalf("configuration error misclassified: %v", cfg)
	}

	state := &StateConflictError{Op: "publish", Reason: "post already published this run"}
	if !IsStateConflict(state) || !IsFatal(state) || IsTransient(state) {
		t.Fatalf("state conflict misclassified: %v", state)
	}

	integrity := &DataIntegrityError{TaskID: "t01", Arm: "swarm", Reason: "duplicate internal record"}
	if !IsDataIntegrity(integrity) || IsFatal(integrity) || IsTransient(integrity) {
		t.Fatalf("data integrity misclassified: %v", integrity)
	}

	transient := Transient("poll", errors.New("connection refused"))
	if !IsTransient(transient) || IsFatal(transient) {
		t.Fatalf("transient error misclassified: %v", transient)
	}
}

func TestWrappedErrorsKeepClassification(t *testing.T) {
	inner := &StateConflictError{Op: "publish", Reason: "second publish attempt"}
	wrapped := fmt.Errorf("orchestrator: %w", inner)
	if !IsStateConflict(wrapped) || !IsFatal(wrapped) {
		t.Fatalf("wrapping lost classification: %v", wrapped)
	}
}

func TestErrorMessagesNameInvariant(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{NewConfigurationError("asr_weights", "sum 1.20 exceeds tolerance"), "asr_weights"},
		{&DataIntegrityError{TaskID: "t07", Reason: "unknown task_id"}, "t07"},
		{&StateConflictError{Op: "publish", Reason: "post already published"}, "publish"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); !strings.Contains(got, tc.want) {
			t.Errorf("message %q does not name %q", got, tc.want)
		}
	}
}

func TestNetworkErrorsAreTransient(t *testing.T) {
	timeout := &net.DNSError{Err: "lookup timeout", IsTimeout: true}
	if !IsTransient(timeout) {
		t.Fatal("timeout should be transient")
	}
	if IsTransient(errors.New("invalid payload")) {
		t.Fatal("generic error should not be transient")
	}
}

func TestRetryStopsOnFatal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil, func(context.Context) error {
		calls++
		return NewConfigurationError("weights", "negative weight")
	})
	if calls != 1 {
		t.Fatalf("fatal error retried %d times", calls)
	}
	if !IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return Transient("poll", errors.New("connection reset"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsTransient(t *testing.T) {
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, nil, func(context.Context) error {
		return Transient("poll", errors.New("timeout"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !IsTransient(err) {
		t.Fatalf("exhausted retry should unwrap to transient, got %v", err)
	}
}
