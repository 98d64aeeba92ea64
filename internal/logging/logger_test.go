package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "test", LevelWarn)

	logger.Debug("dropped %d", 1)
	logger.Info("dropped %d", 2)
	logger.Warn("kept %d", 3)
	logger.Error("kept %d", 4)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "kept 3") || !strings.Contains(out, "kept 4") {
		t.Fatalf("expected warn/error lines, got %q", out)
	}
	if !strings.Contains(out, "[test]") {
		t.Fatalf("expected component tag in output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	var fl *FileLogger
	logger := OrNop(fl)
	// Must not panic on a nil pointer wrapped in an interface.
	logger.Info("ignored")

	var buf bytes.Buffer
	real := NewWriterLogger(&buf, "", LevelDebug)
	if OrNop(real) != real {
		t.Fatal("OrNop should return the original non-nil logger")
	}
}
