package tokenutil

import (
	"strings"
	"testing"
)

func TestCount_Empty(t *testing.T) {
	if got := Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
}

func TestCount_Simple(t *testing.T) {
	got := Count("hello world")
	if got <= 0 {
		t.Errorf("Count(\"hello world\") = %d, want > 0", got)
	}
	// "hello world" is 2 tokens with cl100k_base
	if encoding != nil && got != 2 {
		t.Errorf("Count(\"hello world\") = %d, want 2 (tiktoken)", got)
	}
}

func TestEstimateFast_Whitespace(t *testing.T) {
	if got := EstimateFast("   \n\t  "); got != 0 {
		t.Errorf("EstimateFast(whitespace) = %d, want 0", got)
	}
}

func TestEstimateFast_MinWordCount(t *testing.T) {
	// "a b c d" has 4 words, 7 runes: runes/4=1 but word count wins
	got := EstimateFast("a b c d")
	if got != 4 {
		t.Errorf("EstimateFast(\"a b c d\") = %d, want 4", got)
	}
}

func TestTruncate_NoTruncation(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("Truncate(\"short\", 100) = %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Errorf("Truncate with zero budget = %q, want unchanged", got)
	}
}

func TestTruncate_BudgetEnforced(t *testing.T) {
	text := strings.Repeat("hello world ", 100)
	got := Truncate(text, 5)
	if got == text {
		t.Error("Truncate should have trimmed long text")
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated result should end with '...', got %q", got[len(got)-20:])
	}
	if Count(got) > 5+3 {
		t.Errorf("truncated text still %d tokens", Count(got))
	}
}
