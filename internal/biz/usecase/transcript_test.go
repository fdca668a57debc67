package usecase

import (
	"strings"
	"testing"

	"chatwarden/internal/biz/domain"
)

func TestBuildTranscriptChronological(t *testing.T) {
	snap := domain.Snapshot{
		"1001": {
			msg("g1", "1001", 300, "third"),
			msg("g1", "1001", 100, "first"),
		},
		"1002": {
			msg("g1", "1002", 200, "second"),
		},
	}

	transcript := BuildTranscript(snap)
	lines := strings.Split(transcript, "\n")
	if len(lines) != 3 {
		t.Fatalf("transcript has %d lines, want 3: %q", len(lines), transcript)
	}

	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if !strings.HasSuffix(lines[i], want) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], want)
		}
	}
}

func TestBuildTranscriptLineFormat(t *testing.T) {
	snap := domain.Snapshot{
		"1001": {msg("g1", "1001", 100, "hello there")},
	}

	transcript := BuildTranscript(snap)
	if !strings.HasPrefix(transcript, "[1001|user-1001] ") {
		t.Errorf("transcript = %q, want [userID|name] prefix", transcript)
	}
	if !strings.HasSuffix(transcript, ": hello there") {
		t.Errorf("transcript = %q, want message text suffix", transcript)
	}
	if strings.HasSuffix(transcript, "\n") {
		t.Error("transcript should not end with a newline")
	}
}

func TestBuildTranscriptTieOrderDeterministic(t *testing.T) {
	snap := domain.Snapshot{
		"b": {msg("g1", "b", 100, "from b")},
		"a": {msg("g1", "a", 100, "from a")},
	}

	// Same timestamp: users are flattened in sorted-ID order, and the sort
	// is stable, so "a" must come first every time.
	for i := 0; i < 5; i++ {
		transcript := BuildTranscript(snap)
		lines := strings.Split(transcript, "\n")
		if !strings.HasPrefix(lines[0], "[a|") {
			t.Fatalf("run %d: first line = %q, want user a first", i, lines[0])
		}
	}
}

func TestBuildTranscriptEmptySnapshot(t *testing.T) {
	if got := BuildTranscript(domain.Snapshot{}); got != "" {
		t.Errorf("empty snapshot transcript = %q, want empty string", got)
	}
}

func TestBuildTranscriptMissingName(t *testing.T) {
	snap := domain.Snapshot{
		"1001": {{GroupID: "g1", UserID: "1001", Timestamp: 100, Text: "hi"}},
	}

	transcript := BuildTranscript(snap)
	if !strings.HasPrefix(transcript, "[1001|unknown] ") {
		t.Errorf("transcript = %q, want unknown placeholder for empty name", transcript)
	}
}
