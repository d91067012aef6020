package todo

import (
	"errors"
	"strings"
	"testing"
)

func TestParseStatusStrict(t *testing.T) {
	valid := map[string]Status{
		"Not Started": StatusNotStarted,
		"In Progress": StatusInProgress,
		"Completed":   StatusCompleted,
		" Completed ": StatusCompleted,
	}
	for raw, want := range valid {
		got, err := ParseStatus(raw)
		if err != nil || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}

	for _, raw := range []string{"", "completed", "DONE", "NOT_STARTED", "not started"} {
		if _, err := ParseStatus(raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseStatus(%q) error = %v, want ErrInvalidInput", raw, err)
		}
	}
}

func TestParsePriorityStrict(t *testing.T) {
	for raw, want := range map[string]Priority{"Low": PriorityLow, "Medium": PriorityMedium, "High": PriorityHigh} {
		got, err := ParsePriority(raw)
		if err != nil || got != want {
			t.Fatalf("ParsePriority(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	for _, raw := range []string{"", "low", "HIGH", "urgent"} {
		if _, err := ParsePriority(raw); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParsePriority(%q) error = %v, want ErrInvalidInput", raw, err)
		}
	}
}

func TestValidateTitle(t *testing.T) {
	got, err := validateTitle("  Buy milk  ")
	if err != nil || got != "Buy milk" {
		t.Fatalf("validateTitle = %q, %v", got, err)
	}
	if _, err := validateTitle("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank title error = %v", err)
	}
	if _, err := validateTitle(strings.Repeat("x", 101)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("long title error = %v", err)
	}
	if _, err := validateTitle(strings.Repeat("x", 100)); err != nil {
		t.Fatalf("100-char title should pass: %v", err)
	}
}

func TestDedupeTags(t *testing.T) {
	got := dedupeTags([]string{"home", " work ", "home", "", "work", "errands"})
	want := []string{"home", "work", "errands"}
	if len(got) != len(want) {
		t.Fatalf("dedupeTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dedupeTags[%d] = %q, want %q (first-seen order)", i, got[i], want[i])
		}
	}
}
