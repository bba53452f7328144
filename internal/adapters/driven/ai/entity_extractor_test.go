package ai

import (
	"context"
	"testing"
)

func TestRegexEntityExtractor_Extract(t *testing.T) {
	text := "Inspect T-101 and P-023 at Terminal North on 2024-03-15. " +
		"Transfer 500 psi line pressure readings. Benzene storage requires " +
		"Permit #AB-20331. Contact the Houston Facility for Certificate QC-88412."

	e := NewRegexEntityExtractor()
	entities, err := e.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !contains(entities["equipment"], "T-101") {
		t.Errorf("expected equipment T-101, got %v", entities["equipment"])
	}
	if !contains(entities["equipment"], "P-023") {
		t.Errorf("expected equipment P-023, got %v", entities["equipment"])
	}
	if !contains(entities["chemicals"], "Benzene") {
		t.Errorf("expected chemical Benzene, got %v", entities["chemicals"])
	}
	if !contains(entities["dates"], "2024-03-15") {
		t.Errorf("expected date 2024-03-15, got %v", entities["dates"])
	}
	if !contains(entities["measurements"], "500 psi") {
		t.Errorf("expected measurement 500 psi, got %v", entities["measurements"])
	}
	if !contains(entities["locations"], "Terminal North") {
		t.Errorf("expected location Terminal North, got %v", entities["locations"])
	}
	if len(entities["certificates"]) == 0 {
		t.Errorf("expected at least one certificate, got %v", entities["certificates"])
	}
}

func TestRegexEntityExtractor_Deduplicates(t *testing.T) {
	e := NewRegexEntityExtractor()

	entities, err := e.Extract(context.Background(), "Check T-101, then recheck T-101 and t-101 again. Also T-101.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities["equipment"]) != 1 {
		t.Errorf("expected 1 unique equipment entity, got %v", entities["equipment"])
	}
}

func TestRegexEntityExtractor_NoMatches(t *testing.T) {
	e := NewRegexEntityExtractor()

	entities, err := e.Extract(context.Background(), "nothing interesting here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected empty map, got %v", entities)
	}
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
