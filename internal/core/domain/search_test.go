package domain

import (
	"testing"
)

func TestSearchModeConstants(t *testing.T) {
	if SearchModeHybrid != "hybrid" {
		t.Errorf("expected SearchModeHybrid = 'hybrid', got %s", SearchModeHybrid)
	}
	if SearchModeSemantic != "semantic" {
		t.Errorf("expected SearchModeSemantic = 'semantic', got %s", SearchModeSemantic)
	}
	if SearchModeKeyword != "keyword" {
		t.Errorf("expected SearchModeKeyword = 'keyword', got %s", SearchModeKeyword)
	}
}

func TestDefaultSearchOptions(t *testing.T) {
	opts := DefaultSearchOptions()

	if opts.Mode != SearchModeHybrid {
		t.Errorf("expected mode %s, got %s", SearchModeHybrid, opts.Mode)
	}
	if opts.Limit != 10 {
		t.Errorf("expected limit 10, got %d", opts.Limit)
	}
	if opts.Offset != 0 {
		t.Errorf("expected offset 0, got %d", opts.Offset)
	}
	if opts.SemanticWeight != 0.7 {
		t.Errorf("expected semantic weight 0.7, got %f", opts.SemanticWeight)
	}
	if opts.KeywordWeight != 0.3 {
		t.Errorf("expected keyword weight 0.3, got %f", opts.KeywordWeight)
	}
	if opts.Threshold != 0.0 {
		t.Errorf("expected threshold 0, got %f", opts.Threshold)
	}
}
