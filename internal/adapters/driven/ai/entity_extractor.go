package ai

import (
	"context"
	"regexp"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Ensure RegexEntityExtractor implements EntityExtractor
var _ driven.EntityExtractor = (*RegexEntityExtractor)(nil)

// entityPatterns maps entity types to the expressions that recognize
// them. The vocabulary is industrial documentation: equipment tags,
// chemicals, measurements, dates and certificate numbers.
var entityPatterns = map[string][]*regexp.Regexp{
	"equipment": {
		regexp.MustCompile(`\b(?:T|P|V|TK|PUMP|VALVE)-\d{3,4}\b`),
		regexp.MustCompile(`\b[A-Z]{2,3}-\d{3,4}\b`),
	},
	"chemicals": {
		regexp.MustCompile(`\b[A-Z][a-z]+ (?:Acid|Chloride|Sulfate|Nitrate|Oxide)\b`),
		regexp.MustCompile(`\b(?:Benzene|Toluene|Xylene|Ethylene|Propylene|Butane|Propane)\b`),
	},
	"locations": {
		regexp.MustCompile(`\b(?:Terminal|Facility|Plant|Station|Depot) [A-Z][a-z]+\b`),
		regexp.MustCompile(`\b[A-Z][a-z]+ (?:Terminal|Facility|Plant)\b`),
	},
	"measurements": {
		regexp.MustCompile(`\b\d+(?:\.\d+)? ?(?:m3|m³|L|gal|barrels?|tons?|kg|lb|psi|bar|°C|°F)\b`),
	},
	"dates": {
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
	},
	"certificates": {
		regexp.MustCompile(`\b(?:Cert|Certificate|Permit|License) ?#? ?[A-Z0-9-]{5,20}\b`),
	},
}

// RegexEntityExtractor pulls typed entities out of text with fixed
// patterns. Purely lexical; no external calls.
type RegexEntityExtractor struct{}

// NewRegexEntityExtractor creates a pattern-based entity extractor.
func NewRegexEntityExtractor() *RegexEntityExtractor {
	return &RegexEntityExtractor{}
}

// Extract returns entities grouped by type, deduplicated
// case-insensitively, in order of first occurrence. Types with no
// matches are omitted.
func (e *RegexEntityExtractor) Extract(ctx context.Context, text string) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities := make(map[string][]string)
	for entityType, patterns := range entityPatterns {
		seen := make(map[string]bool)
		var matches []string

		for _, pattern := range patterns {
			for _, match := range pattern.FindAllString(text, -1) {
				key := strings.ToLower(match)
				if seen[key] {
					continue
				}
				seen[key] = true
				matches = append(matches, match)
			}
		}

		if len(matches) > 0 {
			entities[entityType] = matches
		}
	}
	return entities, nil
}
