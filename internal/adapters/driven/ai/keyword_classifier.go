package ai

import (
	"context"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Ensure KeywordClassifier implements Classifier
var _ driven.Classifier = (*KeywordClassifier)(nil)

// categoryKeywords maps each shipped category to the terms that signal it.
// A filename match weighs double a body match.
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryTechnical: {
		"specification", "datasheet", "technical", "engineering",
		"drawing", "design", "schematic", "capacity", "blueprint",
	},
	domain.CategorySafety: {
		"safety", "hazard", "msds", "sds", "emergency", "risk",
		"danger", "toxic", "flammable", "compliance", "permit", "evacuation",
	},
	domain.CategoryOperations: {
		"sop", "procedure", "instruction", "guideline", "process",
		"operation", "workflow", "startup", "shutdown", "checklist",
	},
	domain.CategoryMaintenance: {
		"manual", "maintenance", "repair", "service", "equipment",
		"tank", "pump", "valve", "lubrication", "overhaul", "spare",
	},
	domain.CategoryQuality: {
		"quality", "testing", "assurance", "certification", "standard",
		"calibration", "audit", "nonconformance", "tolerance",
	},
	domain.CategoryTraining: {
		"training", "onboarding", "course", "competency", "employee",
		"handbook", "curriculum", "instructor",
	},
	domain.CategoryFinancial: {
		"invoice", "contract", "purchase", "order", "financial",
		"payment", "cost", "price", "legal", "agreement", "budget",
	},
}

// minClassifierConfidence is the floor below which a keyword match is
// too weak to trust and the document stays Uncategorized.
const minClassifierConfidence = 0.3

// KeywordClassifier assigns categories by counting keyword occurrences.
// It runs entirely offline, so classification can never block the
// pipeline on an external service.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a keyword-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify scores each category by keyword hits in the text and the
// filename, then picks the best. Confidence grows with the hit count,
// capped at 0.8 since keyword matching is never certain.
func (c *KeywordClassifier) Classify(ctx context.Context, text, filename string) (*driven.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	textLower := strings.ToLower(text)
	filenameLower := strings.ToLower(filename)

	best := domain.CategoryUncategorized
	bestScore := 0

	for _, category := range domain.KnownCategories() {
		score := 0
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(textLower, keyword) {
				score++
			}
			if filenameLower != "" && strings.Contains(filenameLower, keyword) {
				score += 2
			}
		}
		if score > bestScore {
			best = category
			bestScore = score
		}
	}

	confidence := float64(bestScore) * 0.1
	if confidence > 0.8 {
		confidence = 0.8
	}
	if confidence < minClassifierConfidence {
		return &driven.Classification{
			Category:   domain.CategoryUncategorized,
			Confidence: confidence,
		}, nil
	}

	return &driven.Classification{
		Category:   best,
		Confidence: confidence,
	}, nil
}
