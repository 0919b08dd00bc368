package models

// DefaultCategory is used when an analysis carries no Feedback label.
const DefaultCategory = "Andere"

// Analysis is the structured result of classifying one reply.
type Analysis struct {
	Category string
	Summary  string
}

// NewAnalysis builds an Analysis, substituting fallbackCategory (or
// DefaultCategory) when category is empty.
func NewAnalysis(category, summary, fallbackCategory string) Analysis {
	if category == "" {
		category = fallbackCategory
	}
	if category == "" {
		category = DefaultCategory
	}
	return Analysis{Category: category, Summary: summary}
}
