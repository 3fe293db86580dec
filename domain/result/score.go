package result

import (
	"goquality/domain/rule"
)

// QualityScore is the scalar summary of a validation run in [0,1],
// optionally broken down by quality dimension
type QualityScore struct {
	OverallScore    float64                    `json:"overall_score"`
	DimensionScores map[rule.Dimension]float64 `json:"dimension_scores,omitempty"`
	Model           string                     `json:"model"`
}
