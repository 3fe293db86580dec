package result

import (
	"goquality/domain/core"
	"goquality/domain/rule"
)

// ValidationSummary aggregates all outcomes of one validation run.
// Warnings count as passed, so PassedRules+FailedRules == TotalRules holds.
type ValidationSummary struct {
	ValidationID  core.ValidationID      `json:"validation_id"`
	TotalRules    int                    `json:"total_rules"`
	PassedRules   int                    `json:"passed_rules"`
	FailedRules   int                    `json:"failed_rules"`
	WarningRules  int                    `json:"warning_rules"`
	SuccessRate   float64                `json:"success_rate"`
	ByDimension   map[rule.Dimension]int `json:"results_by_dimension"`
	ByRuleType    map[rule.Type]int      `json:"results_by_rule_type"`
	QualityScore  *QualityScore          `json:"quality_score,omitempty"`
	Threshold     float64                `json:"quality_threshold"`
	PassesQuality bool                   `json:"passes_threshold"`
	Timestamp     core.Timestamp         `json:"timestamp"`
	ExecutionTime float64                `json:"execution_time"`
}

// NewSummary builds a summary from a finished batch of outcomes
func NewSummary(results []ValidationResult, executionTime float64) *ValidationSummary {
	s := &ValidationSummary{
		ValidationID:  core.NewValidationID(),
		TotalRules:    len(results),
		ByDimension:   map[rule.Dimension]int{},
		ByRuleType:    map[rule.Type]int{},
		Timestamp:     core.Now(),
		ExecutionTime: executionTime,
	}

	for _, r := range results {
		if r.Success {
			s.PassedRules++
		} else {
			s.FailedRules++
		}
		if r.Status == StatusWarning {
			s.WarningRules++
		}
		s.ByDimension[r.Dimension]++
		s.ByRuleType[r.RuleType]++
	}

	if s.TotalRules > 0 {
		s.SuccessRate = float64(s.PassedRules) / float64(s.TotalRules)
	}
	return s
}

// SetQualityScore finalizes the summary with the externally computed score
// and the threshold comparison. Called exactly once after scoring.
func (s *ValidationSummary) SetQualityScore(score QualityScore, threshold float64) {
	s.QualityScore = &score
	s.Threshold = threshold
	s.PassesQuality = score.OverallScore >= threshold
}
