package scoring

import (
	"fmt"
	"strings"

	"goquality/domain/core"
	"goquality/domain/result"
	"goquality/domain/rule"
)

// Model selects the algorithm that reduces rule outcomes to one score
type Model string

const (
	ModelSimple   Model = "simple"
	ModelWeighted Model = "weighted"
	ModelImpact   Model = "impact"
	ModelAdaptive Model = "adaptive"
)

// ParseModel parses a string into a scoring Model
func ParseModel(s string) (Model, error) {
	model := Model(strings.ToLower(strings.TrimSpace(s)))
	switch model {
	case ModelSimple, ModelWeighted, ModelImpact, ModelAdaptive:
		return model, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidModel, s)
}

// DefaultQualityThreshold is the score at or above which a run passes
const DefaultQualityThreshold = 0.8

// DefaultDimensionWeights returns the stock weighting for the weighted
// model. Validity carries no default weight; callers that use validity
// rules configure their own weights.
func DefaultDimensionWeights() map[rule.Dimension]float64 {
	return map[rule.Dimension]float64{
		rule.DimCompleteness: 0.25,
		rule.DimAccuracy:     0.25,
		rule.DimConsistency:  0.20,
		rule.DimTimeliness:   0.15,
		rule.DimUniqueness:   0.15,
	}
}

// Scorer reduces a list of rule outcomes to a single quality score in
// [0,1]. It is pure strategy dispatch: no state changes across calls
// beyond the configured model, weights, impacts, and threshold.
type Scorer struct {
	model            Model
	dimensionWeights map[rule.Dimension]float64
	impactFactors    map[core.RuleID]float64
	threshold        float64
}

// NewScorer creates a scorer with the simple model and default settings
func NewScorer() *Scorer {
	return &Scorer{
		model:            ModelSimple,
		dimensionWeights: DefaultDimensionWeights(),
		impactFactors:    map[core.RuleID]float64{},
		threshold:        DefaultQualityThreshold,
	}
}

// Model returns the configured scoring model
func (s *Scorer) Model() Model {
	return s.model
}

// SetModel validates and sets the scoring model
func (s *Scorer) SetModel(model Model) error {
	parsed, err := ParseModel(string(model))
	if err != nil {
		return err
	}
	s.model = parsed
	return nil
}

// Threshold returns the configured quality threshold
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// SetThreshold validates and sets the pass/fail threshold
func (s *Scorer) SetThreshold(threshold float64) error {
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: %v", core.ErrInvalidThreshold, threshold)
	}
	s.threshold = threshold
	return nil
}

// SetDimensionWeights replaces the weighted-model weights. Weights may be
// un-normalized; scoring normalizes. Negative weights are rejected.
func (s *Scorer) SetDimensionWeights(weights map[rule.Dimension]float64) error {
	if weights == nil {
		return fmt.Errorf("%w: weights must be a mapping", core.ErrInvalidWeights)
	}
	for dim, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %v for %s", core.ErrInvalidWeights, w, dim)
		}
	}
	s.dimensionWeights = weights
	return nil
}

// SetImpactFactors replaces the impact-model rule weights
func (s *Scorer) SetImpactFactors(factors map[core.RuleID]float64) error {
	if factors == nil {
		return fmt.Errorf("%w: impact factors must be a mapping", core.ErrInvalidWeights)
	}
	s.impactFactors = factors
	return nil
}

// PassesThreshold reports whether a score meets the threshold (inclusive)
func (s *Scorer) PassesThreshold(score float64) bool {
	return score >= s.threshold
}

// CalculateScore runs the configured model over the outcomes. An empty
// outcome list always scores 0.0.
func (s *Scorer) CalculateScore(results []result.ValidationResult) result.QualityScore {
	model := s.model
	if model == ModelAdaptive {
		model = s.chooseModel(results)
	}

	switch model {
	case ModelWeighted:
		overall, dimScores := s.calculateWeightedScore(results)
		return result.QualityScore{OverallScore: overall, DimensionScores: dimScores, Model: string(model)}
	case ModelImpact:
		return result.QualityScore{OverallScore: s.calculateImpactScore(results), Model: string(model)}
	default:
		return result.QualityScore{OverallScore: CalculateSimpleScore(results), Model: string(model)}
	}
}

// chooseModel is the adaptive fallback chain: impact when any outcome's
// rule carries a configured impact factor, weighted when outcomes carry
// dimension tags, simple otherwise. A heuristic, not a statistical choice.
func (s *Scorer) chooseModel(results []result.ValidationResult) Model {
	for _, r := range results {
		if _, ok := s.impactFactors[r.RuleID]; ok {
			return ModelImpact
		}
	}
	for _, r := range results {
		if r.Dimension != "" {
			return ModelWeighted
		}
	}
	return ModelSimple
}

// CalculateSimpleScore is the plain pass ratio: passed/total, 0.0 empty
func CalculateSimpleScore(results []result.ValidationResult) float64 {
	if len(results) == 0 {
		return 0.0
	}
	passed := 0
	for _, r := range results {
		if r.Success {
			passed++
		}
	}
	return float64(passed) / float64(len(results))
}

// calculateWeightedScore groups outcomes by dimension, scores each group
// by its pass ratio, and sums ratio x normalized weight. A dimension with
// zero outcomes scores 1.0 - no evidence of failure is not penalized -
// and contributes its full weight, keeping the score ceiling at 1.0.
func (s *Scorer) calculateWeightedScore(results []result.ValidationResult) (float64, map[rule.Dimension]float64) {
	if len(results) == 0 {
		return 0.0, nil
	}

	weights := NormalizeWeights(s.dimensionWeights)

	passed := map[rule.Dimension]int{}
	total := map[rule.Dimension]int{}
	for _, r := range results {
		total[r.Dimension]++
		if r.Success {
			passed[r.Dimension]++
		}
	}

	dimScores := make(map[rule.Dimension]float64, len(weights))
	overall := 0.0
	for dim, weight := range weights {
		score := 1.0
		if n := total[dim]; n > 0 {
			score = float64(passed[dim]) / float64(n)
		}
		dimScores[dim] = score
		overall += score * weight
	}
	return overall, dimScores
}

// calculateImpactScore weighs each outcome by its rule's impact factor
// (1.0 when unconfigured): 1 - failedImpact/totalImpact, 0.0 when the
// total impact is zero
func (s *Scorer) calculateImpactScore(results []result.ValidationResult) float64 {
	if len(results) == 0 {
		return 0.0
	}

	totalImpact := 0.0
	failedImpact := 0.0
	for _, r := range results {
		impact, ok := s.impactFactors[r.RuleID]
		if !ok {
			impact = 1.0
		}
		totalImpact += impact
		if !r.Success {
			failedImpact += impact
		}
	}

	if totalImpact == 0 {
		return 0.0
	}
	return 1.0 - failedImpact/totalImpact
}

// NormalizeWeights scales weights to sum to 1.0, preserving proportions.
// An all-zero or empty mapping falls back to equal weighting over the
// stock dimensions. Idempotent for already-normalized input.
func NormalizeWeights(weights map[rule.Dimension]float64) map[rule.Dimension]float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}

	if sum == 0 {
		defaults := DefaultDimensionWeights()
		equal := 1.0 / float64(len(defaults))
		normalized := make(map[rule.Dimension]float64, len(defaults))
		for dim := range defaults {
			normalized[dim] = equal
		}
		return normalized
	}

	normalized := make(map[rule.Dimension]float64, len(weights))
	for dim, w := range weights {
		normalized[dim] = w / sum
	}
	return normalized
}
