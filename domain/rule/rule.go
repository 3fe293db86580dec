package rule

import (
	"fmt"
	"strings"

	"goquality/domain/core"
)

// Type classifies a rule by the validator capability that executes it
type Type string

const (
	TypeSchema       Type = "schema"
	TypeContent      Type = "content"
	TypeRelationship Type = "relationship"
	TypeStatistical  Type = "statistical"
	TypeBusinessRule Type = "business_rule"
	TypeCustom       Type = "custom"
)

// Types returns all known rule types
func Types() []Type {
	return []Type{TypeSchema, TypeContent, TypeRelationship, TypeStatistical, TypeBusinessRule, TypeCustom}
}

// ParseType parses a string into a rule Type
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnsupportedRuleType, s)
}

// Dimension is the data-quality axis a rule measures
type Dimension string

const (
	DimCompleteness Dimension = "completeness"
	DimAccuracy     Dimension = "accuracy"
	DimConsistency  Dimension = "consistency"
	DimTimeliness   Dimension = "timeliness"
	DimUniqueness   Dimension = "uniqueness"
	DimValidity     Dimension = "validity"
)

// Dimensions returns all known quality dimensions
func Dimensions() []Dimension {
	return []Dimension{DimCompleteness, DimAccuracy, DimConsistency, DimTimeliness, DimUniqueness, DimValidity}
}

// ParseDimension parses a string into a quality Dimension
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Dimensions() {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: unknown quality dimension %q", core.ErrInvalidRule, s)
}

// Rule is a declarative data-quality check: what to verify, on which
// dimension, with which parameters. Execution is the validators' concern.
type Rule struct {
	ID          core.RuleID            `json:"rule_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Type        Type                   `json:"rule_type"`
	Dimension   Dimension              `json:"dimension"`
	Parameters  map[string]interface{} `json:"parameters"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Enabled     bool                   `json:"enabled"`
	CreatedAt   core.Timestamp         `json:"created_at"`
	UpdatedAt   core.Timestamp         `json:"updated_at"`
}

// New builds a Rule from a loosely typed mapping, the shape rule-config
// files and API callers provide. A missing rule_id is generated, missing
// enabled defaults to true. The rule is validated before being returned.
func New(raw map[string]interface{}) (*Rule, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: rule definition is nil", core.ErrInvalidRule)
	}

	r := &Rule{
		Parameters: map[string]interface{}{},
		Metadata:   map[string]interface{}{},
		Enabled:    true,
		CreatedAt:  core.Now(),
		UpdatedAt:  core.Now(),
	}

	if id := stringField(raw, "rule_id"); id != "" {
		r.ID = core.RuleID(id)
	} else {
		r.ID = core.NewRuleID()
	}
	r.Name = stringField(raw, "name")
	r.Description = stringField(raw, "description")

	// Accept both "rule_type" and the shorthand "type"
	typeStr := stringField(raw, "rule_type")
	if typeStr == "" {
		typeStr = stringField(raw, "type")
	}
	ruleType, err := ParseType(typeStr)
	if err != nil {
		return nil, err
	}
	r.Type = ruleType

	dimension, err := ParseDimension(stringField(raw, "dimension"))
	if err != nil {
		return nil, err
	}
	r.Dimension = dimension

	if params, ok := raw["parameters"]; ok {
		paramMap, ok := params.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: parameters must be a mapping, got %T", core.ErrInvalidRule, params)
		}
		r.Parameters = paramMap
	}
	if meta, ok := raw["metadata"].(map[string]interface{}); ok {
		r.Metadata = meta
	}
	if enabled, ok := raw["enabled"].(bool); ok {
		r.Enabled = enabled
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the structural invariants: enum membership and a non-nil
// parameter mapping
func (r *Rule) Validate() error {
	if _, err := ParseType(string(r.Type)); err != nil {
		return err
	}
	if _, err := ParseDimension(string(r.Dimension)); err != nil {
		return err
	}
	if r.Parameters == nil {
		return fmt.Errorf("%w: parameters must be a mapping", core.ErrInvalidRule)
	}
	return nil
}

// Update applies a partial mapping of fields and re-validates. The rule is
// untouched when validation fails.
func (r *Rule) Update(fields map[string]interface{}) error {
	updated := *r
	updated.Parameters = r.Parameters
	updated.Metadata = r.Metadata

	if name := stringField(fields, "name"); name != "" {
		updated.Name = name
	}
	if desc, ok := fields["description"]; ok {
		updated.Description = fmt.Sprintf("%v", desc)
	}
	if typeStr := stringField(fields, "rule_type"); typeStr != "" {
		ruleType, err := ParseType(typeStr)
		if err != nil {
			return err
		}
		updated.Type = ruleType
	}
	if dimStr := stringField(fields, "dimension"); dimStr != "" {
		dimension, err := ParseDimension(dimStr)
		if err != nil {
			return err
		}
		updated.Dimension = dimension
	}
	if params, ok := fields["parameters"]; ok {
		paramMap, ok := params.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: parameters must be a mapping, got %T", core.ErrInvalidRule, params)
		}
		updated.Parameters = paramMap
	}
	if enabled, ok := fields["enabled"].(bool); ok {
		updated.Enabled = enabled
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	updated.UpdatedAt = core.Now()
	*r = updated
	return nil
}

// Enable marks the rule as active
func (r *Rule) Enable() {
	r.Enabled = true
	r.UpdatedAt = core.Now()
}

// Disable marks the rule as inactive without deleting it
func (r *Rule) Disable() {
	r.Enabled = false
	r.UpdatedAt = core.Now()
}

// Clone returns a deep-enough copy: parameter and metadata maps are copied
// so callers cannot mutate registry-owned rules through a returned rule
func (r *Rule) Clone() *Rule {
	clone := *r
	clone.Parameters = make(map[string]interface{}, len(r.Parameters))
	for k, v := range r.Parameters {
		clone.Parameters[k] = v
	}
	clone.Metadata = make(map[string]interface{}, len(r.Metadata))
	for k, v := range r.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
