package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goquality/domain/core"
)

func TestNewRuleFromRawDefinition(t *testing.T) {
	r, err := New(map[string]interface{}{
		"name":      "ids present",
		"rule_type": "content",
		"dimension": "completeness",
		"parameters": map[string]interface{}{
			"subtype":     "not_null",
			"column_name": "order_id",
		},
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, r.ID, "missing rule_id must be generated")
	assert.Equal(t, TypeContent, r.Type)
	assert.Equal(t, DimCompleteness, r.Dimension)
	assert.True(t, r.Enabled, "rules default to enabled")
	assert.Equal(t, "not_null", r.Subtype())
	assert.Equal(t, "order_id", r.ColumnName())
}

func TestNewRuleAcceptsTypeShorthand(t *testing.T) {
	r, err := New(map[string]interface{}{
		"name":      "shorthand",
		"type":      "schema",
		"dimension": "validity",
	})
	assert.NoError(t, err)
	assert.Equal(t, TypeSchema, r.Type)
}

func TestNewRuleRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"nil definition", nil},
		{"unknown type", map[string]interface{}{"rule_type": "teleportation", "dimension": "accuracy"}},
		{"unknown dimension", map[string]interface{}{"rule_type": "content", "dimension": "vibes"}},
		{"non-map parameters", map[string]interface{}{"rule_type": "content", "dimension": "accuracy", "parameters": "strict"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseTypeNormalizes(t *testing.T) {
	parsed, err := ParseType("  Business_Rule ")
	assert.NoError(t, err)
	assert.Equal(t, TypeBusinessRule, parsed)

	_, err = ParseType("hexagonal")
	assert.ErrorIs(t, err, core.ErrUnsupportedRuleType)
}

func TestUpdateLeavesRuleUntouchedOnFailure(t *testing.T) {
	r, err := New(map[string]interface{}{
		"name": "original", "rule_type": "content", "dimension": "completeness",
	})
	assert.NoError(t, err)

	err = r.Update(map[string]interface{}{"name": "renamed", "dimension": "vibes"})
	assert.Error(t, err)
	assert.Equal(t, "original", r.Name, "failed update must not apply partially")
	assert.Equal(t, DimCompleteness, r.Dimension)

	err = r.Update(map[string]interface{}{"name": "renamed", "dimension": "accuracy"})
	assert.NoError(t, err)
	assert.Equal(t, "renamed", r.Name)
	assert.Equal(t, DimAccuracy, r.Dimension)
}

func TestCloneIsolatesParameterMaps(t *testing.T) {
	r, err := New(map[string]interface{}{
		"name": "clone me", "rule_type": "content", "dimension": "accuracy",
		"parameters": map[string]interface{}{"column_name": "amount"},
	})
	assert.NoError(t, err)

	clone := r.Clone()
	clone.Parameters["column_name"] = "tampered"
	assert.Equal(t, "amount", r.ColumnName())
}

func TestParamAccessorsCoerceJSONNumbers(t *testing.T) {
	r, err := New(map[string]interface{}{
		"name": "params", "rule_type": "statistical", "dimension": "accuracy",
		"parameters": map[string]interface{}{
			"zscore_threshold": float64(3), // JSON numbers decode as float64
			"min_distinct":     "2",
			"allowed_values":   []interface{}{"a", "b"},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 3.0, r.FloatParam("zscore_threshold", 0))
	assert.Equal(t, 2, r.IntParam("min_distinct", 0))
	assert.Equal(t, []string{"a", "b"}, r.StringSliceParam("allowed_values"))
	assert.Equal(t, 1.5, r.FloatParam("absent", 1.5))
	assert.Nil(t, r.StringSliceParam("absent"))
}

func TestEnableDisable(t *testing.T) {
	r, err := New(map[string]interface{}{
		"name": "toggle", "rule_type": "content", "dimension": "accuracy",
	})
	assert.NoError(t, err)

	r.Disable()
	assert.False(t, r.Enabled)
	r.Enable()
	assert.True(t, r.Enabled)
}
