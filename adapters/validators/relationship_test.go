package validators

import (
	"context"
	"errors"
	"testing"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/internal/testkit"
)

func relRule(t *testing.T, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	return map[string]interface{}{
		"name":       "relationship check",
		"rule_type":  "relationship",
		"dimension":  "uniqueness",
		"parameters": params,
	}
}

func TestUniqueness(t *testing.T) {
	v, err := NewRelationshipValidator(nil)
	if err != nil {
		t.Fatalf("NewRelationshipValidator: %v", err)
	}
	table := testkit.OrdersTable()

	t.Run("unique column passes", func(t *testing.T) {
		r := testkit.MustRule(relRule(t, map[string]interface{}{
			"subtype": "uniqueness", "column_name": "order_id",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass, details %v", vr.Details)
		}
	})

	t.Run("repeated values fail", func(t *testing.T) {
		// customer_id repeats for c-1 and c-2
		r := testkit.MustRule(relRule(t, map[string]interface{}{
			"subtype": "uniqueness", "column_name": "customer_id",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("expected failure on duplicated customer ids")
		}
		if vr.Details["violation_count"] != 4 {
			t.Errorf("expected 4 rows in duplicate groups, got %v", vr.Details["violation_count"])
		}
	})

	t.Run("composite key", func(t *testing.T) {
		r := testkit.MustRule(relRule(t, map[string]interface{}{
			"subtype": "uniqueness", "columns": []interface{}{"customer_id", "order_id"},
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("composite key should be unique, details %v", vr.Details)
		}
	})
}

func TestReferentialIntegrity(t *testing.T) {
	v, _ := NewRelationshipValidator(nil)

	customers := dataset.NewTable("customers", []string{"id"})
	for _, id := range []string{"c-1", "c-2"} {
		customers.AppendRow(map[string]interface{}{"id": id})
	}
	v.RegisterLookupTable(customers)

	table := testkit.OrdersTable() // references c-1, c-2, c-3

	r := testkit.MustRule(relRule(t, map[string]interface{}{
		"subtype":          "referential_integrity",
		"column_name":      "customer_id",
		"reference_table":  "customers",
		"reference_column": "id",
	}))
	vr, err := v.ValidateRule(context.Background(), table, r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if vr.Success {
		t.Error("expected failure: c-3 is an orphan")
	}
	if vr.Details["violation_count"] != 1 {
		t.Errorf("expected 1 orphan, got %v", vr.Details["violation_count"])
	}

	t.Run("unregistered reference table errors", func(t *testing.T) {
		bad := testkit.MustRule(relRule(t, map[string]interface{}{
			"subtype":          "referential_integrity",
			"column_name":      "customer_id",
			"reference_table":  "nowhere",
			"reference_column": "id",
		}))
		if _, err := v.ValidateRule(context.Background(), table, bad); !errors.Is(err, core.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
	})
}

func TestCardinality(t *testing.T) {
	v, _ := NewRelationshipValidator(nil)
	table := testkit.OrdersTable() // status has 3 distinct values

	cases := []struct {
		name string
		min  int
		max  int
		want bool
	}{
		{"within bounds", 2, 5, true},
		{"below minimum", 5, 10, false},
		{"above maximum", 0, 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testkit.MustRule(relRule(t, map[string]interface{}{
				"subtype": "cardinality", "column_name": "status",
				"min_distinct": tc.min, "max_distinct": tc.max,
			}))
			vr, err := v.ValidateRule(context.Background(), table, r)
			if err != nil {
				t.Fatalf("ValidateRule: %v", err)
			}
			if vr.Success != tc.want {
				t.Errorf("expected success=%v, details %v", tc.want, vr.Details)
			}
		})
	}
}

func TestBusinessRules(t *testing.T) {
	v, err := NewBusinessRuleValidator(nil)
	if err != nil {
		t.Fatalf("NewBusinessRuleValidator: %v", err)
	}
	table := testkit.OrdersTable()

	t.Run("row condition", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "amounts positive", "rule_type": "business_rule", "dimension": "accuracy",
			"parameters": map[string]interface{}{
				"subtype": "row_condition", "column_name": "amount", "operator": "gt", "value": 0,
			},
		})
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		// the nil amount fails the condition
		if vr.Success {
			t.Errorf("expected failure, details %v", vr.Details)
		}
	})

	t.Run("categorical membership via in", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "status known", "rule_type": "business_rule", "dimension": "consistency",
			"parameters": map[string]interface{}{
				"subtype": "row_condition", "column_name": "status", "operator": "in",
				"value": []interface{}{"shipped", "pending", "cancelled"},
			},
		})
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass, details %v", vr.Details)
		}
	})

	t.Run("unknown operator rejected", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "bad op", "rule_type": "business_rule", "dimension": "accuracy",
			"parameters": map[string]interface{}{
				"subtype": "row_condition", "column_name": "amount", "operator": "resembles", "value": 1,
			},
		})
		if _, err := v.ValidateRule(context.Background(), table, r); !errors.Is(err, core.ErrInvalidRule) {
			t.Fatalf("expected ErrInvalidRule, got %v", err)
		}
	})
}

func TestCustomValidatorExtension(t *testing.T) {
	v, err := NewCustomValidator(nil)
	if err != nil {
		t.Fatalf("NewCustomValidator: %v", err)
	}

	// extensions can add entirely new subtypes
	if err := v.RegisterHandler("always_fails", func(_ context.Context, _ *dataset.Table, _ *rule.Rule) (Outcome, error) {
		return failed(map[string]interface{}{"reason": "registered extension"})
	}); err != nil {
		t.Fatalf("RegisterHandler: %v", err)
	}

	r := testkit.MustRule(map[string]interface{}{
		"name": "extension", "rule_type": "custom", "dimension": "validity",
		"parameters": map[string]interface{}{"subtype": "always_fails", "column_name": "order_id"},
	})
	vr, err := v.ValidateRule(context.Background(), testkit.OrdersTable(), r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if vr.Success {
		t.Error("registered extension should have failed the rule")
	}

	t.Run("inherits content checks", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "base behavior", "rule_type": "custom", "dimension": "completeness",
			"parameters": map[string]interface{}{"subtype": "not_null", "column_name": "order_id"},
		})
		vr, err := v.ValidateRule(context.Background(), testkit.OrdersTable(), r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected inherited not_null to pass, details %v", vr.Details)
		}
	})

	t.Run("extension overrides base subtype", func(t *testing.T) {
		if err := v.RegisterHandler("not_null", func(_ context.Context, _ *dataset.Table, _ *rule.Rule) (Outcome, error) {
			return failed(map[string]interface{}{"reason": "override"})
		}); err != nil {
			t.Fatalf("RegisterHandler: %v", err)
		}
		r := testkit.MustRule(map[string]interface{}{
			"name": "override", "rule_type": "custom", "dimension": "completeness",
			"parameters": map[string]interface{}{"subtype": "not_null", "column_name": "order_id"},
		})
		vr, err := v.ValidateRule(context.Background(), testkit.OrdersTable(), r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("registered override should take precedence over the base check")
		}
	})
}
