package validators

import (
	"context"
	"errors"
	"testing"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/result"
	"goquality/domain/rule"
	"goquality/internal/testkit"
)

func contentRule(t *testing.T, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	return map[string]interface{}{
		"name":       "content check",
		"rule_type":  "content",
		"dimension":  "completeness",
		"parameters": params,
	}
}

func TestNotNull(t *testing.T) {
	v, err := NewContentValidator(nil)
	if err != nil {
		t.Fatalf("NewContentValidator: %v", err)
	}
	table := testkit.OrdersTable() // amount has one null in five rows

	t.Run("strict fails on any null", func(t *testing.T) {
		r := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "not_null", "column_name": "amount",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("expected failure with a null present")
		}
		if vr.Details["violation_count"] != 1 {
			t.Errorf("expected 1 violation, got %v", vr.Details["violation_count"])
		}
	})

	t.Run("tolerated rate warns", func(t *testing.T) {
		r := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "not_null", "column_name": "amount", "max_violation_rate": 0.5,
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Status != result.StatusWarning {
			t.Errorf("expected warning status, got %s", vr.Status)
		}
		if !vr.Success {
			t.Error("warnings must keep success true")
		}
	})

	t.Run("clean column passes", func(t *testing.T) {
		r := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "not_null", "column_name": "order_id",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Status != result.StatusPassed {
			t.Errorf("expected passed, got %s", vr.Status)
		}
	})

	t.Run("missing column errors", func(t *testing.T) {
		r := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "not_null", "column_name": "nonexistent",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if !errors.Is(err, core.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
		if vr.Success {
			t.Error("error path must return a failed result")
		}
	})
}

func TestValueRange(t *testing.T) {
	v, _ := NewContentValidator(nil)
	table := testkit.NumericTable("m", "v", []float64{10, 20, 30, 150})

	r := testkit.MustRule(contentRule(t, map[string]interface{}{
		"subtype": "value_range", "column_name": "v", "min_value": 0, "max_value": 100,
	}))
	vr, err := v.ValidateRule(context.Background(), table, r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if vr.Success {
		t.Error("expected failure for out-of-range value")
	}
	if vr.Details["violation_count"] != 1 {
		t.Errorf("expected 1 violation, got %v", vr.Details["violation_count"])
	}

	t.Run("inverted bounds rejected", func(t *testing.T) {
		bad := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "value_range", "column_name": "v", "min_value": 10, "max_value": 5,
		}))
		if _, err := v.ValidateRule(context.Background(), table, bad); !errors.Is(err, core.ErrInvalidRule) {
			t.Fatalf("expected ErrInvalidRule, got %v", err)
		}
	})
}

func TestPatternMatch(t *testing.T) {
	v, _ := NewContentValidator(nil)
	table := testkit.OrdersTable()

	t.Run("matching ids pass", func(t *testing.T) {
		r := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "pattern_match", "column_name": "order_id", "pattern": `^o-\d+$`,
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass, details %v", vr.Details)
		}
	})

	t.Run("bad regex rejected", func(t *testing.T) {
		r := testkit.MustRule(contentRule(t, map[string]interface{}{
			"subtype": "pattern_match", "column_name": "order_id", "pattern": `([`,
		}))
		if _, err := v.ValidateRule(context.Background(), table, r); !errors.Is(err, core.ErrInvalidRule) {
			t.Fatalf("expected ErrInvalidRule, got %v", err)
		}
	})
}

func TestCategorical(t *testing.T) {
	v, _ := NewContentValidator(nil)
	table := testkit.OrdersTable()

	r := testkit.MustRule(contentRule(t, map[string]interface{}{
		"subtype":        "categorical",
		"column_name":    "status",
		"allowed_values": []interface{}{"shipped", "pending"},
	}))
	vr, err := v.ValidateRule(context.Background(), table, r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if vr.Success {
		t.Error("expected failure: cancelled is not allowed")
	}
	invalid, _ := vr.Details["invalid_values"].(map[string]int)
	if invalid["cancelled"] != 1 {
		t.Errorf("expected cancelled flagged once, got %v", invalid)
	}
}

func TestUnsupportedSubtype(t *testing.T) {
	v, _ := NewContentValidator(nil)
	r := testkit.MustRule(contentRule(t, map[string]interface{}{
		"subtype": "no_such_check", "column_name": "amount",
	}))
	vr, err := v.ValidateRule(context.Background(), testkit.OrdersTable(), r)
	if !errors.Is(err, core.ErrUnsupportedSubtype) {
		t.Fatalf("expected ErrUnsupportedSubtype, got %v", err)
	}
	if vr.Success {
		t.Error("unsupported subtype must yield a failed result")
	}
}

func TestBatchIsolation(t *testing.T) {
	v, _ := NewContentValidator(nil)
	table := testkit.OrdersTable()

	good := testkit.MustRule(contentRule(t, map[string]interface{}{
		"subtype": "not_null", "column_name": "order_id",
	}))
	broken := testkit.MustRule(contentRule(t, map[string]interface{}{
		"subtype": "not_null", "column_name": "missing_column",
	}))

	outcomes, err := v.Validate(context.Background(), table, []*rule.Rule{good, broken}, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Success {
		t.Error("good rule should pass")
	}
	if outcomes[1].Success {
		t.Error("broken rule should be a failed outcome, not dropped")
	}
}

func TestWarehousePushdown(t *testing.T) {
	fake := testkit.NewFakeWarehouseAdapter()
	v, _ := NewContentValidator(fake)

	counts := dataset.NewTable("", []string{"total_count", "non_null_count"})
	counts.AppendRow(map[string]interface{}{"total_count": 100, "non_null_count": 98})

	r := testkit.MustRule(contentRule(t, map[string]interface{}{
		"subtype": "not_null", "column_name": "amount",
	}))

	// register the exact SQL the check will issue
	fake.StubQuery(`SELECT COUNT(*) AS total_count, COUNT("amount") AS non_null_count FROM "analytics"."orders"`, counts)

	ref := &dataset.WarehouseRef{DatasetID: "analytics", TableID: "orders"}
	vr, err := v.ValidateRule(context.Background(), ref, r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if vr.Success {
		t.Error("expected failure: 2 nulls with strict tolerance")
	}
	if vr.Details["violation_count"] != 2 {
		t.Errorf("expected 2 violations, got %v", vr.Details["violation_count"])
	}
	if len(fake.QueryLog) != 1 {
		t.Errorf("expected exactly one query, got %v", fake.QueryLog)
	}
}
