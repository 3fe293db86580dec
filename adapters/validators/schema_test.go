package validators

import (
	"context"
	"testing"

	"goquality/domain/dataset"
	"goquality/internal/testkit"
)

func TestColumnExists(t *testing.T) {
	v, err := NewSchemaValidator(nil)
	if err != nil {
		t.Fatalf("NewSchemaValidator: %v", err)
	}
	table := testkit.OrdersTable()

	cases := []struct {
		name   string
		column string
		want   bool
	}{
		{"present column", "order_id", true},
		{"absent column", "ghost", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testkit.MustRule(map[string]interface{}{
				"name": "col check", "rule_type": "schema", "dimension": "validity",
				"parameters": map[string]interface{}{"subtype": "column_exists", "column_name": tc.column},
			})
			vr, err := v.ValidateRule(context.Background(), table, r)
			if err != nil {
				t.Fatalf("ValidateRule: %v", err)
			}
			if vr.Success != tc.want {
				t.Errorf("column %q: expected success=%v, details %v", tc.column, tc.want, vr.Details)
			}
		})
	}
}

func TestColumnType(t *testing.T) {
	v, _ := NewSchemaValidator(nil)
	table := testkit.OrdersTable()

	t.Run("floats satisfy numeric", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "type check", "rule_type": "schema", "dimension": "validity",
			"parameters": map[string]interface{}{"subtype": "column_type", "column_name": "amount", "expected_type": "numeric"},
		})
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass, details %v", vr.Details)
		}
	})

	t.Run("strings fail numeric", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "type check", "rule_type": "schema", "dimension": "validity",
			"parameters": map[string]interface{}{"subtype": "column_type", "column_name": "status", "expected_type": "numeric"},
		})
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("string column must fail a numeric expectation")
		}
	})
}

func TestSchemaMatch(t *testing.T) {
	v, _ := NewSchemaValidator(nil)
	table := testkit.OrdersTable()

	t.Run("subset passes without strict", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "schema", "rule_type": "schema", "dimension": "validity",
			"parameters": map[string]interface{}{
				"subtype":          "schema_match",
				"expected_columns": []interface{}{"order_id", "amount"},
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

	t.Run("strict flags extras", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "schema", "rule_type": "schema", "dimension": "validity",
			"parameters": map[string]interface{}{
				"subtype":          "schema_match",
				"expected_columns": []interface{}{"order_id", "amount"},
				"strict":           true,
			},
		})
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("strict mode must fail on undeclared columns")
		}
	})

	t.Run("missing column fails", func(t *testing.T) {
		r := testkit.MustRule(map[string]interface{}{
			"name": "schema", "rule_type": "schema", "dimension": "validity",
			"parameters": map[string]interface{}{
				"subtype":          "schema_match",
				"expected_columns": []interface{}{"order_id", "ghost"},
			},
		})
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("expected failure for missing expected column")
		}
	})
}

func TestColumnExistsRemote(t *testing.T) {
	fake := testkit.NewFakeWarehouseAdapter()
	fake.AddTable("analytics", "orders", testkit.OrdersTable(), map[string]string{
		"order_id": "text", "amount": "numeric",
	})
	v, _ := NewSchemaValidator(fake)

	ref := &dataset.WarehouseRef{DatasetID: "analytics", TableID: "orders"}
	r := testkit.MustRule(map[string]interface{}{
		"name": "remote col", "rule_type": "schema", "dimension": "validity",
		"parameters": map[string]interface{}{"subtype": "column_exists", "column_name": "amount"},
	})
	vr, err := v.ValidateRule(context.Background(), ref, r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if !vr.Success {
		t.Errorf("expected pass, details %v", vr.Details)
	}
}
