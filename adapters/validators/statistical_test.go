package validators

import (
	"context"
	"errors"
	"testing"

	"goquality/domain/core"
	"goquality/internal/testkit"
)

func statRule(t *testing.T, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	return map[string]interface{}{
		"name":       "stat check",
		"rule_type":  "statistical",
		"dimension":  "accuracy",
		"parameters": params,
	}
}

func TestOutlierDetection(t *testing.T) {
	v, err := NewStatisticalValidator(nil)
	if err != nil {
		t.Fatalf("NewStatisticalValidator: %v", err)
	}

	t.Run("zscore flags extreme value", func(t *testing.T) {
		values := []float64{10, 11, 9, 10, 12, 10, 11, 9, 10, 500}
		table := testkit.NumericTable("m", "v", values)
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "outlier_detection", "column_name": "v", "method": "zscore", "zscore_threshold": 2.0,
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Errorf("expected outlier detected, details %v", vr.Details)
		}
	})

	t.Run("iqr on clean data passes", func(t *testing.T) {
		values := []float64{10, 11, 12, 13, 14, 15, 16, 17}
		table := testkit.NumericTable("m", "v", values)
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "outlier_detection", "column_name": "v", "method": "iqr",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass, details %v", vr.Details)
		}
	})

	t.Run("constant column has no outliers", func(t *testing.T) {
		table := testkit.NumericTable("m", "v", []float64{5, 5, 5, 5, 5})
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "outlier_detection", "column_name": "v",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Error("zero-variance data must pass")
		}
	})

	t.Run("too few values errors", func(t *testing.T) {
		table := testkit.NumericTable("m", "v", []float64{1, 2})
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "outlier_detection", "column_name": "v",
		}))
		if _, err := v.ValidateRule(context.Background(), table, r); !errors.Is(err, core.ErrInsufficientData) {
			t.Fatalf("expected ErrInsufficientData, got %v", err)
		}
	})

	t.Run("unknown method rejected", func(t *testing.T) {
		table := testkit.NumericTable("m", "v", []float64{1, 2, 3, 4, 5})
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "outlier_detection", "column_name": "v", "method": "mahalanobis",
		}))
		if _, err := v.ValidateRule(context.Background(), table, r); !errors.Is(err, core.ErrInvalidRule) {
			t.Fatalf("expected ErrInvalidRule, got %v", err)
		}
	})
}

func TestDistributionNormality(t *testing.T) {
	v, _ := NewStatisticalValidator(nil)

	t.Run("symmetric data passes", func(t *testing.T) {
		values := []float64{-2, -1.5, -1, -0.5, 0, 0, 0.5, 1, 1.5, 2}
		table := testkit.NumericTable("m", "v", values)
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "distribution", "column_name": "v",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass for symmetric data, details %v", vr.Details)
		}
	})

	t.Run("details carry test statistics", func(t *testing.T) {
		values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		table := testkit.NumericTable("m", "v", values)
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "distribution", "column_name": "v",
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		for _, key := range []string{"jarque_bera", "p_value", "skewness"} {
			if _, ok := vr.Details[key]; !ok {
				t.Errorf("missing detail %q", key)
			}
		}
	})
}

func TestCorrelation(t *testing.T) {
	v, _ := NewStatisticalValidator(nil)

	table := testkit.NumericTable("m", "x", []float64{1, 2, 3, 4, 5})
	table.Columns = append(table.Columns, "y")
	for i, row := range table.Rows {
		row["y"] = float64(i)*2 + 1 // perfectly linear in x
	}

	t.Run("strong correlation within bounds", func(t *testing.T) {
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "correlation", "column_name": "x", "other_column": "y", "min_correlation": 0.9,
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if !vr.Success {
			t.Errorf("expected pass, details %v", vr.Details)
		}
	})

	t.Run("bound violation fails", func(t *testing.T) {
		r := testkit.MustRule(statRule(t, map[string]interface{}{
			"subtype": "correlation", "column_name": "x", "other_column": "y", "max_correlation": 0.5,
		}))
		vr, err := v.ValidateRule(context.Background(), table, r)
		if err != nil {
			t.Fatalf("ValidateRule: %v", err)
		}
		if vr.Success {
			t.Error("expected failure above max_correlation")
		}
	})
}

func TestMeanRange(t *testing.T) {
	v, _ := NewStatisticalValidator(nil)
	table := testkit.NumericTable("m", "v", []float64{10, 20, 30})

	r := testkit.MustRule(statRule(t, map[string]interface{}{
		"subtype": "mean_range", "column_name": "v", "min_mean": 15, "max_mean": 25,
	}))
	vr, err := v.ValidateRule(context.Background(), table, r)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if !vr.Success {
		t.Errorf("mean 20 should sit inside [15,25], details %v", vr.Details)
	}

	tight := testkit.MustRule(statRule(t, map[string]interface{}{
		"subtype": "mean_range", "column_name": "v", "min_mean": 25,
	}))
	vr, err = v.ValidateRule(context.Background(), table, tight)
	if err != nil {
		t.Fatalf("ValidateRule: %v", err)
	}
	if vr.Success {
		t.Error("mean 20 should fail min_mean 25")
	}
}
