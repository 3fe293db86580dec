package validators

import (
	"context"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	gonumstat "gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"goquality/domain/core"
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/ports"
)

// StatisticalValidator checks distributional properties of numeric
// columns: outliers, normality, correlation, and mean bounds. These
// checks need the raw values in memory, so there is no warehouse
// pushdown; large datasets run them through sampling mode.
type StatisticalValidator struct {
	base
}

// NewStatisticalValidator creates the statistical capability provider
func NewStatisticalValidator(adapter ports.WarehouseAdapter) (*StatisticalValidator, error) {
	v := &StatisticalValidator{}
	v.ruleType = rule.TypeStatistical
	v.adapter = adapter
	v.TableChecks = map[string]TableCheck{
		"outlier_detection": v.checkOutliers,
		"distribution":      v.checkDistribution,
		"correlation":       v.checkCorrelation,
		"mean_range":        v.checkMeanRange,
	}
	v.WarehouseChecks = map[string]WarehouseCheck{}
	return v, nil
}

// numericValues extracts a column's usable numeric values, enforcing a
// minimum sample size
func numericValues(table *dataset.Table, r *rule.Rule, minSamples int) (string, []float64, error) {
	col, err := requireColumn(table, r)
	if err != nil {
		return "", nil, err
	}
	raw, _ := table.NumericColumn(col)
	values := make([]float64, 0, len(raw))
	for _, f := range raw {
		if !math.IsNaN(f) {
			values = append(values, f)
		}
	}
	if len(values) < minSamples {
		return "", nil, fmt.Errorf("%w: column %q has %d numeric values, need %d", core.ErrInsufficientData, col, len(values), minSamples)
	}
	return col, values, nil
}

func (v *StatisticalValidator) checkOutliers(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, values, err := numericValues(table, r, 4)
	if err != nil {
		return Outcome{}, err
	}

	method := r.StringParam("method")
	if method == "" {
		method = "zscore"
	}

	var outliers int
	switch method {
	case "zscore":
		threshold := r.FloatParam("zscore_threshold", 3.0)
		mean, err := stats.Mean(values)
		if err != nil {
			return Outcome{}, err
		}
		stddev, err := stats.StandardDeviation(values)
		if err != nil {
			return Outcome{}, err
		}
		if stddev == 0 {
			outliers = 0
			break
		}
		for _, f := range values {
			if math.Abs(f-mean)/stddev > threshold {
				outliers++
			}
		}
	case "iqr":
		multiplier := r.FloatParam("iqr_multiplier", 1.5)
		quartiles, err := stats.Quartile(values)
		if err != nil {
			return Outcome{}, err
		}
		iqr := quartiles.Q3 - quartiles.Q1
		lower := quartiles.Q1 - multiplier*iqr
		upper := quartiles.Q3 + multiplier*iqr
		for _, f := range values {
			if f < lower || f > upper {
				outliers++
			}
		}
	default:
		return Outcome{}, fmt.Errorf("%w: unknown outlier method %q", core.ErrInvalidRule, method)
	}

	details := map[string]interface{}{"column": col, "method": method, "sample_size": len(values)}
	return violationOutcome(r, len(values), outliers, details)
}

// checkDistribution runs a Jarque-Bera normality test: under normality
// the JB statistic is chi-squared with two degrees of freedom
func (v *StatisticalValidator) checkDistribution(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, values, err := numericValues(table, r, 8)
	if err != nil {
		return Outcome{}, err
	}
	alpha := r.FloatParam("significance_level", 0.05)

	n := float64(len(values))
	skew := gonumstat.Skew(values, nil)
	exKurt := gonumstat.ExKurtosis(values, nil)
	jb := n / 6.0 * (skew*skew + exKurt*exKurt/4.0)

	chi2 := distuv.ChiSquared{K: 2}
	pValue := 1.0 - chi2.CDF(jb)

	details := map[string]interface{}{
		"column":             col,
		"sample_size":        len(values),
		"skewness":           skew,
		"excess_kurtosis":    exKurt,
		"jarque_bera":        jb,
		"p_value":            pValue,
		"significance_level": alpha,
	}
	// failing to reject normality is the passing condition
	if pValue >= alpha {
		return passed(details)
	}
	return failed(details)
}

func (v *StatisticalValidator) checkCorrelation(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	colA := r.ColumnName()
	colB := r.StringParam("other_column")
	if colA == "" || colB == "" {
		return Outcome{}, fmt.Errorf("%w: rule %q needs column_name and other_column parameters", core.ErrInvalidRule, r.Name)
	}
	for _, c := range []string{colA, colB} {
		if !table.HasColumn(c) {
			return Outcome{}, fmt.Errorf("%w: column %q", core.ErrColumnNotFound, c)
		}
	}

	rawA, _ := table.NumericColumn(colA)
	rawB, _ := table.NumericColumn(colB)
	var pairsA, pairsB []float64
	for i := range rawA {
		if !math.IsNaN(rawA[i]) && !math.IsNaN(rawB[i]) {
			pairsA = append(pairsA, rawA[i])
			pairsB = append(pairsB, rawB[i])
		}
	}
	if len(pairsA) < 3 {
		return Outcome{}, fmt.Errorf("%w: %d complete pairs between %q and %q", core.ErrInsufficientData, len(pairsA), colA, colB)
	}

	corr, err := stats.Correlation(pairsA, pairsB)
	if err != nil {
		return Outcome{}, err
	}

	minCorr := r.FloatParam("min_correlation", -1)
	maxCorr := r.FloatParam("max_correlation", 1)
	details := map[string]interface{}{
		"column":          colA,
		"other_column":    colB,
		"correlation":     corr,
		"min_correlation": minCorr,
		"max_correlation": maxCorr,
		"pair_count":      len(pairsA),
	}
	if corr >= minCorr && corr <= maxCorr {
		return passed(details)
	}
	return failed(details)
}

func (v *StatisticalValidator) checkMeanRange(_ context.Context, table *dataset.Table, r *rule.Rule) (Outcome, error) {
	col, values, err := numericValues(table, r, 1)
	if err != nil {
		return Outcome{}, err
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return Outcome{}, err
	}
	minMean := r.FloatParam("min_mean", math.Inf(-1))
	maxMean := r.FloatParam("max_mean", math.Inf(1))

	details := map[string]interface{}{
		"column":      col,
		"mean":        mean,
		"min_mean":    minMean,
		"max_mean":    maxMean,
		"sample_size": len(values),
	}
	if mean >= minMean && mean <= maxMean {
		return passed(details)
	}
	return failed(details)
}
