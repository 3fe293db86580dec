package rule

import (
	"github.com/spf13/cast"
)

// Typed accessors over the loosely typed parameter mapping. Config files
// arrive as JSON, so numbers may be float64 where an int is expected and
// vice versa; cast handles the coercion uniformly.

// Subtype returns the check discriminator validators dispatch on
func (r *Rule) Subtype() string {
	return cast.ToString(r.Parameters["subtype"])
}

// ColumnName returns the primary target column of the rule, if any
func (r *Rule) ColumnName() string {
	return cast.ToString(r.Parameters["column_name"])
}

// HasParam reports whether a parameter is present
func (r *Rule) HasParam(key string) bool {
	_, ok := r.Parameters[key]
	return ok
}

// StringParam returns a parameter as a string, "" when absent
func (r *Rule) StringParam(key string) string {
	return cast.ToString(r.Parameters[key])
}

// FloatParam returns a parameter as float64 with a fallback default
func (r *Rule) FloatParam(key string, def float64) float64 {
	if !r.HasParam(key) {
		return def
	}
	return cast.ToFloat64(r.Parameters[key])
}

// IntParam returns a parameter as int with a fallback default
func (r *Rule) IntParam(key string, def int) int {
	if !r.HasParam(key) {
		return def
	}
	return cast.ToInt(r.Parameters[key])
}

// StringSliceParam returns a parameter as []string, nil when absent
func (r *Rule) StringSliceParam(key string) []string {
	if !r.HasParam(key) {
		return nil
	}
	return cast.ToStringSlice(r.Parameters[key])
}
