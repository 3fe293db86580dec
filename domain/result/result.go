package result

import (
	"fmt"
	"strings"
	"time"

	"goquality/domain/core"
	"goquality/domain/rule"
)

// Status is the recorded outcome of a single rule evaluation
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
)

// ParseStatus parses a string into a Status
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	switch status {
	case StatusPassed, StatusFailed, StatusWarning:
		return status, nil
	}
	return "", fmt.Errorf("unknown validation status %q", s)
}

// ValidationResult records the outcome of evaluating one rule against a
// dataset. A warning is a non-fatal finding: Success stays true so the
// run's pass counts and quality score are unaffected.
type ValidationResult struct {
	RuleID        core.RuleID            `json:"rule_id"`
	RuleType      rule.Type              `json:"rule_type"`
	Dimension     rule.Dimension         `json:"dimension"`
	Status        Status                 `json:"status"`
	Success       bool                   `json:"success"`
	Details       map[string]interface{} `json:"details"`
	Timestamp     core.Timestamp         `json:"timestamp"`
	ExecutionTime float64                `json:"execution_time"`
}

// New creates a result for a rule with status pending resolution. The
// zero Details map keeps serialization stable.
func New(r *rule.Rule) ValidationResult {
	return ValidationResult{
		RuleID:    r.ID,
		RuleType:  r.Type,
		Dimension: r.Dimension,
		Details:   map[string]interface{}{},
		Timestamp: core.Now(),
	}
}

// SetStatus resolves the result. Warnings never fail: Success is forced
// true for StatusWarning regardless of the success argument.
func (vr *ValidationResult) SetStatus(status Status, success bool) {
	vr.Status = status
	if status == StatusWarning {
		vr.Success = true
		return
	}
	vr.Success = success
}

// Resolve sets status from a bare pass/fail bool
func (vr *ValidationResult) Resolve(success bool) {
	if success {
		vr.SetStatus(StatusPassed, true)
	} else {
		vr.SetStatus(StatusFailed, false)
	}
}

// SetDetails attaches the validator's diagnostic payload
func (vr *ValidationResult) SetDetails(details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	vr.Details = details
}

// SetExecutionTime records how long the rule evaluation took
func (vr *ValidationResult) SetExecutionTime(d time.Duration) {
	vr.ExecutionTime = d.Seconds()
}

// Failed builds a failed result carrying an error, used by the engines to
// isolate one broken rule without aborting the batch
func Failed(r *rule.Rule, err error) ValidationResult {
	vr := New(r)
	vr.SetStatus(StatusFailed, false)
	vr.SetDetails(map[string]interface{}{"error": err.Error()})
	return vr
}
