package ports

import (
	"context"

	"goquality/domain/dataset"
	"goquality/domain/result"
	"goquality/domain/rule"
	"goquality/domain/run"
)

// Validator is a capability provider: it knows how to execute rules of one
// rule type against a dataset. Implementations must emit exactly one
// outcome per enabled rule they are given - a broken rule becomes a failed
// outcome, never a silent drop.
type Validator interface {
	// Type is the rule type this provider handles
	Type() rule.Type

	// Validate evaluates the given rules, recording progress in execCtx
	Validate(ctx context.Context, ds dataset.Dataset, rules []*rule.Rule, execCtx *run.Context) ([]result.ValidationResult, error)

	// ValidateRule evaluates a single rule, the ad hoc path
	ValidateRule(ctx context.Context, ds dataset.Dataset, r *rule.Rule) (result.ValidationResult, error)

	// Close releases adapter handles the validator holds
	Close() error
}

// ValidatorFactory constructs a validator on first use. The warehouse
// adapter may be nil for purely in-memory execution.
type ValidatorFactory func(adapter WarehouseAdapter) (Validator, error)
