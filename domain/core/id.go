package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RuleID       ID
	ValidationID ID
	DatasetID    ID
)

// String conversions for domain IDs
func (id RuleID) String() string       { return ID(id).String() }
func (id ValidationID) String() string { return ID(id).String() }
func (id DatasetID) String() string    { return ID(id).String() }

// NewRuleID generates a fresh rule identifier with the "rule-" prefix
func NewRuleID() RuleID {
	return RuleID("rule-" + uuid.New().String())
}

// NewValidationID generates a fresh validation run identifier
func NewValidationID() ValidationID {
	return ValidationID(NewID())
}

// ParseRuleID parses a string into RuleID
func ParseRuleID(s string) (RuleID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("rule ID cannot be empty")
	}
	return RuleID(s), nil
}

// ParseValidationID parses a string into ValidationID
func ParseValidationID(s string) (ValidationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("validation ID cannot be empty")
	}
	return ValidationID(s), nil
}
