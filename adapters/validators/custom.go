package validators

import (
	"fmt"

	"goquality/domain/rule"
	"goquality/ports"
)

// CustomValidator extends the content checks with caller-registered
// handlers. Extensions are consulted before the built-in set, so a
// registered handler can override a stock subtype.
type CustomValidator struct {
	ContentValidator
}

// NewCustomValidator creates the custom capability provider with the
// content checks as its base behavior
func NewCustomValidator(adapter ports.WarehouseAdapter) (*CustomValidator, error) {
	content, err := NewContentValidator(adapter)
	if err != nil {
		return nil, err
	}
	v := &CustomValidator{ContentValidator: *content}
	v.ruleType = rule.TypeCustom
	return v, nil
}

// RegisterHandler adds or overrides the in-memory check for a subtype
func (v *CustomValidator) RegisterHandler(subtype string, handler TableCheck) error {
	if subtype == "" || handler == nil {
		return fmt.Errorf("custom handler registration needs a subtype and a handler")
	}
	v.TableChecks[subtype] = handler
	return nil
}

// RegisterWarehouseHandler adds or overrides the pushdown check for a
// subtype
func (v *CustomValidator) RegisterWarehouseHandler(subtype string, handler WarehouseCheck) error {
	if subtype == "" || handler == nil {
		return fmt.Errorf("custom handler registration needs a subtype and a handler")
	}
	v.WarehouseChecks[subtype] = handler
	return nil
}
