package validators

import (
	"goquality/domain/dataset"
	"goquality/domain/rule"
	"goquality/ports"
)

// FactoryOption customizes the stock factory set
type FactoryOption func(*factoryConfig)

type factoryConfig struct {
	lookupTables []*dataset.Table
}

// WithLookupTable registers a reference table on the relationship
// validator, making it resolvable for in-memory referential integrity
// checks. The execution engine caches validators, so lookup tables must be
// supplied here rather than on a validator instance it hides.
func WithLookupTable(table *dataset.Table) FactoryOption {
	return func(cfg *factoryConfig) {
		cfg.lookupTables = append(cfg.lookupTables, table)
	}
}

// Factories returns the stock validator factory per rule type, the set the
// execution engine is wired with
func Factories(opts ...FactoryOption) map[rule.Type]ports.ValidatorFactory {
	cfg := &factoryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return map[rule.Type]ports.ValidatorFactory{
		rule.TypeSchema: func(adapter ports.WarehouseAdapter) (ports.Validator, error) {
			return NewSchemaValidator(adapter)
		},
		rule.TypeContent: func(adapter ports.WarehouseAdapter) (ports.Validator, error) {
			return NewContentValidator(adapter)
		},
		rule.TypeRelationship: func(adapter ports.WarehouseAdapter) (ports.Validator, error) {
			v, err := NewRelationshipValidator(adapter)
			if err != nil {
				return nil, err
			}
			for _, table := range cfg.lookupTables {
				v.RegisterLookupTable(table)
			}
			return v, nil
		},
		rule.TypeStatistical: func(adapter ports.WarehouseAdapter) (ports.Validator, error) {
			return NewStatisticalValidator(adapter)
		},
		rule.TypeBusinessRule: func(adapter ports.WarehouseAdapter) (ports.Validator, error) {
			return NewBusinessRuleValidator(adapter)
		},
		rule.TypeCustom: func(adapter ports.WarehouseAdapter) (ports.Validator, error) {
			return NewCustomValidator(adapter)
		},
	}
}
