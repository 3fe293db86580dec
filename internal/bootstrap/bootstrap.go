// Package bootstrap assembles a configured validation engine for the
// command binaries.
package bootstrap

import (
	"log"
	"net/http"

	"goquality/adapters/loader"
	"goquality/adapters/metrics"
	"goquality/adapters/validators"
	"goquality/adapters/warehouse"
	"goquality/domain/run"
	"goquality/internal/config"
	"goquality/internal/engine"
	"goquality/internal/execution"
	"goquality/internal/scoring"
	"goquality/ports"
)

// Build wires config into a ready validation engine plus the optional
// metrics scrape handler
func Build(cfg *config.Config) (*engine.ValidationEngine, http.Handler, error) {
	var adapterFactory execution.AdapterFactory
	if cfg.Warehouse.URL != "" {
		url := cfg.Warehouse.URL
		timeout := cfg.Warehouse.QueryTimeout
		adapterFactory = func() (ports.WarehouseAdapter, error) {
			return warehouse.Connect(url, timeout)
		}
	}

	var sink ports.MetricsSink = metrics.NewNoopSink()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		promSink := metrics.NewPrometheusSink(cfg.Metrics.Namespace)
		sink = promSink
		metricsHandler = promSink.Handler()
	}

	defaults := run.Config{
		SizeThreshold:  cfg.Validation.SizeThreshold,
		SampleFraction: cfg.Validation.SampleFraction,
		QueryTimeout:   cfg.Warehouse.QueryTimeout,
	}
	if cfg.Validation.ExecutionMode != "" {
		mode, err := run.ParseMode(cfg.Validation.ExecutionMode)
		if err != nil {
			return nil, nil, err
		}
		defaults.Mode = mode
	}

	eng := engine.New(engine.Options{
		Factories:      validators.Factories(),
		AdapterFactory: adapterFactory,
		Loader:         loader.NewFileLoader(),
		Metrics:        sink,
		Defaults:       defaults,
	})

	if err := eng.SetQualityThreshold(cfg.Validation.QualityThreshold); err != nil {
		eng.Close()
		return nil, nil, err
	}
	model, err := scoring.ParseModel(cfg.Validation.ScoringModel)
	if err != nil {
		eng.Close()
		return nil, nil, err
	}
	if err := eng.SetScoringModel(model); err != nil {
		eng.Close()
		return nil, nil, err
	}

	if cfg.Paths.RulesFile != "" {
		loaded, warnings, err := eng.LoadRulesFromConfig(cfg.Paths.RulesFile)
		if err != nil {
			eng.Close()
			return nil, nil, err
		}
		for _, warning := range warnings {
			log.Printf("[Bootstrap] rule load warning: %s", warning)
		}
		log.Printf("[Bootstrap] %d rules loaded from %s", loaded, cfg.Paths.RulesFile)
	}

	return eng, metricsHandler, nil
}
