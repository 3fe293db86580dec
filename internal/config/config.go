package config

import (
	"os"
	"strconv"
	"time"

	"goquality/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Warehouse  WarehouseConfig
	Validation ValidationConfig
	Server     ServerConfig
	Metrics    MetricsConfig
	Paths      PathConfig
}

// WarehouseConfig holds warehouse connection settings
type WarehouseConfig struct {
	URL          string
	QueryTimeout time.Duration
}

// ValidationConfig holds the engine defaults
type ValidationConfig struct {
	QualityThreshold float64
	ScoringModel     string
	ExecutionMode    string
	SizeThreshold    int64
	SampleFraction   float64
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// MetricsConfig holds metrics reporting settings
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// PathConfig holds file system paths
type PathConfig struct {
	RulesFile   string
	DatasetFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Warehouse: WarehouseConfig{
			URL:          getEnvOrDefault("DATABASE_URL", ""),
			QueryTimeout: getEnvDurationOrDefault("WAREHOUSE_QUERY_TIMEOUT", 30*time.Second),
		},
		Validation: ValidationConfig{
			QualityThreshold: getEnvFloatOrDefault("QUALITY_THRESHOLD", 0.8),
			ScoringModel:     getEnvOrDefault("SCORING_MODEL", "simple"),
			ExecutionMode:    getEnvOrDefault("EXECUTION_MODE", ""),
			SizeThreshold:    int64(getEnvIntOrDefault("DATASET_SIZE_THRESHOLD", 1_000_000)),
			SampleFraction:   getEnvFloatOrDefault("SAMPLE_FRACTION", 0.10),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Metrics: MetricsConfig{
			Enabled:   getEnvBoolOrDefault("METRICS_ENABLED", true),
			Namespace: getEnvOrDefault("METRICS_NAMESPACE", "goquality"),
		},
		Paths: PathConfig{
			RulesFile:   getEnvOrDefault("RULES_FILE", ""),
			DatasetFile: getEnvOrDefault("DATASET_FILE", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Validation.QualityThreshold < 0 || config.Validation.QualityThreshold > 1 {
		return errors.ConfigInvalid("QUALITY_THRESHOLD must lie in [0,1]")
	}
	if config.Validation.SampleFraction <= 0 || config.Validation.SampleFraction > 1 {
		return errors.ConfigInvalid("SAMPLE_FRACTION must lie in (0,1]")
	}
	if config.Validation.SizeThreshold <= 0 {
		return errors.ConfigInvalid("DATASET_SIZE_THRESHOLD must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
