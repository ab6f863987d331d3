package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// TestConfig is read by database-backed tests only.
type TestConfig struct {
	PostgresDSN  string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	SchemaPrefix string `env:"TEST_POSTGRES_SCHEMA_PREFIX" envDefault:"holdem_test"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	if err := env.Parse(&cfg); err != nil {
		return TestConfig{}, fmt.Errorf("test database: %w", err)
	}
	return cfg, nil
}
