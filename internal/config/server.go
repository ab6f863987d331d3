package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	TurnTimeoutMS    int `env:"TURN_TIMEOUT_MS" envDefault:"10000"`
	ReconnectGraceMS int `env:"RECONNECT_GRACE_MS" envDefault:"30000"`
	NextHandDelayMS  int `env:"NEXT_HAND_DELAY_MS" envDefault:"3000"`
	OutboxSize       int `env:"OUTBOX_SIZE" envDefault:"64"`

	TablesConfigPath string   `env:"TABLES_CONFIG_PATH"`
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c ServerConfig) TurnTimeout() time.Duration {
	return msOrDefault(c.TurnTimeoutMS, 10*time.Second)
}

func (c ServerConfig) ReconnectGrace() time.Duration {
	return msOrDefault(c.ReconnectGraceMS, 30*time.Second)
}

func (c ServerConfig) NextHandDelay() time.Duration {
	return msOrDefault(c.NextHandDelayMS, 3*time.Second)
}

func msOrDefault(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
