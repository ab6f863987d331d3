package config

import "github.com/caarlos0/env/v11"

// LogConfig drives logging.Init. Service is stamped on every line so the
// server and bots can share one sink.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	Service     string `env:"LOG_SERVICE" envDefault:"table-server"`
	File        string `env:"LOG_FILE"`
	FileMaxMB   int    `env:"LOG_FILE_MAX_MB" envDefault:"10"`
	FileKeepOld bool   `env:"LOG_FILE_KEEP_OLD" envDefault:"true"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return LogConfig{}, err
	}
	if cfg.FileMaxMB <= 0 {
		cfg.FileMaxMB = 10
	}
	return cfg, nil
}
