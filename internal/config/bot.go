package config

import "github.com/caarlos0/env/v11"

type BotConfig struct {
	WSURL    string `env:"WS_URL" envDefault:"ws://localhost:8080/ws"`
	APIURL   string `env:"API_URL" envDefault:"http://localhost:8080"`
	Nickname string `env:"BOT_NICKNAME" envDefault:"bot"`
	TableID  int    `env:"BOT_TABLE_ID" envDefault:"1"`
	BuyIn    int64  `env:"BOT_BUY_IN" envDefault:"0"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
