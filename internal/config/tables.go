package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrInvalidTableConfig = errors.New("invalid_table_config")

// TableConfig describes one table as it is served by the lobby.
type TableConfig struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
	MinBuyIn   int64  `json:"min_buy_in"`
	MaxBuyIn   int64  `json:"max_buy_in"`
	MaxPlayers int    `json:"max_players"`
}

type TablesConfig struct {
	Tables []TableConfig `json:"tables"`
}

func DefaultTables() TablesConfig {
	return TablesConfig{Tables: []TableConfig{
		{ID: 1, Name: "Micro", SmallBlind: 1, BigBlind: 2, MinBuyIn: 40, MaxBuyIn: 200, MaxPlayers: 6},
		{ID: 2, Name: "Low", SmallBlind: 5, BigBlind: 10, MinBuyIn: 200, MaxBuyIn: 1000, MaxPlayers: 6},
		{ID: 3, Name: "Heads-Up", SmallBlind: 10, BigBlind: 20, MinBuyIn: 400, MaxBuyIn: 2000, MaxPlayers: 2},
	}}
}

// LoadTables reads the table list from path. An empty path yields the defaults.
func LoadTables(path string) (TablesConfig, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return TablesConfig{}, err
	}
	var cfg TablesConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return TablesConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return TablesConfig{}, err
	}
	return cfg, nil
}

func (c TablesConfig) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("%w: no tables", ErrInvalidTableConfig)
	}
	seen := make(map[int]struct{}, len(c.Tables))
	for _, t := range c.Tables {
		if t.ID <= 0 {
			return fmt.Errorf("%w: table id %d", ErrInvalidTableConfig, t.ID)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("%w: duplicate table id %d", ErrInvalidTableConfig, t.ID)
		}
		seen[t.ID] = struct{}{}
		if t.SmallBlind <= 0 || t.BigBlind < t.SmallBlind {
			return fmt.Errorf("%w: table %d blinds", ErrInvalidTableConfig, t.ID)
		}
		if t.MinBuyIn <= 0 || t.MaxBuyIn < t.MinBuyIn {
			return fmt.Errorf("%w: table %d buy-in range", ErrInvalidTableConfig, t.ID)
		}
		if t.MaxPlayers < 2 || t.MaxPlayers > 9 {
			return fmt.Errorf("%w: table %d max players", ErrInvalidTableConfig, t.ID)
		}
	}
	return nil
}
