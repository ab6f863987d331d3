package store

import (
	"encoding/json"
	"time"
)

type PokerTable struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	SmallBlind int64     `json:"small_blind"`
	BigBlind   int64     `json:"big_blind"`
	MinBuyIn   int64     `json:"min_buy_in"`
	MaxBuyIn   int64     `json:"max_buy_in"`
	MaxPlayers int       `json:"max_players"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActionRecord is one committed player action. Sequence is assigned by the
// table actor and is gapless within (TableID, HandNumber).
type ActionRecord struct {
	ID          string          `json:"id"`
	TableID     int             `json:"tableId"`
	HandNumber  int             `json:"handNumber"`
	Sequence    int             `json:"actionSequence"`
	Phase       string          `json:"phase"`
	PlayerID    string          `json:"playerId"`
	ActionType  string          `json:"type"`
	Amount      int64           `json:"amount"`
	PotBefore   int64           `json:"potBefore"`
	PotAfter    int64           `json:"potAfter"`
	StateBefore json.RawMessage `json:"gameStateBefore,omitempty"`
	StateAfter  json.RawMessage `json:"gameStateAfter,omitempty"`
	CreatedAt   time.Time       `json:"timestamp"`
}

type ActionFilter struct {
	TableID    int
	HandNumber int // 0 means any hand
	Limit      int
}
