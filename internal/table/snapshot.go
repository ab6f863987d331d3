package table

import (
	"sort"
	"time"

	"holdem-tables/internal/game"
)

type SeatView struct {
	SeatNumber int    `json:"seatNumber"`
	Occupied   bool   `json:"occupied"`
	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Stack      int64  `json:"stack"`
	BuyIn      int64  `json:"buyIn"`
	Connected  bool   `json:"connected"`
}

type ObserverView struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type TurnView struct {
	PlayerID    string    `json:"playerId"`
	PlayerName  string    `json:"playerName"`
	TimeLimitMS int64     `json:"timeLimit"`
	Deadline    time.Time `json:"deadline"`
}

// Snapshot is the post-commit view of a table sent as tableState.
type Snapshot struct {
	TableID    int            `json:"tableId"`
	Name       string         `json:"name"`
	SmallBlind int64          `json:"smallBlind"`
	BigBlind   int64          `json:"bigBlind"`
	MinBuyIn   int64          `json:"minBuyIn"`
	MaxBuyIn   int64          `json:"maxBuyIn"`
	MaxPlayers int            `json:"maxPlayers"`
	Seats      []SeatView     `json:"seats"`
	Observers  []ObserverView `json:"observers"`
	Game       game.State     `json:"game"`
	Turn       *TurnView      `json:"turn,omitempty"`
}

// Summary is the lobby listing row for a table.
type Summary struct {
	TableID       int    `json:"tableId"`
	Name          string `json:"name"`
	SmallBlind    int64  `json:"smallBlind"`
	BigBlind      int64  `json:"bigBlind"`
	MinBuyIn      int64  `json:"minBuyIn"`
	MaxBuyIn      int64  `json:"maxBuyIn"`
	MaxPlayers    int    `json:"maxPlayers"`
	SeatedCount   int    `json:"seatedCount"`
	ObserverCount int    `json:"observerCount"`
	HandNumber    int    `json:"handNumber"`
	InHand        bool   `json:"inHand"`
}

func (s Snapshot) Summary() Summary {
	seated := 0
	for _, seat := range s.Seats {
		if seat.Occupied {
			seated++
		}
	}
	return Summary{
		TableID:       s.TableID,
		Name:          s.Name,
		SmallBlind:    s.SmallBlind,
		BigBlind:      s.BigBlind,
		MinBuyIn:      s.MinBuyIn,
		MaxBuyIn:      s.MaxBuyIn,
		MaxPlayers:    s.MaxPlayers,
		SeatedCount:   seated,
		ObserverCount: len(s.Observers),
		HandNumber:    s.Game.HandNumber,
		InHand:        s.Game.InHand,
	}
}

// HasObserver reports whether identity is in the observer list.
func (s Snapshot) HasObserver(identity string) bool {
	for _, o := range s.Observers {
		if o.PlayerID == identity {
			return true
		}
	}
	return false
}

// SeatOf returns the seat number identity occupies, or 0.
func (s Snapshot) SeatOf(identity string) int {
	for _, seat := range s.Seats {
		if seat.Occupied && seat.PlayerID == identity {
			return seat.SeatNumber
		}
	}
	return 0
}

func (t *Table) snapshot() Snapshot {
	snap := Snapshot{
		TableID:    t.cfg.ID,
		Name:       t.cfg.Name,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		MinBuyIn:   t.cfg.MinBuyIn,
		MaxBuyIn:   t.cfg.MaxBuyIn,
		MaxPlayers: t.cfg.MaxPlayers,
		Seats:      make([]SeatView, 0, len(t.seats)),
		Observers:  make([]ObserverView, 0, len(t.observers)),
		Game:       t.engine.State(),
	}
	for i, s := range t.seats {
		v := SeatView{SeatNumber: i + 1}
		if s != nil {
			v.Occupied = true
			v.PlayerID = s.identity
			v.PlayerName = t.nickname(s.identity)
			v.BuyIn = s.buyIn
			v.Stack, _ = t.engine.Stack(s.identity)
			v.Connected = !t.offline[s.identity]
		}
		snap.Seats = append(snap.Seats, v)
	}
	ids := make([]string, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return t.observers[ids[i]] < t.observers[ids[j]] })
	for _, id := range ids {
		snap.Observers = append(snap.Observers, ObserverView{PlayerID: id, PlayerName: t.nickname(id)})
	}
	if t.turnIdentity != "" {
		snap.Turn = &TurnView{
			PlayerID:    t.turnIdentity,
			PlayerName:  t.nickname(t.turnIdentity),
			TimeLimitMS: t.deps.TurnTimeout.Milliseconds(),
			Deadline:    t.turnDeadline,
		}
	}
	return snap
}

func (t *Table) privateStates() map[string]game.State {
	out := map[string]game.State{}
	for _, s := range t.seats {
		if s != nil {
			out[s.identity] = t.engine.StateFor(s.identity)
		}
	}
	return out
}
