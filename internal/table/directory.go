package table

import (
	"context"
	"math/rand"
	"sort"

	"holdem-tables/internal/config"
	"holdem-tables/internal/session"
)

// Directory owns every table for the life of the process.
type Directory struct {
	tables map[int]*Table
	order  []int
}

// ConfigsFrom converts loaded table definitions.
func ConfigsFrom(cfgs []config.TableConfig) []Config {
	out := make([]Config, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, Config{
			ID:         c.ID,
			Name:       c.Name,
			MinBuyIn:   c.MinBuyIn,
			MaxBuyIn:   c.MaxBuyIn,
			SmallBlind: c.SmallBlind,
			BigBlind:   c.BigBlind,
			MaxPlayers: c.MaxPlayers,
		})
	}
	return out
}

// NewDirectory starts one actor per config. lastHands seeds each table's hand
// counter so numbering continues across restarts.
func NewDirectory(cfgs []Config, deps Deps, lastHands map[int]int) *Directory {
	d := &Directory{tables: make(map[int]*Table, len(cfgs))}
	for _, c := range cfgs {
		td := deps
		if deps.Rand != nil {
			td.Rand = rand.New(rand.NewSource(deps.Rand.Int63()))
		}
		d.tables[c.ID] = New(c, td, lastHands[c.ID])
		d.order = append(d.order, c.ID)
	}
	sort.Ints(d.order)
	return d
}

func (d *Directory) Get(id int) (*Table, error) {
	t, ok := d.tables[id]
	if !ok {
		return nil, session.ErrTableNotFound
	}
	return t, nil
}

func (d *Directory) IDs() []int {
	return append([]int(nil), d.order...)
}

func (d *Directory) List(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0, len(d.order))
	for _, id := range d.order {
		snap, err := d.tables[id].Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, snap.Summary())
	}
	return out, nil
}

// Timeout routes a scheduler expiry to its table. It has the turn.FireFunc
// signature.
func (d *Directory) Timeout(tableID int, identity string, token uint64) {
	if t, ok := d.tables[tableID]; ok {
		t.expire(identity, token)
	}
}

func (d *Directory) Close() {
	for _, id := range d.order {
		d.tables[id].Close()
	}
}
