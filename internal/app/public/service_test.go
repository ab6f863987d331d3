package public

import (
	"context"
	"errors"
	"testing"
	"time"

	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
)

type fixture struct {
	svc  *Service
	dir  *table.Directory
	ids  *session.Identities
	locs *session.LocationStore
	log  *store.MemoryActionLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ids := session.NewIdentities()
	locs := session.NewLocationStore()
	dir := table.NewDirectory([]table.Config{
		{ID: 1, Name: "Micro", MinBuyIn: 40, MaxBuyIn: 200, SmallBlind: 1, BigBlind: 2, MaxPlayers: 6},
		{ID: 2, Name: "Low", MinBuyIn: 100, MaxBuyIn: 500, SmallBlind: 5, BigBlind: 10, MaxPlayers: 9},
	}, table.Deps{Locations: locs, Identities: ids, NextHandDelay: time.Hour}, nil)
	t.Cleanup(dir.Close)
	actions := store.NewMemoryActionLog()
	return &fixture{
		svc:  NewService(dir, actions, ids, locs, session.NewRegistry()),
		dir:  dir,
		ids:  ids,
		locs: locs,
		log:  actions,
	}
}

func TestTablesListsConfiguredTables(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Tables(context.Background())
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].TableID != 1 || resp.Items[1].Name != "Low" {
		t.Fatalf("unexpected tables %+v", resp.Items)
	}
}

func TestTableSnapshot(t *testing.T) {
	f := newFixture(t)
	p := f.ids.Mint("Alice")
	tbl, _ := f.dir.Get(1)
	if _, err := tbl.Observe(context.Background(), p.ID); err != nil {
		t.Fatalf("observe: %v", err)
	}
	snap, err := f.svc.TableSnapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.HasObserver(p.ID) {
		t.Fatalf("expected observer in snapshot %+v", snap.Observers)
	}
	if _, err := f.svc.TableSnapshot(context.Background(), 99); !errors.Is(err, session.ErrTableNotFound) {
		t.Fatalf("expected table_not_found, got %v", err)
	}
	if _, err := f.svc.TableSnapshot(context.Background(), 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestActionsFiltersByHand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i, hand := range []int{1, 1, 2} {
		_ = f.log.AppendAction(ctx, store.ActionRecord{ID: store.NewID(), TableID: 1, HandNumber: hand, Sequence: i + 1, ActionType: "call"})
	}
	_ = f.log.AppendAction(ctx, store.ActionRecord{ID: store.NewID(), TableID: 2, HandNumber: 1, Sequence: 1, ActionType: "fold"})

	resp, err := f.svc.Actions(ctx, 1, 1, 0)
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if len(resp.Items) != 2 || resp.Limit != defaultActionsLimit {
		t.Fatalf("unexpected actions %+v", resp)
	}
	all, _ := f.svc.Actions(ctx, 1, 0, 10)
	if len(all.Items) != 3 {
		t.Fatalf("expected 3 actions for table 1, got %d", len(all.Items))
	}
	empty, _ := f.svc.Actions(ctx, 2, 7, 10)
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", empty.Items)
	}
	if _, err := f.svc.Actions(ctx, 99, 0, 0); !errors.Is(err, session.ErrTableNotFound) {
		t.Fatalf("expected table_not_found, got %v", err)
	}
}

func TestIdentityLocation(t *testing.T) {
	f := newFixture(t)
	p := f.ids.Mint("Bob")
	if err := f.locs.Transition(p.ID, session.Lobby(), session.Seated(2, 4)); err != nil {
		t.Fatalf("place: %v", err)
	}
	resp, err := f.svc.IdentityLocation(p.ID)
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if resp.Location != "seat:2:4" || resp.TableID != 2 || resp.Seat != 4 || resp.Online {
		t.Fatalf("unexpected location %+v", resp)
	}
	if _, err := f.svc.IdentityLocation("nobody"); !errors.Is(err, session.ErrIdentityNotFound) {
		t.Fatalf("expected identity_not_found, got %v", err)
	}
}
