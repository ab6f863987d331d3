package table

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"holdem-tables/internal/game"
	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
	"holdem-tables/internal/turn"
)

type fakePublisher struct {
	mu        sync.Mutex
	rooms     map[string]bool
	locations map[string]session.Location
	snapshots int
	seatTaken []int
	actions   []store.ActionRecord
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{rooms: map[string]bool{}, locations: map[string]session.Location{}}
}

func (p *fakePublisher) JoinRoom(_ int, identity string) {
	p.mu.Lock()
	p.rooms[identity] = true
	p.mu.Unlock()
}

func (p *fakePublisher) LeaveRoom(_ int, identity string) {
	p.mu.Lock()
	delete(p.rooms, identity)
	p.mu.Unlock()
}

func (p *fakePublisher) TableState(int, Snapshot) {
	p.mu.Lock()
	p.snapshots++
	p.mu.Unlock()
}

func (p *fakePublisher) GameState(int, game.State, map[string]game.State) {}

func (p *fakePublisher) Location(identity string, loc session.Location) {
	p.mu.Lock()
	p.locations[identity] = loc
	p.mu.Unlock()
}

func (p *fakePublisher) SeatTaken(_ int, seat int, _ string) {
	p.mu.Lock()
	p.seatTaken = append(p.seatTaken, seat)
	p.mu.Unlock()
}

func (p *fakePublisher) ActionApplied(_ int, rec store.ActionRecord) {
	p.mu.Lock()
	p.actions = append(p.actions, rec)
	p.mu.Unlock()
}

func (p *fakePublisher) lastLocation(identity string) session.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locations[identity]
}

func (p *fakePublisher) inRoom(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rooms[identity]
}

func (p *fakePublisher) records() []store.ActionRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]store.ActionRecord(nil), p.actions...)
}

type timerEvents struct {
	mu     sync.Mutex
	events []string
}

func (l *timerEvents) TurnStarted(_ int, identity string, _ time.Duration, _ time.Time) {
	l.add("start:" + identity)
}

func (l *timerEvents) TurnCleared(_ int, identity string) { l.add("cleared:" + identity) }

func (l *timerEvents) TurnExpired(_ int, identity string) { l.add("expired:" + identity) }

func (l *timerEvents) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *timerEvents) count(e string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, got := range l.events {
		if got == e {
			n++
		}
	}
	return n
}

type harness struct {
	table  *Table
	clock  *turn.ManualClock
	sched  *turn.Scheduler
	timers *timerEvents
	pub    *fakePublisher
	locs   *session.LocationStore
}

func newHarness(t *testing.T, maxPlayers int) *harness {
	t.Helper()
	clock := turn.NewManualClock(time.Unix(1700000000, 0))
	timers := &timerEvents{}
	sched := turn.NewScheduler(clock, timers)
	h := &harness{
		clock:  clock,
		sched:  sched,
		timers: timers,
		pub:    newFakePublisher(),
		locs:   session.NewLocationStore(),
	}
	h.table = New(Config{
		ID:         1,
		Name:       "Test",
		MinBuyIn:   40,
		MaxBuyIn:   200,
		SmallBlind: 1,
		BigBlind:   2,
		MaxPlayers: maxPlayers,
	}, Deps{
		Locations:     h.locs,
		Publisher:     h.pub,
		Timer:         sched,
		Clock:         clock,
		TurnTimeout:   10 * time.Second,
		NextHandDelay: time.Hour,
	}, 0)
	sched.OnFire(func(_ int, identity string, token uint64) { h.table.expire(identity, token) })
	t.Cleanup(h.table.Close)
	return h
}

func (h *harness) seat(t *testing.T, identity string, seatNo int) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.table.Observe(ctx, identity); err != nil {
		t.Fatalf("observe %s: %v", identity, err)
	}
	if _, err := h.table.TakeSeat(ctx, identity, seatNo, 100); err != nil {
		t.Fatalf("take seat %s: %v", identity, err)
	}
}

func (h *harness) turn(t *testing.T) string {
	t.Helper()
	snap, err := h.table.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Turn == nil {
		return ""
	}
	return snap.Turn.PlayerID
}

func TestObserveThenTakeSeat(t *testing.T) {
	h := newHarness(t, 6)
	ctx := context.Background()

	snap, err := h.table.Observe(ctx, "alice")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !snap.HasObserver("alice") || h.locs.Get("alice") != session.Observing(1) {
		t.Fatalf("expected alice observing, loc=%s", h.locs.Get("alice"))
	}
	if !h.pub.inRoom("alice") {
		t.Fatalf("expected alice in table room")
	}

	snap, err = h.table.TakeSeat(ctx, "alice", 3, 100)
	if err != nil {
		t.Fatalf("take seat: %v", err)
	}
	if snap.HasObserver("alice") {
		t.Fatalf("alice still listed as observer after sitting")
	}
	if snap.SeatOf("alice") != 3 {
		t.Fatalf("expected seat 3, got %d", snap.SeatOf("alice"))
	}
	if got := h.locs.Get("alice"); got != session.Seated(1, 3) {
		t.Fatalf("expected seat:1:3, got %s", got)
	}
	if got := h.pub.lastLocation("alice"); got != session.Seated(1, 3) {
		t.Fatalf("expected pushed location seat:1:3, got %s", got)
	}
	if snap.Seats[2].Stack != 100 || snap.Seats[2].BuyIn != 100 {
		t.Fatalf("unexpected seat view %+v", snap.Seats[2])
	}
}

func TestObserveIsIdempotent(t *testing.T) {
	h := newHarness(t, 6)
	ctx := context.Background()
	if _, err := h.table.Observe(ctx, "alice"); err != nil {
		t.Fatalf("observe: %v", err)
	}
	snap, err := h.table.Observe(ctx, "alice")
	if err != nil {
		t.Fatalf("second observe: %v", err)
	}
	if len(snap.Observers) != 1 {
		t.Fatalf("expected one observer, got %d", len(snap.Observers))
	}
}

func TestObserveRejectsIdentityAtAnotherTable(t *testing.T) {
	h := newHarness(t, 6)
	if err := h.locs.Transition("alice", session.Lobby(), session.Observing(2)); err != nil {
		t.Fatalf("place: %v", err)
	}
	_, err := h.table.Observe(context.Background(), "alice")
	if !errors.Is(err, session.ErrLocationConflict) {
		t.Fatalf("expected location conflict, got %v", err)
	}
	if h.locs.Get("alice") != session.Observing(2) {
		t.Fatalf("location overwritten")
	}
}

func TestTakeSeatValidation(t *testing.T) {
	h := newHarness(t, 6)
	ctx := context.Background()
	h.seat(t, "alice", 1)
	if _, err := h.table.Observe(ctx, "bob"); err != nil {
		t.Fatalf("observe: %v", err)
	}

	cases := []struct {
		name     string
		identity string
		seat     int
		buyIn    int64
		want     error
	}{
		{"already seated", "alice", 2, 100, session.ErrAlreadySeated},
		{"seat zero", "bob", 0, 100, session.ErrInvalidSeat},
		{"seat past capacity", "bob", 7, 100, session.ErrInvalidSeat},
		{"buy-in below min", "bob", 2, 39, session.ErrInvalidBuyIn},
		{"buy-in above max", "bob", 2, 201, session.ErrInvalidBuyIn},
		{"seat occupied", "bob", 1, 100, session.ErrSeatOccupied},
		{"not observing", "carol", 2, 100, session.ErrNotObserving},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.table.TakeSeat(ctx, tc.identity, tc.seat, tc.buyIn)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if h.locs.Get("bob") != session.Observing(1) {
		t.Fatalf("failed seat attempts changed bob's location to %s", h.locs.Get("bob"))
	}
}

func TestTakeSeatRollsBackOnLocationConflict(t *testing.T) {
	h := newHarness(t, 6)
	ctx := context.Background()
	if _, err := h.table.Observe(ctx, "alice"); err != nil {
		t.Fatalf("observe: %v", err)
	}
	if err := h.locs.Transition("alice", session.Observing(1), session.Observing(9)); err != nil {
		t.Fatalf("move: %v", err)
	}

	_, err := h.table.TakeSeat(ctx, "alice", 1, 100)
	if !errors.Is(err, session.ErrLocationConflict) {
		t.Fatalf("expected location conflict, got %v", err)
	}
	snap, _ := h.table.Snapshot(ctx)
	if snap.Seats[0].Occupied {
		t.Fatalf("seat left occupied after rollback")
	}
	if !snap.HasObserver("alice") {
		t.Fatalf("observer entry lost after rollback")
	}
}

func TestSeatRaceHasSingleWinner(t *testing.T) {
	h := newHarness(t, 6)
	ctx := context.Background()
	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"}
	for _, id := range ids {
		if _, err := h.table.Observe(ctx, id); err != nil {
			t.Fatalf("observe %s: %v", id, err)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = h.table.TakeSeat(ctx, id, 4, 100)
		}(i, id)
	}
	wg.Wait()

	wins, occupied := 0, 0
	winner := ""
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
			winner = ids[i]
		case errors.Is(err, session.ErrSeatOccupied):
			occupied++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 || occupied != len(ids)-1 {
		t.Fatalf("expected 1 winner and %d occupied, got %d/%d", len(ids)-1, wins, occupied)
	}
	snap, _ := h.table.Snapshot(ctx)
	if snap.SeatOf(winner) != 4 {
		t.Fatalf("winner %s not in seat 4", winner)
	}
	for _, id := range ids {
		if id == winner {
			if snap.HasObserver(id) {
				t.Fatalf("winner still observing")
			}
			continue
		}
		if !snap.HasObserver(id) || h.locs.Get(id) != session.Observing(1) {
			t.Fatalf("loser %s should still observe", id)
		}
	}
}

func TestHandStartsAndArmsTimer(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	if h.sched.ArmedCount() != 0 {
		t.Fatalf("timer armed with one player")
	}
	h.seat(t, "bob", 2)

	actor := h.turn(t)
	if actor == "" {
		t.Fatalf("expected a player to act after the hand started")
	}
	armed, ok := h.sched.Current(1)
	if !ok || armed.Identity != actor {
		t.Fatalf("expected timer for %s, got %+v", actor, armed)
	}
	if h.timers.count("start:"+actor) != 1 {
		t.Fatalf("expected one start event for %s", actor)
	}
}

func TestFoldCancelsTurnTimer(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)

	h.clock.Advance(3 * time.Second)
	if err := h.table.Act(context.Background(), actor, game.ActionFold, 0); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if h.sched.ArmedCount() != 0 {
		t.Fatalf("timer still armed after fold")
	}
	if h.timers.count("cleared:"+actor) != 1 {
		t.Fatalf("expected cleared event for %s", actor)
	}

	h.clock.Advance(7 * time.Second)
	if h.timers.count("expired:"+actor) != 0 {
		t.Fatalf("10s timer fired after the fold")
	}
	recs := h.pub.records()
	if len(recs) != 1 || recs[0].ActionType != "fold" || recs[0].PlayerID != actor {
		t.Fatalf("expected a single fold record, got %+v", recs)
	}
}

func TestTurnTimeoutFoldsPlayer(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)

	h.clock.Advance(10 * time.Second)
	if h.timers.count("expired:"+actor) != 1 {
		t.Fatalf("expected expiry for %s", actor)
	}
	recs := h.pub.records()
	if len(recs) != 1 || recs[0].PlayerID != actor {
		t.Fatalf("expected timeout action record, got %+v", recs)
	}
	// Heads-up the small blind acts first preflop and owes chips, so the
	// timeout action is a fold.
	if recs[0].ActionType != string(game.ActionFold) {
		t.Fatalf("expected fold, got %s", recs[0].ActionType)
	}
	snap, _ := h.table.Snapshot(context.Background())
	if snap.Game.InHand {
		t.Fatalf("hand should be over")
	}
}

func TestStaleTimeoutIgnored(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)
	armed, _ := h.sched.Current(1)

	if err := h.table.Timeout(context.Background(), actor, armed.Token+1); err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if h.turn(t) != actor || len(h.pub.records()) != 0 {
		t.Fatalf("stale token changed the hand")
	}
	if h.timers.count("expired:"+actor) != 0 {
		t.Fatalf("stale token reported an expiry")
	}
}

func TestManualActionBeatsQueuedTimeout(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)

	started := make(chan struct{})
	release := make(chan struct{})
	h.table.cmds <- func() {
		close(started)
		<-release
	}
	<-started

	acted := make(chan error, 1)
	go func() { acted <- h.table.Act(context.Background(), actor, game.ActionCall, 0) }()
	waitQueued(t, h.table, 1)

	advanced := make(chan struct{})
	go func() {
		h.clock.Advance(10 * time.Second)
		close(advanced)
	}()
	waitQueued(t, h.table, 2)
	close(release)

	if err := <-acted; err != nil {
		t.Fatalf("call: %v", err)
	}
	<-advanced

	if n := h.timers.count("expired:" + actor); n != 0 {
		t.Fatalf("expected no expired event for %s, got %d", actor, n)
	}
	if n := h.timers.count("cleared:" + actor); n != 1 {
		t.Fatalf("expected one cleared event for %s, got %d", actor, n)
	}
	recs := h.pub.records()
	if len(recs) != 1 || recs[0].ActionType != string(game.ActionCall) || recs[0].PlayerID != actor {
		t.Fatalf("expected only the manual call, got %+v", recs)
	}
}

func waitQueued(t *testing.T, tb *Table, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(tb.cmds) < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d queued commands, have %d", n, len(tb.cmds))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestActOutOfTurnRejected(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)
	other := "alice"
	if actor == "alice" {
		other = "bob"
	}
	if err := h.table.Act(context.Background(), other, game.ActionCall, 0); !errors.Is(err, session.ErrNotYourTurn) {
		t.Fatalf("expected not_your_turn, got %v", err)
	}
	if err := h.table.Act(context.Background(), actor, game.ActionCheck, 0); !errors.Is(err, session.ErrInvalidAction) {
		t.Fatalf("expected invalid_action for a check facing the blind, got %v", err)
	}
	if err := h.table.Act(context.Background(), "carol", game.ActionFold, 0); !errors.Is(err, session.ErrNotSeated) {
		t.Fatalf("expected not_seated, got %v", err)
	}
}

func TestActionSequenceIsGaplessPerHand(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	ctx := context.Background()

	first := h.turn(t)
	if err := h.table.Act(ctx, first, game.ActionCall, 0); err != nil {
		t.Fatalf("call: %v", err)
	}
	second := h.turn(t)
	if err := h.table.Act(ctx, second, game.ActionCheck, 0); err != nil {
		t.Fatalf("check: %v", err)
	}
	third := h.turn(t)
	if err := h.table.Act(ctx, third, game.ActionFold, 0); err != nil {
		t.Fatalf("fold: %v", err)
	}

	recs := h.pub.records()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, rec := range recs {
		if rec.Sequence != i+1 || rec.HandNumber != 1 || rec.TableID != 1 {
			t.Fatalf("record %d: %+v", i, rec)
		}
	}
	if recs[2].Phase != string(game.StreetFlop) {
		t.Fatalf("expected fold on the flop, got %s", recs[2].Phase)
	}
}

func TestLeaveSeatReturnsToObservers(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)

	snap, err := h.table.LeaveSeat(context.Background(), actor)
	if err != nil {
		t.Fatalf("leave seat: %v", err)
	}
	if snap.SeatOf(actor) != 0 || !snap.HasObserver(actor) {
		t.Fatalf("expected %s back on the rail", actor)
	}
	if h.locs.Get(actor) != session.Observing(1) {
		t.Fatalf("expected table:1, got %s", h.locs.Get(actor))
	}
	if h.sched.ArmedCount() != 0 {
		t.Fatalf("timer survived the departure")
	}
	if snap.Game.InHand {
		t.Fatalf("hand should end when one player remains")
	}
	if _, err := h.table.LeaveSeat(context.Background(), actor); !errors.Is(err, session.ErrNotSeated) {
		t.Fatalf("expected not_seated, got %v", err)
	}
}

func TestLeaveTableIsIdempotent(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	ctx := context.Background()

	left, err := h.table.LeaveTable(ctx, "alice")
	if err != nil || !left {
		t.Fatalf("first leave: left=%v err=%v", left, err)
	}
	left, err = h.table.LeaveTable(ctx, "alice")
	if err != nil || left {
		t.Fatalf("second leave: left=%v err=%v", left, err)
	}
	if !h.locs.Get("alice").IsLobby() {
		t.Fatalf("expected lobby, got %s", h.locs.Get("alice"))
	}
	if h.pub.inRoom("alice") {
		t.Fatalf("alice still in room")
	}
	snap, _ := h.table.Snapshot(ctx)
	if snap.SeatOf("alice") != 0 || snap.HasObserver("alice") {
		t.Fatalf("alice still at table")
	}
}

func TestDisconnectedActorIsTimedOutImmediately(t *testing.T) {
	h := newHarness(t, 6)
	h.seat(t, "alice", 1)
	h.seat(t, "bob", 2)
	actor := h.turn(t)

	if err := h.table.Disconnected(context.Background(), actor); err != nil {
		t.Fatalf("disconnected: %v", err)
	}
	recs := h.pub.records()
	if len(recs) != 1 || recs[0].PlayerID != actor {
		t.Fatalf("expected immediate timeout action, got %+v", recs)
	}
	snap, view, err := h.table.Reconnected(context.Background(), actor)
	if err != nil {
		t.Fatalf("reconnected: %v", err)
	}
	if snap.SeatOf(actor) == 0 {
		t.Fatalf("disconnect should not cost the seat")
	}
	for _, s := range snap.Seats {
		if s.PlayerID == actor && !s.Connected {
			t.Fatalf("seat still marked offline")
		}
	}
	if view.HandNumber != 1 {
		t.Fatalf("unexpected private view %+v", view)
	}
}

func TestClosedTableRejectsCommands(t *testing.T) {
	h := newHarness(t, 6)
	h.table.Close()
	if _, err := h.table.Observe(context.Background(), "alice"); !errors.Is(err, session.ErrTableClosed) {
		t.Fatalf("expected table_closed, got %v", err)
	}
}

func TestDirectoryListsTables(t *testing.T) {
	d := NewDirectory([]Config{
		{ID: 2, Name: "B", MinBuyIn: 40, MaxBuyIn: 200, SmallBlind: 1, BigBlind: 2, MaxPlayers: 6},
		{ID: 1, Name: "A", MinBuyIn: 40, MaxBuyIn: 200, SmallBlind: 1, BigBlind: 2, MaxPlayers: 2},
	}, Deps{NextHandDelay: time.Hour}, map[int]int{2: 41})
	defer d.Close()

	list, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].TableID != 1 || list[1].TableID != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[1].HandNumber != 41 {
		t.Fatalf("expected resumed hand number 41, got %d", list[1].HandNumber)
	}
	if _, err := d.Get(99); !errors.Is(err, session.ErrTableNotFound) {
		t.Fatalf("expected table_not_found, got %v", err)
	}
}
