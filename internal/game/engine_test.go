package game

import (
	"errors"
	"testing"
)

func newTestEngine(t *testing.T, maxPlayers int, deck []Card, players ...Player) *Engine {
	t.Helper()
	e := NewEngine(Config{MaxPlayers: maxPlayers, SmallBlind: 5, BigBlind: 10}, nil)
	if deck != nil {
		e.newDeck = func() *Deck { return NewStackedDeck(deck) }
	}
	for _, p := range players {
		if err := e.SitDown(p.Seat, p.ID, p.ID, p.Stack); err != nil {
			t.Fatalf("sit %s: %v", p.ID, err)
		}
	}
	return e
}

func mustAct(t *testing.T, e *Engine, id string, a ActionType, amount int64) Outcome {
	t.Helper()
	o, err := e.Act(id, a, amount)
	if err != nil {
		t.Fatalf("%s %s %d: %v", id, a, amount, err)
	}
	return o
}

func TestHeadsUpDealerPostsSmallBlindAndActsFirst(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	o, err := e.StartHand()
	if err != nil {
		t.Fatalf("start hand: %v", err)
	}
	if o.HandNumber != 1 || o.NextActor != "a" {
		t.Fatalf("unexpected start outcome %+v", o)
	}
	st := e.State()
	if st.DealerSeat != 1 || st.Pot != 15 || st.CurrentBet != 10 {
		t.Fatalf("unexpected state %+v", st)
	}

	o = mustAct(t, e, "a", ActionCall, 0)
	if o.Amount != 5 || o.PotBefore != 15 || o.PotAfter != 20 || o.NextActor != "b" {
		t.Fatalf("unexpected call outcome %+v", o)
	}
	o = mustAct(t, e, "b", ActionCheck, 0)
	if !o.StreetChanged || e.Street() != StreetFlop || o.NextActor != "b" {
		t.Fatalf("expected flop with big blind first, got %+v street=%s", o, e.Street())
	}
	if len(e.State().Board) != 3 {
		t.Fatalf("expected 3 board cards")
	}
}

func TestFoldAwardsPotToLastPlayer(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	if _, err := e.StartHand(); err != nil {
		t.Fatalf("start hand: %v", err)
	}
	o := mustAct(t, e, "a", ActionFold, 0)
	if !o.HandOver || o.Result == nil || len(o.Result.Winners) != 1 || o.Result.Winners[0].PlayerID != "b" {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if o.Result.Winners[0].Amount != 15 {
		t.Fatalf("expected pot 15, got %d", o.Result.Winners[0].Amount)
	}
	a, _ := e.Stack("a")
	b, _ := e.Stack("b")
	if a != 995 || b != 1005 {
		t.Fatalf("unexpected stacks a=%d b=%d", a, b)
	}
	if e.InHand() {
		t.Fatal("hand should be over")
	}
}

func TestDealerRotatesBetweenHands(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	e.StartHand()
	mustAct(t, e, "a", ActionFold, 0)
	o, err := e.StartHand()
	if err != nil {
		t.Fatalf("second hand: %v", err)
	}
	if e.State().DealerSeat != 2 || o.NextActor != "b" || o.HandNumber != 2 {
		t.Fatalf("dealer did not rotate: %+v dealer=%d", o, e.State().DealerSeat)
	}
}

func TestRaiseReopensActionThreeHanded(t *testing.T) {
	e := newTestEngine(t, 6, nil,
		Player{ID: "a", Seat: 1, Stack: 1000},
		Player{ID: "b", Seat: 3, Stack: 1000},
		Player{ID: "c", Seat: 5, Stack: 1000},
	)
	o, _ := e.StartHand()
	if o.NextActor != "a" {
		t.Fatalf("under the gun should be the dealer three-handed, got %q", o.NextActor)
	}
	mustAct(t, e, "a", ActionCall, 0)
	mustAct(t, e, "b", ActionCall, 0)
	o = mustAct(t, e, "c", ActionRaise, 40)
	if o.NextActor != "a" || e.State().CurrentBet != 40 || e.State().MinRaise != 30 {
		t.Fatalf("unexpected state after raise %+v %+v", o, e.State())
	}
	if _, err := e.Act("a", ActionRaise, 60); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("raise below minimum should fail, got %v", err)
	}
	mustAct(t, e, "a", ActionCall, 0)
	o = mustAct(t, e, "b", ActionCall, 0)
	if !o.StreetChanged || o.NextActor != "b" {
		t.Fatalf("expected flop starting left of dealer, got %+v", o)
	}
}

func TestActValidation(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	if _, err := e.Act("a", ActionCheck, 0); !errors.Is(err, ErrNoHand) {
		t.Fatalf("expected ErrNoHand, got %v", err)
	}
	e.StartHand()
	if _, err := e.Act("b", ActionCheck, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	if _, err := e.Act("a", ActionCheck, 0); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("check facing the big blind should fail, got %v", err)
	}
	if _, err := e.Act("a", ActionBet, 50); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("bet with a live bet should fail, got %v", err)
	}
	if _, err := e.Act("ghost", ActionFold, 0); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("expected ErrNotSeated, got %v", err)
	}
}

func TestTimeoutActionChecksWhenFree(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	e.StartHand()
	if got := e.TimeoutAction("a"); got != ActionFold {
		t.Fatalf("small blind facing a bet should fold, got %s", got)
	}
	mustAct(t, e, "a", ActionCall, 0)
	if got := e.TimeoutAction("b"); got != ActionCheck {
		t.Fatalf("big blind with the option should check, got %s", got)
	}
}

func TestShowdownPaysBestHand(t *testing.T) {
	deck := []Card{
		{Seven, Clubs}, {Ace, Spades}, {Two, Diamonds}, {Ace, Hearts},
		{King, Spades}, {Queen, Diamonds}, {Nine, Hearts}, {Five, Clubs}, {Three, Spades},
	}
	e := newTestEngine(t, 2, deck, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	e.StartHand()
	mustAct(t, e, "a", ActionCall, 0)
	mustAct(t, e, "b", ActionCheck, 0)
	var o Outcome
	for i := 0; i < 3; i++ {
		mustAct(t, e, "b", ActionCheck, 0)
		o = mustAct(t, e, "a", ActionCheck, 0)
	}
	if !o.HandOver || !o.Result.Showdown {
		t.Fatalf("expected showdown, got %+v", o)
	}
	if len(o.Result.Winners) != 1 || o.Result.Winners[0].PlayerID != "a" || o.Result.Winners[0].Amount != 20 {
		t.Fatalf("unexpected winners %+v", o.Result.Winners)
	}
	if len(o.Result.Shown["b"]) != 2 {
		t.Fatalf("expected b's cards shown, got %+v", o.Result.Shown)
	}
}

func TestAllInBuildsSidePot(t *testing.T) {
	deck := []Card{
		{King, Clubs}, {Seven, Clubs}, {Ace, Spades},
		{King, Diamonds}, {Two, Diamonds}, {Ace, Hearts},
		{Nine, Hearts}, {Five, Clubs}, {Three, Spades}, {Jack, Diamonds}, {Eight, Hearts},
	}
	e := newTestEngine(t, 3, deck,
		Player{ID: "short", Seat: 1, Stack: 100},
		Player{ID: "mid", Seat: 2, Stack: 1000},
		Player{ID: "big", Seat: 3, Stack: 1000},
	)
	e.StartHand()
	mustAct(t, e, "short", ActionRaise, 100)
	mustAct(t, e, "mid", ActionCall, 0)
	o := mustAct(t, e, "big", ActionCall, 0)
	if !o.StreetChanged || o.NextActor != "mid" {
		t.Fatalf("expected flop with mid first, got %+v", o)
	}
	mustAct(t, e, "mid", ActionBet, 200)
	mustAct(t, e, "big", ActionCall, 0)
	for i := 0; i < 2; i++ {
		mustAct(t, e, "mid", ActionCheck, 0)
		o = mustAct(t, e, "big", ActionCheck, 0)
	}
	if !o.HandOver {
		t.Fatalf("expected hand over, got %+v", o)
	}
	want := map[string]int64{"short": 300, "mid": 1100, "big": 700}
	for id, stack := range want {
		got, _ := e.Stack(id)
		if got != stack {
			t.Fatalf("stack %s = %d, want %d", id, got, stack)
		}
	}
}

func TestAllInPreflopRunsOutBoard(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 50}, Player{ID: "b", Seat: 2, Stack: 1000})
	e.StartHand()
	mustAct(t, e, "a", ActionRaise, 50)
	o := mustAct(t, e, "b", ActionCall, 0)
	if !o.HandOver || len(o.Result.Board) != 5 {
		t.Fatalf("expected runout to showdown, got %+v", o)
	}
	a, _ := e.Stack("a")
	b, _ := e.Stack("b")
	if a+b != 1050 {
		t.Fatalf("chips not conserved: a=%d b=%d", a, b)
	}
}

func TestStandUpNonActorKeepsTurn(t *testing.T) {
	e := newTestEngine(t, 3, nil,
		Player{ID: "a", Seat: 1, Stack: 1000},
		Player{ID: "b", Seat: 2, Stack: 1000},
		Player{ID: "c", Seat: 3, Stack: 1000},
	)
	e.StartHand()
	out, stack, err := e.StandUp("b")
	if err != nil {
		t.Fatalf("stand up: %v", err)
	}
	if stack != 995 || out == nil || out.NextActor != "a" || out.HandOver {
		t.Fatalf("unexpected stand up result stack=%d out=%+v", stack, out)
	}
	if e.SeatOf("b") != 0 {
		t.Fatal("b still seated")
	}
	o := mustAct(t, e, "a", ActionFold, 0)
	if !o.HandOver || o.Result.Winners[0].PlayerID != "c" || o.Result.Winners[0].Amount != 15 {
		t.Fatalf("dead blind should go to c, got %+v", o.Result)
	}
}

func TestStandUpActorHeadsUpEndsHand(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	e.StartHand()
	out, _, err := e.StandUp("a")
	if err != nil || out == nil || !out.HandOver {
		t.Fatalf("expected hand over, got %+v err=%v", out, err)
	}
	if e.CanStart() {
		t.Fatal("one player cannot start a hand")
	}
}

func TestSitDownErrors(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 100})
	if err := e.SitDown(1, "b", "b", 100); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("expected ErrSeatTaken, got %v", err)
	}
	if err := e.SitDown(2, "a", "a", 100); !errors.Is(err, ErrAlreadySeated) {
		t.Fatalf("expected ErrAlreadySeated, got %v", err)
	}
	if err := e.SitDown(3, "c", "c", 100); !errors.Is(err, ErrBadSeat) {
		t.Fatalf("expected ErrBadSeat, got %v", err)
	}
}

func TestStateForRevealsOwnCardsOnly(t *testing.T) {
	e := newTestEngine(t, 2, nil, Player{ID: "a", Seat: 1, Stack: 1000}, Player{ID: "b", Seat: 2, Stack: 1000})
	e.StartHand()
	st := e.StateFor("a")
	for _, p := range st.Players {
		if p.PlayerID == "a" && len(p.Hole) != 2 {
			t.Fatalf("expected own hole cards")
		}
		if p.PlayerID == "b" && len(p.Hole) != 0 {
			t.Fatalf("opponent cards leaked")
		}
	}
	if st.CallAmount != 5 || st.MinRaiseTo != 20 {
		t.Fatalf("unexpected call/raise hints %d %d", st.CallAmount, st.MinRaiseTo)
	}
	for _, p := range e.State().Players {
		if len(p.Hole) != 0 {
			t.Fatalf("public state leaked hole cards")
		}
	}
}
