package table

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"holdem-tables/internal/game"
	"holdem-tables/internal/session"
	"holdem-tables/internal/store"

	"github.com/rs/zerolog/log"
)

// Observe adds identity to the observer set and moves its location to
// Observing. Observing the same table twice is a no-op that returns the
// current snapshot.
func (t *Table) Observe(ctx context.Context, identity string) (Snapshot, error) {
	var snap Snapshot
	err := t.do(ctx, func() error {
		if t.seatOf(identity) != 0 {
			return session.ErrAlreadySeated
		}
		here := session.Observing(t.cfg.ID)
		if _, ok := t.observers[identity]; !ok {
			if cur := t.deps.Locations.Get(identity); cur != here {
				if err := t.deps.Locations.Transition(identity, session.Lobby(), here); err != nil {
					return err
				}
			}
			t.addObserver(identity)
			log.Info().Int("table_id", t.cfg.ID).Str("identity_id", identity).Msg("table_observer_joined")
		}
		t.deps.Publisher.Location(identity, here)
		snap = t.publish()
		return nil
	})
	return snap, err
}

// TakeSeat moves an observer into seatNo with buyIn chips. Either every part
// of the move commits or none does.
func (t *Table) TakeSeat(ctx context.Context, identity string, seatNo int, buyIn int64) (Snapshot, error) {
	var snap Snapshot
	err := t.do(ctx, func() error {
		if t.seatOf(identity) != 0 {
			return session.ErrAlreadySeated
		}
		if seatNo < 1 || seatNo > len(t.seats) {
			return session.ErrInvalidSeat
		}
		if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
			return session.ErrInvalidBuyIn
		}
		if t.seats[seatNo-1] != nil {
			return session.ErrSeatOccupied
		}
		if _, ok := t.observers[identity]; !ok {
			return session.ErrNotObserving
		}
		if err := t.engine.SitDown(seatNo, identity, t.nickname(identity), buyIn); err != nil {
			return mapEngineError(err)
		}
		seated := session.Seated(t.cfg.ID, seatNo)
		if err := t.deps.Locations.Transition(identity, session.Observing(t.cfg.ID), seated); err != nil {
			if _, _, rbErr := t.engine.StandUp(identity); rbErr != nil {
				log.Error().Err(rbErr).Int("table_id", t.cfg.ID).Str("identity_id", identity).Msg("table_seat_rollback_failed")
			}
			return err
		}
		delete(t.observers, identity)
		t.seats[seatNo-1] = &seat{identity: identity, buyIn: buyIn, seatedAt: t.deps.Clock.Now()}
		metricSeatsTaken.Add(1)
		log.Info().
			Int("table_id", t.cfg.ID).
			Str("identity_id", identity).
			Int("seat", seatNo).
			Int64("buy_in", buyIn).
			Msg("table_seat_taken")

		t.deps.Publisher.SeatTaken(t.cfg.ID, seatNo, identity)
		t.deps.Publisher.Location(identity, seated)
		if !t.engine.InHand() && t.nextHand == nil && t.engine.CanStart() {
			t.startHand()
		}
		snap = t.publish()
		return nil
	})
	return snap, err
}

// LeaveSeat stands identity up and returns it to the observer set. A live
// hand is folded first.
func (t *Table) LeaveSeat(ctx context.Context, identity string) (Snapshot, error) {
	var snap Snapshot
	err := t.do(ctx, func() error {
		seatNo, err := t.vacate(identity)
		if err != nil {
			return err
		}
		t.addObserver(identity)
		here := session.Observing(t.cfg.ID)
		if err := t.deps.Locations.Transition(identity, session.Seated(t.cfg.ID, seatNo), here); err != nil {
			log.Warn().Err(err).Int("table_id", t.cfg.ID).Str("identity_id", identity).Msg("table_leave_seat_location_conflict")
		}
		t.deps.Publisher.Location(identity, here)
		snap = t.publish()
		return nil
	})
	return snap, err
}

// LeaveTable removes identity from seats and observers and resets its
// location to Lobby. It reports whether identity was at the table; leaving a
// table one is not at is not an error.
func (t *Table) LeaveTable(ctx context.Context, identity string) (bool, error) {
	var left bool
	err := t.do(ctx, func() error {
		_, observing := t.observers[identity]
		seated := t.seatOf(identity) != 0
		if !seated && !observing {
			return nil
		}
		if seated {
			if _, err := t.vacate(identity); err != nil {
				return err
			}
		}
		delete(t.observers, identity)
		if loc := t.deps.Locations.Get(identity); !loc.IsLobby() {
			if id, _ := loc.Table(); id == t.cfg.ID {
				if err := t.deps.Locations.Transition(identity, loc, session.Lobby()); err != nil {
					log.Warn().Err(err).Int("table_id", t.cfg.ID).Str("identity_id", identity).Msg("table_leave_location_conflict")
				}
			}
		}
		t.deps.Publisher.LeaveRoom(t.cfg.ID, identity)
		t.deps.Publisher.Location(identity, session.Lobby())
		log.Info().Int("table_id", t.cfg.ID).Str("identity_id", identity).Bool("was_seated", seated).Msg("table_left")
		t.publish()
		left = true
		return nil
	})
	return left, err
}

// Act applies a player decision. The turn timer is disarmed in the same
// step, before any timeout for it can be processed.
func (t *Table) Act(ctx context.Context, identity string, action game.ActionType, amount int64) error {
	return t.do(ctx, func() error {
		if t.seatOf(identity) == 0 {
			return session.ErrNotSeated
		}
		if actor, ok := t.engine.Actor(); !ok || actor != identity {
			return session.ErrNotYourTurn
		}
		before := t.engine.State()
		o, err := t.engine.Act(identity, action, amount)
		if err != nil {
			return mapEngineError(err)
		}
		t.cancelTurn()
		metricActionsApplied.Add(1)
		t.record(o, before)
		t.afterStep(o)
		t.publish()
		return nil
	})
}

// Timeout applies the timeout action for the turn identified by token. A
// token that no longer matches the armed turn is ignored.
func (t *Table) Timeout(ctx context.Context, identity string, token uint64) error {
	return t.do(ctx, func() error { return t.timeout(identity, token) })
}

func (t *Table) expire(identity string, token uint64) {
	t.fromTimer("turn_timeout", func() error { return t.timeout(identity, token) })
}

func (t *Table) timeout(identity string, token uint64) error {
	if token == 0 || token != t.turnToken || identity != t.turnIdentity {
		log.Debug().Int("table_id", t.cfg.ID).Str("identity_id", identity).Uint64("turn_token", token).Msg("table_stale_timeout_ignored")
		// A re-armed turn for the same identity already sent its own start.
		if t.turnIdentity != identity {
			t.deps.Timer.Dropped(t.cfg.ID, identity)
		}
		return nil
	}
	t.clearTurn()
	if actor, ok := t.engine.Actor(); !ok || actor != identity {
		t.deps.Timer.Dropped(t.cfg.ID, identity)
		return nil
	}
	t.deps.Timer.Expired(t.cfg.ID, identity)
	o, err := t.autoAct(identity)
	if err != nil {
		return err
	}
	t.afterStep(o)
	t.publish()
	return nil
}

// Disconnected marks a seated identity offline. If it holds the turn, the
// timeout action is applied immediately.
func (t *Table) Disconnected(ctx context.Context, identity string) error {
	return t.do(ctx, func() error {
		if t.seatOf(identity) == 0 {
			return nil
		}
		t.offline[identity] = true
		if t.turnIdentity == identity {
			t.cancelTurn()
			o, err := t.autoAct(identity)
			if err != nil {
				return err
			}
			t.afterStep(o)
		}
		t.publish()
		return nil
	})
}

// Reconnected clears the offline mark and returns the snapshot with the
// identity's private game view.
func (t *Table) Reconnected(ctx context.Context, identity string) (Snapshot, game.State, error) {
	var (
		snap Snapshot
		view game.State
	)
	err := t.do(ctx, func() error {
		if t.offline[identity] {
			delete(t.offline, identity)
			snap = t.publish()
		} else {
			snap = t.snapshot()
		}
		view = t.engine.StateFor(identity)
		return nil
	})
	return snap, view, err
}

func (t *Table) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := t.do(ctx, func() error {
		snap = t.snapshot()
		return nil
	})
	return snap, err
}

// GameStateFor returns the game view identity is allowed to see.
func (t *Table) GameStateFor(ctx context.Context, identity string) (game.State, error) {
	var view game.State
	err := t.do(ctx, func() error {
		view = t.engine.StateFor(identity)
		return nil
	})
	return view, err
}

func (t *Table) addObserver(identity string) {
	t.obsSeq++
	t.observers[identity] = t.obsSeq
	t.deps.Publisher.JoinRoom(t.cfg.ID, identity)
}

// vacate empties identity's seat, folding its hand and moving the turn on
// when needed.
func (t *Table) vacate(identity string) (int, error) {
	seatNo := t.seatOf(identity)
	if seatNo == 0 {
		return 0, session.ErrNotSeated
	}
	if t.turnIdentity == identity {
		t.cancelTurn()
	}
	before := t.engine.State()
	o, stack, err := t.engine.StandUp(identity)
	if err != nil {
		return 0, mapEngineError(err)
	}
	t.seats[seatNo-1] = nil
	delete(t.offline, identity)
	log.Info().Int("table_id", t.cfg.ID).Str("identity_id", identity).Int("seat", seatNo).Int64("stack", stack).Msg("table_seat_vacated")
	if o != nil {
		t.record(*o, before)
		t.afterStep(*o)
	}
	return seatNo, nil
}

func (t *Table) autoAct(identity string) (game.Outcome, error) {
	action := t.engine.TimeoutAction(identity)
	before := t.engine.State()
	o, err := t.engine.Act(identity, action, 0)
	if err != nil {
		log.Error().Err(err).Int("table_id", t.cfg.ID).Str("identity_id", identity).Str("action", string(action)).Msg("table_timeout_action_failed")
		return game.Outcome{}, mapEngineError(err)
	}
	metricTimeoutActions.Add(1)
	log.Info().Int("table_id", t.cfg.ID).Str("identity_id", identity).Str("action", string(action)).Msg("table_timeout_action")
	t.record(o, before)
	return o, nil
}

// afterStep settles the turn after an engine step: offline actors are
// auto-acted, anyone else gets a fresh timer.
func (t *Table) afterStep(o game.Outcome) {
	for {
		if o.HandOver {
			t.cancelTurn()
			t.handFinished(o)
			return
		}
		next := o.NextActor
		switch {
		case next == "":
			t.cancelTurn()
			return
		case t.offline[next]:
			t.cancelTurn()
			no, err := t.autoAct(next)
			if err != nil {
				return
			}
			o = no
		case next == t.turnIdentity:
			return
		default:
			t.armTurn(next)
			return
		}
	}
}

func (t *Table) armTurn(identity string) {
	t.turnToken = t.deps.Timer.Arm(t.cfg.ID, identity, t.deps.TurnTimeout)
	t.turnIdentity = identity
	t.turnDeadline = t.deps.Clock.Now().Add(t.deps.TurnTimeout)
}

func (t *Table) cancelTurn() {
	if t.turnIdentity == "" {
		return
	}
	t.deps.Timer.Cancel(t.cfg.ID)
	t.clearTurn()
}

func (t *Table) clearTurn() {
	t.turnIdentity = ""
	t.turnToken = 0
	t.turnDeadline = time.Time{}
}

// handFinished sends busted players back to the rail and schedules the next
// deal.
func (t *Table) handFinished(o game.Outcome) {
	if o.Result != nil {
		log.Info().Int("table_id", t.cfg.ID).Int("hand_number", o.HandNumber).Bool("showdown", o.Result.Showdown).Int("winners", len(o.Result.Winners)).Msg("table_hand_finished")
	}
	for i, s := range t.seats {
		if s == nil {
			continue
		}
		if stack, ok := t.engine.Stack(s.identity); !ok || stack > 0 {
			continue
		}
		identity := s.identity
		if _, _, err := t.engine.StandUp(identity); err != nil {
			log.Error().Err(err).Int("table_id", t.cfg.ID).Str("identity_id", identity).Msg("table_bust_stand_up_failed")
			continue
		}
		t.seats[i] = nil
		delete(t.offline, identity)
		t.addObserver(identity)
		here := session.Observing(t.cfg.ID)
		if err := t.deps.Locations.Transition(identity, session.Seated(t.cfg.ID, i+1), here); err != nil {
			log.Warn().Err(err).Int("table_id", t.cfg.ID).Str("identity_id", identity).Msg("table_bust_location_conflict")
		}
		t.deps.Publisher.Location(identity, here)
		log.Info().Int("table_id", t.cfg.ID).Str("identity_id", identity).Int("seat", i+1).Msg("table_player_busted")
	}
	t.scheduleNextHand()
}

func (t *Table) scheduleNextHand() {
	if t.nextHand != nil || !t.engine.CanStart() {
		return
	}
	t.nextHand = t.deps.Clock.AfterFunc(t.deps.NextHandDelay, func() {
		t.fromTimer("start_hand", func() error {
			t.nextHand = nil
			if t.engine.InHand() || !t.engine.CanStart() {
				return nil
			}
			t.startHand()
			t.publish()
			return nil
		})
	})
}

func (t *Table) startHand() {
	o, err := t.engine.StartHand()
	if err != nil {
		log.Warn().Err(err).Int("table_id", t.cfg.ID).Msg("table_start_hand_failed")
		return
	}
	metricHandsStarted.Add(1)
	t.seqHand = o.HandNumber
	t.actionSeq = 0
	log.Info().Int("table_id", t.cfg.ID).Int("hand_number", o.HandNumber).Int("players", t.seatedCount()).Msg("table_hand_started")
	t.afterStep(o)
}

// record assigns the next per-hand sequence number and hands the record to
// the recorder and fan-out.
func (t *Table) record(o game.Outcome, before game.State) {
	if o.HandNumber != t.seqHand {
		t.seqHand = o.HandNumber
		t.actionSeq = 0
	}
	t.actionSeq++
	rec := store.ActionRecord{
		ID:          store.NewID(),
		TableID:     t.cfg.ID,
		HandNumber:  o.HandNumber,
		Sequence:    t.actionSeq,
		Phase:       string(o.Street),
		PlayerID:    o.PlayerID,
		ActionType:  string(o.Action),
		Amount:      o.Amount,
		PotBefore:   o.PotBefore,
		PotAfter:    o.PotAfter,
		StateBefore: marshalState(before),
		StateAfter:  marshalState(t.engine.State()),
		CreatedAt:   t.deps.Clock.Now().UTC(),
	}
	t.deps.Recorder.Record(rec)
	t.deps.Publisher.ActionApplied(t.cfg.ID, rec)
}

func (t *Table) publish() Snapshot {
	snap := t.snapshot()
	t.deps.Publisher.TableState(t.cfg.ID, snap)
	t.deps.Publisher.GameState(t.cfg.ID, t.engine.State(), t.privateStates())
	return snap
}

func marshalState(s game.State) json.RawMessage {
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return b
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return session.ErrNotYourTurn
	case errors.Is(err, game.ErrInvalidAction), errors.Is(err, game.ErrNoHand):
		return session.ErrInvalidAction
	case errors.Is(err, game.ErrNotSeated):
		return session.ErrNotSeated
	case errors.Is(err, game.ErrSeatTaken):
		return session.ErrSeatOccupied
	case errors.Is(err, game.ErrBadSeat):
		return session.ErrInvalidSeat
	case errors.Is(err, game.ErrAlreadySeated):
		return session.ErrAlreadySeated
	default:
		return err
	}
}
