package turn

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Listener receives timer lifecycle events for fan-out.
type Listener interface {
	TurnStarted(tableID int, identity string, limit time.Duration, deadline time.Time)
	TurnCleared(tableID int, identity string)
	TurnExpired(tableID int, identity string)
}

// FireFunc is invoked once when an armed turn expires. The token identifies
// the arming so the receiver can ignore a fire that raced a manual action.
// The receiver reports the outcome with Expired or Dropped; fire itself sends
// nothing to the listener.
type FireFunc func(tableID int, identity string, token uint64)

type Armed struct {
	Identity string
	Token    uint64
	Limit    time.Duration
	Deadline time.Time
}

type armedTimer struct {
	Armed
	timer Timer
}

// Scheduler keeps at most one decision timer per table.
type Scheduler struct {
	clock    Clock
	listener Listener

	mu     sync.Mutex
	timers map[int]*armedTimer
	seq    uint64
	onFire FireFunc
}

func NewScheduler(clock Clock, listener Listener) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock, listener: listener, timers: map[int]*armedTimer{}}
}

// OnFire sets the expiry callback. It must be set before the first Arm.
func (s *Scheduler) OnFire(fn FireFunc) {
	s.mu.Lock()
	s.onFire = fn
	s.mu.Unlock()
}

// Arm replaces any timer on tableID with a fresh countdown for identity and
// returns its token.
func (s *Scheduler) Arm(tableID int, identity string, d time.Duration) uint64 {
	s.mu.Lock()
	prev := s.timers[tableID]
	if prev != nil {
		prev.timer.Stop()
		delete(s.timers, tableID)
	}
	s.seq++
	token := s.seq
	at := &armedTimer{Armed: Armed{
		Identity: identity,
		Token:    token,
		Limit:    d,
		Deadline: s.clock.Now().Add(d),
	}}
	s.timers[tableID] = at
	at.timer = s.clock.AfterFunc(d, func() { s.fire(tableID, token) })
	s.mu.Unlock()

	if prev != nil {
		s.notifyCleared(tableID, prev.Identity)
	}
	if s.listener != nil {
		s.listener.TurnStarted(tableID, identity, d, at.Deadline)
	}
	metricTimersArmed.Add(1)
	return token
}

// Cancel disarms tableID. It reports whether a timer was armed.
func (s *Scheduler) Cancel(tableID int) bool {
	s.mu.Lock()
	at := s.timers[tableID]
	if at != nil {
		at.timer.Stop()
		delete(s.timers, tableID)
	}
	s.mu.Unlock()
	if at == nil {
		return false
	}
	s.notifyCleared(tableID, at.Identity)
	return true
}

func (s *Scheduler) Current(tableID int) (Armed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.timers[tableID]
	if !ok {
		return Armed{}, false
	}
	return at.Armed, true
}

func (s *Scheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops every armed timer without notifying the listener.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.timers {
		at.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(tableID int, token uint64) {
	s.mu.Lock()
	at := s.timers[tableID]
	if at == nil || at.Token != token {
		s.mu.Unlock()
		return
	}
	delete(s.timers, tableID)
	fn := s.onFire
	s.mu.Unlock()

	log.Info().Int("table_id", tableID).Str("identity_id", at.Identity).Uint64("turn_token", token).Msg("turn_timer_expired")
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Int("table_id", tableID).Str("identity_id", at.Identity).Interface("panic", r).Msg("turn_timeout_callback_panic")
		}
	}()
	fn(tableID, at.Identity, token)
}

// Expired tells the listener a fired turn was applied as a timeout.
func (s *Scheduler) Expired(tableID int, identity string) {
	metricTimersExpired.Add(1)
	if s.listener != nil {
		s.listener.TurnExpired(tableID, identity)
	}
}

// Dropped tells the listener a fired turn was discarded because a manual
// action got there first.
func (s *Scheduler) Dropped(tableID int, identity string) {
	s.notifyCleared(tableID, identity)
}

func (s *Scheduler) notifyCleared(tableID int, identity string) {
	metricTimersCleared.Add(1)
	if s.listener != nil {
		s.listener.TurnCleared(tableID, identity)
	}
}
