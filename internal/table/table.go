package table

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"holdem-tables/internal/game"
	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
	"holdem-tables/internal/turn"

	"github.com/rs/zerolog/log"
)

const (
	defaultTurnTimeout   = 10 * time.Second
	defaultNextHandDelay = 3 * time.Second
	commandQueueSize     = 64
)

type Config struct {
	ID         int
	Name       string
	MinBuyIn   int64
	MaxBuyIn   int64
	SmallBlind int64
	BigBlind   int64
	MaxPlayers int
}

// Publisher receives post-commit table changes for fan-out. Implementations
// must not block.
type Publisher interface {
	JoinRoom(tableID int, identity string)
	LeaveRoom(tableID int, identity string)
	TableState(tableID int, snap Snapshot)
	GameState(tableID int, public game.State, private map[string]game.State)
	Location(identity string, loc session.Location)
	SeatTaken(tableID, seat int, identity string)
	ActionApplied(tableID int, rec store.ActionRecord)
}

// Engine is the game collaborator a table drives. *game.Engine implements it.
type Engine interface {
	HandNumber() int
	SetHandNumber(n int)
	InHand() bool
	Actor() (string, bool)
	Stack(id string) (int64, bool)
	SitDown(seat int, id, name string, stack int64) error
	StandUp(id string) (*game.Outcome, int64, error)
	CanStart() bool
	StartHand() (game.Outcome, error)
	Act(id string, action game.ActionType, amount int64) (game.Outcome, error)
	TimeoutAction(id string) game.ActionType
	State() game.State
	StateFor(id string) game.State
}

type Recorder interface {
	Record(rec store.ActionRecord)
}

type TurnTimer interface {
	Arm(tableID int, identity string, d time.Duration) uint64
	Cancel(tableID int) bool
	Expired(tableID int, identity string)
	Dropped(tableID int, identity string)
}

type Deps struct {
	Locations     *session.LocationStore
	Identities    *session.Identities
	Publisher     Publisher
	Recorder      Recorder
	Timer         TurnTimer
	Clock         turn.Clock
	Rand          *rand.Rand
	TurnTimeout   time.Duration
	NextHandDelay time.Duration

	// NewEngine overrides the default *game.Engine, mostly for tests.
	NewEngine func(game.Config, *rand.Rand) Engine
}

type seat struct {
	identity string
	buyIn    int64
	seatedAt time.Time
}

// Table is the single writer for one table's seats, observers, engine and
// turn timer. Every mutation runs on its actor goroutine.
type Table struct {
	cfg  Config
	deps Deps

	engine    Engine
	seats     []*seat
	observers map[string]uint64
	obsSeq    uint64
	offline   map[string]bool

	turnIdentity string
	turnToken    uint64
	turnDeadline time.Time
	seqHand      int
	actionSeq    int
	nextHand     turn.Timer

	cmds      chan func()
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New(cfg Config, deps Deps, lastHandNumber int) *Table {
	if cfg.MaxPlayers < 2 {
		cfg.MaxPlayers = 2
	}
	if cfg.MaxPlayers > 9 {
		cfg.MaxPlayers = 9
	}
	if deps.Clock == nil {
		deps.Clock = turn.RealClock()
	}
	if deps.TurnTimeout <= 0 {
		deps.TurnTimeout = defaultTurnTimeout
	}
	if deps.NextHandDelay <= 0 {
		deps.NextHandDelay = defaultNextHandDelay
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano() + int64(cfg.ID)))
	}
	if deps.Locations == nil {
		deps.Locations = session.NewLocationStore()
	}
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.NewEngine == nil {
		deps.NewEngine = func(c game.Config, rnd *rand.Rand) Engine { return game.NewEngine(c, rnd) }
	}
	eng := deps.NewEngine(game.Config{
		MaxPlayers: cfg.MaxPlayers,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
	}, deps.Rand)
	eng.SetHandNumber(lastHandNumber)
	t := &Table{
		cfg:       cfg,
		deps:      deps,
		engine:    eng,
		seats:     make([]*seat, cfg.MaxPlayers),
		observers: map[string]uint64{},
		offline:   map[string]bool{},
		cmds:      make(chan func(), commandQueueSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if t.deps.Timer == nil {
		sched := turn.NewScheduler(t.deps.Clock, nil)
		sched.OnFire(func(_ int, identity string, token uint64) { t.expire(identity, token) })
		t.deps.Timer = sched
	}
	go t.run()
	return t
}

func (t *Table) ID() int { return t.cfg.ID }

func (t *Table) Config() Config { return t.cfg }

func (t *Table) run() {
	defer close(t.done)
	for {
		select {
		case fn := <-t.cmds:
			fn()
		case <-t.stop:
			return
		}
	}
}

// do runs fn on the actor and waits for its result. A panic inside fn is
// logged and returned as an error; the actor keeps serving.
func (t *Table) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	cmd := func() { errc <- t.safe(fn) }
	select {
	case t.cmds <- cmd:
	case <-t.stop:
		return session.ErrTableClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-t.done:
		return session.ErrTableClosed
	}
}

// fromTimer runs fn on the actor on behalf of a timer callback. Failures are
// logged; there is no caller to report them to.
func (t *Table) fromTimer(name string, fn func() error) {
	if err := t.do(context.Background(), fn); err != nil {
		log.Warn().Err(err).Int("table_id", t.cfg.ID).Str("command", name).Msg("table_timer_command_failed")
	}
}

func (t *Table) safe(fn func() error) (err error) {
	metricTableCommands.Add(1)
	defer func() {
		if r := recover(); r != nil {
			metricTableCommandPanics.Add(1)
			log.Error().Int("table_id", t.cfg.ID).Interface("panic", r).Msg("table_command_panic")
			err = fmt.Errorf("table %d: command panic: %v", t.cfg.ID, r)
		}
	}()
	return fn()
}

// Close stops the actor and disarms its timers.
func (t *Table) Close() {
	t.closeOnce.Do(func() {
		_ = t.do(context.Background(), func() error {
			t.cancelTurn()
			if t.nextHand != nil {
				t.nextHand.Stop()
				t.nextHand = nil
			}
			return nil
		})
		close(t.stop)
		<-t.done
	})
}

func (t *Table) nickname(identity string) string {
	if t.deps.Identities == nil {
		return identity
	}
	return t.deps.Identities.Nickname(identity)
}

func (t *Table) seatOf(identity string) int {
	for i, s := range t.seats {
		if s != nil && s.identity == identity {
			return i + 1
		}
	}
	return 0
}

func (t *Table) seatedCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil {
			n++
		}
	}
	return n
}

type nopPublisher struct{}

func (nopPublisher) JoinRoom(int, string) {}
func (nopPublisher) LeaveRoom(int, string) {}
func (nopPublisher) TableState(int, Snapshot) {}
func (nopPublisher) GameState(int, game.State, map[string]game.State) {}
func (nopPublisher) Location(string, session.Location) {}
func (nopPublisher) SeatTaken(int, int, string) {}
func (nopPublisher) ActionApplied(int, store.ActionRecord) {}

type nopRecorder struct{}

func (nopRecorder) Record(store.ActionRecord) {}
