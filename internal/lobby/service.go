package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"holdem-tables/internal/game"
	"holdem-tables/internal/notify"
	"holdem-tables/internal/session"
	"holdem-tables/internal/table"
	"holdem-tables/internal/turn"

	"github.com/rs/zerolog/log"
)

const defaultReconnectGrace = 30 * time.Second

type Deps struct {
	Registry   *session.Registry
	Locations  *session.LocationStore
	Identities *session.Identities
	Tables     *table.Directory
	Hub        *notify.Hub
	Clock      turn.Clock
	Grace      time.Duration
}

// Service runs every socket command for one identity at a time. The
// currency check and the mutation happen under the same identity lock, so a
// superseded socket cannot slip a command in after its replacement arrived.
type Service struct {
	registry   *session.Registry
	locations  *session.LocationStore
	identities *session.Identities
	tables     *table.Directory
	hub        *notify.Hub
	clock      turn.Clock
	grace      time.Duration
	locks      *session.IdentityLocks

	mu           sync.Mutex
	graceTimers  map[string]turn.Timer
	pendingBuyIn map[string]int64
}

func NewService(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = turn.RealClock()
	}
	if deps.Grace <= 0 {
		deps.Grace = defaultReconnectGrace
	}
	return &Service{
		registry:     deps.Registry,
		locations:    deps.Locations,
		identities:   deps.Identities,
		tables:       deps.Tables,
		hub:          deps.Hub,
		clock:        deps.Clock,
		grace:        deps.Grace,
		locks:        session.NewIdentityLocks(),
		graceTimers:  map[string]turn.Timer{},
		pendingBuyIn: map[string]int64{},
	}
}

// Welcome is what a freshly bound socket needs to render its state.
type Welcome struct {
	Profile  session.Profile
	Location session.Location
	Snapshot *table.Snapshot
	Game     *game.State
}

// Joined is the reply to joinTable.
type Joined struct {
	TableID  int
	Snapshot table.Snapshot
	Game     game.State
}

// Connect binds conn to its identity, superseding any previous socket. A
// reconnect inside the grace period keeps the identity's seat.
func (s *Service) Connect(ctx context.Context, conn *session.Connection) (Welcome, error) {
	profile, err := s.identities.Get(conn.Identity)
	if err != nil {
		return Welcome{}, err
	}
	unlock := s.locks.Lock(conn.Identity)
	defer unlock()

	metricConnects.Add(1)
	if prev := s.registry.Register(conn); prev != nil {
		metricSupersedes.Add(1)
		log.Info().Str("identity_id", conn.Identity).Str("socket_id", prev.SocketID).Str("new_socket_id", conn.SocketID).Msg("lobby_connection_superseded")
		notify.SendConn(prev, notify.EventSuperseded, map[string]any{"socketId": prev.SocketID})
		if prev.Outbox != nil {
			prev.Outbox.Close()
		}
	}
	s.stopGrace(conn.Identity)

	w := Welcome{Profile: profile, Location: s.locations.Get(conn.Identity)}
	tableID, ok := w.Location.Table()
	if !ok {
		return w, nil
	}
	t, err := s.tables.Get(tableID)
	if err != nil {
		return w, nil
	}
	snap, view, err := t.Reconnected(ctx, conn.Identity)
	if err != nil {
		// Undo the bind and put the grace countdown back.
		s.registry.Unregister(conn.SocketID)
		s.startGrace(conn.Identity, w.Location)
		log.Warn().Err(err).Str("identity_id", conn.Identity).Int("table_id", tableID).Msg("lobby_resume_failed")
		return w, err
	}
	w.Snapshot = &snap
	w.Game = &view
	log.Info().Str("identity_id", conn.Identity).Str("location", w.Location.String()).Msg("lobby_session_resumed")
	return w, nil
}

// Disconnect unregisters socketID. Only the identity's current socket
// starts the reconnect grace; a superseded socket closing is a no-op.
func (s *Service) Disconnect(ctx context.Context, socketID string) {
	conn, current := s.registry.Unregister(socketID)
	if !current || conn == nil {
		return
	}
	identity := conn.Identity
	unlock := s.locks.Lock(identity)
	defer unlock()
	if s.registry.Online(identity) {
		return
	}

	loc := s.locations.Get(identity)
	if loc.Kind == session.KindSeated {
		if t, err := s.tables.Get(loc.TableID); err == nil {
			if err := t.Disconnected(ctx, identity); err != nil {
				log.Warn().Err(err).Str("identity_id", identity).Int("table_id", loc.TableID).Msg("lobby_disconnect_notify_failed")
			}
		}
	}
	s.startGrace(identity, loc)
}

// startGrace arms the reconnect grace for an offline identity at loc. The
// caller holds the identity lock.
func (s *Service) startGrace(identity string, loc session.Location) {
	if loc.IsLobby() {
		return
	}
	s.mu.Lock()
	if prev, ok := s.graceTimers[identity]; ok {
		prev.Stop()
	}
	s.graceTimers[identity] = s.clock.AfterFunc(s.grace, func() { s.graceExpired(identity) })
	s.mu.Unlock()
	log.Info().Str("identity_id", identity).Str("location", loc.String()).Dur("grace", s.grace).Msg("lobby_reconnect_grace_started")
}

func (s *Service) graceExpired(identity string) {
	unlock := s.locks.Lock(identity)
	defer unlock()
	s.mu.Lock()
	delete(s.graceTimers, identity)
	s.mu.Unlock()
	if s.registry.Online(identity) {
		return
	}
	metricGraceExpired.Add(1)
	loc := s.locations.Get(identity)
	if _, err := s.leave(context.Background(), identity, 0); err != nil {
		log.Warn().Err(err).Str("identity_id", identity).Msg("lobby_grace_leave_failed")
		return
	}
	log.Info().Str("identity_id", identity).Str("location", loc.String()).Msg("lobby_reconnect_grace_expired")
}

func (s *Service) stopGrace(identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.graceTimers[identity]; ok {
		timer.Stop()
		delete(s.graceTimers, identity)
	}
}

// withIdentity resolves socketID and runs fn under the identity lock, after
// confirming the socket is still the identity's current connection.
func (s *Service) withIdentity(socketID string, fn func(identity string) error) error {
	identity, err := s.registry.IdentityOf(socketID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(identity)
	defer unlock()
	if !s.registry.IsCurrent(socketID) {
		return session.ErrStaleConnection
	}
	return fn(identity)
}

// JoinTable moves the identity to tableID as an observer, leaving any other
// table first. buyIn is remembered as the default for a later takeSeat.
func (s *Service) JoinTable(ctx context.Context, socketID string, tableID int, buyIn int64, nickname string) (Joined, error) {
	var out Joined
	err := s.withIdentity(socketID, func(identity string) error {
		t, err := s.tables.Get(tableID)
		if err != nil {
			return err
		}
		if nickname != "" {
			if _, err := s.identities.Rename(identity, nickname); err != nil {
				return err
			}
		}
		loc := s.locations.Get(identity)
		if cur, ok := loc.Table(); ok && cur != tableID {
			if _, err := s.leave(ctx, identity, cur); err != nil {
				return err
			}
			loc = s.locations.Get(identity)
		}
		var snap table.Snapshot
		if loc.Kind == session.KindSeated && loc.TableID == tableID {
			snap, err = t.Snapshot(ctx)
			s.hub.Location(identity, loc)
		} else {
			snap, err = t.Observe(ctx, identity)
		}
		if err != nil {
			return err
		}
		view, err := t.GameStateFor(ctx, identity)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if buyIn > 0 {
			s.pendingBuyIn[identity] = buyIn
		} else {
			delete(s.pendingBuyIn, identity)
		}
		s.mu.Unlock()
		out = Joined{TableID: tableID, Snapshot: snap, Game: view}
		return nil
	})
	return out, err
}

// TakeSeat seats the identity at the table it observes. A zero buyIn falls
// back to the amount given with joinTable.
func (s *Service) TakeSeat(ctx context.Context, socketID string, seatNo int, buyIn int64) (table.Snapshot, error) {
	var snap table.Snapshot
	err := s.withIdentity(socketID, func(identity string) error {
		loc := s.locations.Get(identity)
		switch loc.Kind {
		case session.KindSeated:
			return session.ErrAlreadySeated
		case session.KindLobby:
			return session.ErrNotObserving
		}
		if buyIn <= 0 {
			s.mu.Lock()
			buyIn = s.pendingBuyIn[identity]
			s.mu.Unlock()
		}
		t, err := s.tables.Get(loc.TableID)
		if err != nil {
			return err
		}
		snap, err = t.TakeSeat(ctx, identity, seatNo, buyIn)
		return err
	})
	return snap, err
}

func (s *Service) LeaveSeat(ctx context.Context, socketID string) (table.Snapshot, error) {
	var snap table.Snapshot
	err := s.withIdentity(socketID, func(identity string) error {
		loc := s.locations.Get(identity)
		if loc.Kind != session.KindSeated {
			return session.ErrNotSeated
		}
		t, err := s.tables.Get(loc.TableID)
		if err != nil {
			return err
		}
		snap, err = t.LeaveSeat(ctx, identity)
		return err
	})
	return snap, err
}

// LeaveTable returns the identity to the lobby. tableID 0 means whatever
// table it is at. Leaving when already in the lobby succeeds and reports
// false, with nothing sent to the identity.
func (s *Service) LeaveTable(ctx context.Context, socketID string, tableID int) (bool, error) {
	var left bool
	err := s.withIdentity(socketID, func(identity string) error {
		var err error
		left, err = s.leave(ctx, identity, tableID)
		return err
	})
	return left, err
}

func (s *Service) leave(ctx context.Context, identity string, tableID int) (bool, error) {
	loc := s.locations.Get(identity)
	if tableID == 0 {
		cur, ok := loc.Table()
		if !ok {
			return false, nil
		}
		tableID = cur
	}
	t, err := s.tables.Get(tableID)
	if errors.Is(err, session.ErrTableNotFound) {
		return s.clearOrphan(identity, loc, tableID), nil
	}
	if err != nil {
		return false, err
	}
	left, err := t.LeaveTable(ctx, identity)
	if errors.Is(err, session.ErrTableClosed) {
		return s.clearOrphan(identity, loc, tableID), nil
	}
	if err != nil {
		return false, err
	}
	if !left {
		left = s.clearOrphan(identity, loc, tableID)
	}
	s.mu.Lock()
	delete(s.pendingBuyIn, identity)
	s.mu.Unlock()
	return left, nil
}

// clearOrphan sends identity back to the lobby when its location still
// names tableID but the table no longer holds it.
func (s *Service) clearOrphan(identity string, loc session.Location, tableID int) bool {
	if cur, ok := loc.Table(); !ok || cur != tableID {
		return false
	}
	prev := s.locations.Clear(identity)
	s.hub.Location(identity, session.Lobby())
	log.Info().Str("identity_id", identity).Str("location", prev.String()).Msg("lobby_orphan_location_cleared")
	return true
}

// UpdateLocation applies a client-reported location. Lobby and table:N are
// honoured; a seat can only be reported once it has been taken.
func (s *Service) UpdateLocation(ctx context.Context, socketID, raw string) (session.Location, error) {
	want, err := session.ParseLocation(raw)
	if err != nil {
		return session.Location{}, err
	}
	switch want.Kind {
	case session.KindLobby:
		if _, err := s.LeaveTable(ctx, socketID, 0); err != nil {
			return session.Location{}, err
		}
	case session.KindObserving:
		if _, err := s.JoinTable(ctx, socketID, want.TableID, 0, ""); err != nil {
			return session.Location{}, err
		}
	case session.KindSeated:
		err := s.withIdentity(socketID, func(identity string) error {
			if s.locations.Get(identity) != want {
				return session.ErrInvalidLocation
			}
			s.hub.Location(identity, want)
			return nil
		})
		if err != nil {
			return session.Location{}, err
		}
	}
	identity, err := s.registry.IdentityOf(socketID)
	if err != nil {
		return session.Location{}, err
	}
	return s.locations.Get(identity), nil
}

// Act forwards a game action to the table the identity is seated at.
func (s *Service) Act(ctx context.Context, socketID string, action game.ActionType, amount int64) error {
	return s.withIdentity(socketID, func(identity string) error {
		loc := s.locations.Get(identity)
		if loc.Kind != session.KindSeated {
			return session.ErrNotSeated
		}
		t, err := s.tables.Get(loc.TableID)
		if err != nil {
			return err
		}
		return t.Act(ctx, identity, action, amount)
	})
}

func (s *Service) Location(identity string) (session.Location, error) {
	if !s.identities.Known(identity) {
		return session.Location{}, session.ErrIdentityNotFound
	}
	return s.locations.Get(identity), nil
}

func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.graceTimers {
		timer.Stop()
		delete(s.graceTimers, id)
	}
}
