package notify

import (
	"sort"
	"sync"
	"time"

	"holdem-tables/internal/game"
	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
	"holdem-tables/internal/turn"

	"github.com/rs/zerolog/log"
)

const defaultBufferSize = 500

// Hub fans post-commit table changes out to the current connection of every
// room member. Room membership is keyed by identity, so a reconnecting socket
// keeps receiving its tables without rejoining.
type Hub struct {
	registry   *session.Registry
	identities *session.Identities
	bufferSize int

	mu      sync.RWMutex
	rooms   map[int]map[string]struct{}
	buffers map[int]*EventBuffer
}

func NewHub(registry *session.Registry, identities *session.Identities, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		registry:   registry,
		identities: identities,
		bufferSize: bufferSize,
		rooms:      map[int]map[string]struct{}{},
		buffers:    map[int]*EventBuffer{},
	}
}

var (
	_ table.Publisher = (*Hub)(nil)
	_ turn.Listener   = (*Hub)(nil)
)

func (h *Hub) JoinRoom(tableID int, identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[tableID]
	if !ok {
		room = map[string]struct{}{}
		h.rooms[tableID] = room
	}
	room[identity] = struct{}{}
}

func (h *Hub) LeaveRoom(tableID int, identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[tableID]; ok {
		delete(room, identity)
		if len(room) == 0 {
			delete(h.rooms, tableID)
		}
	}
}

// Members lists the identities subscribed to tableID, sorted.
func (h *Hub) Members(tableID int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.rooms[tableID]))
	for id := range h.rooms[tableID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Buffer returns the public event buffer of tableID, creating it on first use.
func (h *Hub) Buffer(tableID int) *EventBuffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.buffers[tableID]
	if !ok {
		buf = NewEventBuffer(tableID, h.bufferSize)
		h.buffers[tableID] = buf
	}
	return buf
}

func (h *Hub) TableState(tableID int, snap table.Snapshot) {
	h.Buffer(tableID).Append(EventTableState, snap)
	h.Broadcast(tableID, EventTableState, snap)
}

// GameState sends each seated member its private view and everyone else the
// public one.
func (h *Hub) GameState(tableID int, public game.State, private map[string]game.State) {
	h.Buffer(tableID).Append(EventGameState, public)
	publicMsg, err := Encode(EventGameState, public)
	if err != nil {
		log.Error().Err(err).Int("table_id", tableID).Msg("notify_encode_failed")
		return
	}
	for _, id := range h.Members(tableID) {
		if view, ok := private[id]; ok {
			h.SendTo(id, EventGameState, view)
			continue
		}
		h.sendRaw(id, EventGameState, publicMsg)
	}
}

func (h *Hub) Location(identity string, loc session.Location) {
	h.SendTo(identity, EventLocationUpdated, map[string]any{"location": loc})
}

func (h *Hub) SeatTaken(tableID, seat int, identity string) {
	data := map[string]any{
		"tableId":    tableID,
		"seatNumber": seat,
		"playerId":   identity,
		"playerName": h.nickname(identity),
	}
	h.Buffer(tableID).Append(EventSeatTaken, data)
	h.Broadcast(tableID, EventSeatTaken, data)
}

func (h *Hub) ActionApplied(tableID int, rec store.ActionRecord) {
	data := map[string]any{
		"tableId":        rec.TableID,
		"handNumber":     rec.HandNumber,
		"actionSequence": rec.Sequence,
		"phase":          rec.Phase,
		"playerId":       rec.PlayerID,
		"playerName":     h.nickname(rec.PlayerID),
		"type":           rec.ActionType,
		"amount":         rec.Amount,
		"potBefore":      rec.PotBefore,
		"potAfter":       rec.PotAfter,
	}
	h.Buffer(tableID).Append(EventActionApplied, data)
	h.Broadcast(tableID, EventActionApplied, data)
}

func (h *Hub) TurnStarted(tableID int, identity string, limit time.Duration, deadline time.Time) {
	h.timerEvent(tableID, EventTimeoutStart, identity, map[string]any{
		"timeLimit": limit.Milliseconds(),
		"deadline":  deadline.UnixMilli(),
	})
}

func (h *Hub) TurnCleared(tableID int, identity string) {
	h.timerEvent(tableID, EventTimeoutCleared, identity, nil)
}

func (h *Hub) TurnExpired(tableID int, identity string) {
	h.timerEvent(tableID, EventTimeoutExpired, identity, nil)
}

func (h *Hub) timerEvent(tableID int, event, identity string, extra map[string]any) {
	data := map[string]any{
		"tableId":    tableID,
		"playerId":   identity,
		"playerName": h.nickname(identity),
	}
	for k, v := range extra {
		data[k] = v
	}
	h.Buffer(tableID).Append(event, data)
	h.Broadcast(tableID, event, data)
}

// Broadcast encodes once and queues the message for every room member.
func (h *Hub) Broadcast(tableID int, event string, data any) {
	msg, err := Encode(event, data)
	if err != nil {
		log.Error().Err(err).Int("table_id", tableID).Str("event", event).Msg("notify_encode_failed")
		return
	}
	for _, id := range h.Members(tableID) {
		h.sendRaw(id, event, msg)
	}
}

// SendTo queues one message for identity's current connection. It reports
// false when the identity is offline or its queue is full.
func (h *Hub) SendTo(identity, event string, data any) bool {
	msg, err := Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("identity_id", identity).Str("event", event).Msg("notify_encode_failed")
		return false
	}
	return h.sendRaw(identity, event, msg)
}

// SendConn queues a message for one specific connection, current or not.
func SendConn(conn *session.Connection, event string, data any) bool {
	if conn == nil || conn.Outbox == nil {
		return false
	}
	msg, err := Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("socket_id", conn.SocketID).Str("event", event).Msg("notify_encode_failed")
		return false
	}
	return deliver(conn, event, msg)
}

func (h *Hub) sendRaw(identity, event string, msg []byte) bool {
	if h.registry == nil {
		return false
	}
	conn, ok := h.registry.Current(identity)
	if !ok {
		return false
	}
	return deliver(conn, event, msg)
}

func deliver(conn *session.Connection, event string, msg []byte) bool {
	if conn.Outbox == nil || !conn.Outbox.Send(msg) {
		metricMessagesDropped.Add(1)
		log.Warn().Str("socket_id", conn.SocketID).Str("identity_id", conn.Identity).Str("event", event).Msg("notify_outbox_full_dropped")
		return false
	}
	metricMessagesSent.Add(1)
	return true
}

func (h *Hub) nickname(identity string) string {
	if h.identities == nil {
		return identity
	}
	return h.identities.Nickname(identity)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, buf := range h.buffers {
		buf.Close()
		delete(h.buffers, id)
	}
}
