package tablepush

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"holdem-tables/internal/notify"
	"holdem-tables/internal/tablepush/platforms"
	"holdem-tables/internal/turn"

	"github.com/rs/zerolog/log"
)

type tableSubscription struct {
	tableID int
	name    string
	buf     *notify.EventBuffer
	ch      chan notify.StreamEvent
	cancel  context.CancelFunc
}

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Manager follows table event buffers and delivers matching events to
// webhook targets through a small worker pool.
type Manager struct {
	cfg      Config
	clock    turn.Clock
	router   Router
	adapters map[string]platforms.Adapter

	dispatchCh chan pushJob
	retryQ     *retryQueue
	done       chan struct{}

	mu            sync.Mutex
	started       bool
	subscriptions map[int]*tableSubscription
	lastResult    map[int]int
	breakerByKey  map[string]breakerState
}

func NewManager(cfg Config, clock turn.Clock) *Manager {
	if clock == nil {
		clock = turn.RealClock()
	}
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	m := &Manager{
		cfg:   cfg,
		clock: clock,
		adapters: map[string]platforms.Adapter{
			"discord": platforms.NewDiscordAdapter(client),
			"feishu":  platforms.NewFeishuAdapter(client),
		},
		dispatchCh:    make(chan pushJob, cfg.DispatchBuffer),
		done:          make(chan struct{}),
		subscriptions: map[int]*tableSubscription{},
		lastResult:    map[int]int{},
		breakerByKey:  map[string]breakerState{},
	}
	m.retryQ = newRetryQueue(clock, m.dispatchCh, m.done)
	return m
}

// Start launches the workers. They run until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		return
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		close(m.done)
		m.stopAllSubscriptions()
	}()
	log.Info().Int("targets", len(m.cfg.Targets)).Int("workers", m.cfg.Workers).Msg("table_push_started")
}

// Watch subscribes to one table's event buffer.
func (m *Manager) Watch(tableID int, name string, buf *notify.EventBuffer) {
	if !m.cfg.Enabled || buf == nil {
		return
	}
	m.mu.Lock()
	if _, ok := m.subscriptions[tableID]; ok {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := &tableSubscription{tableID: tableID, name: name, buf: buf, ch: buf.Subscribe(), cancel: cancel}
	m.subscriptions[tableID] = sub
	m.mu.Unlock()

	go m.consumeTable(ctx, sub)
}

func (m *Manager) Unwatch(tableID int) {
	m.mu.Lock()
	sub := m.subscriptions[tableID]
	delete(m.subscriptions, tableID)
	delete(m.lastResult, tableID)
	m.mu.Unlock()
	if sub == nil {
		return
	}
	sub.cancel()
	sub.buf.Unsubscribe(sub.ch)
}

func (m *Manager) stopAllSubscriptions() {
	m.mu.Lock()
	subs := make([]*tableSubscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.subscriptions = map[int]*tableSubscription{}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		sub.buf.Unsubscribe(sub.ch)
	}
}

func (m *Manager) consumeTable(ctx context.Context, sub *tableSubscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case ev, ok := <-sub.ch:
			if !ok {
				return
			}
			m.handleEvent(sub.tableID, sub.name, ev)
		}
	}
}

func (m *Manager) handleEvent(tableID int, name string, ev notify.StreamEvent) {
	norm, ok := normalizeEvent(tableID, name, ev)
	if !ok {
		return
	}
	if norm.Type == EventHandOver && !m.firstResult(norm) {
		return
	}
	targets := m.router.MatchTargets(m.cfg.Targets, norm)
	if len(targets) == 0 {
		return
	}
	formatted, ok := FormatMessage(norm)
	if !ok {
		return
	}
	for _, target := range targets {
		if !m.enqueue(pushJob{Target: target, Event: norm, Formatted: formatted}) {
			metricPushDroppedTotal.Add(1)
		}
	}
}

// firstResult reports whether ev is the first sighting of its hand result.
// Every gameState after a hand carries the same lastResult.
func (m *Manager) firstResult(ev TableEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.HandNumber <= m.lastResult[ev.TableID] {
		return false
	}
	m.lastResult[ev.TableID] = ev.HandNumber
	return true
}

func (m *Manager) enqueue(job pushJob) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- job:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

type actionData struct {
	HandNumber int    `json:"handNumber"`
	Phase      string `json:"phase"`
	PlayerName string `json:"playerName"`
	Type       string `json:"type"`
	Amount     int64  `json:"amount"`
	PotAfter   int64  `json:"potAfter"`
}

type seatData struct {
	SeatNumber int    `json:"seatNumber"`
	PlayerName string `json:"playerName"`
}

type gameData struct {
	Players []struct {
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
	} `json:"players"`
	LastResult *struct {
		HandNumber int      `json:"handNumber"`
		Board      []string `json:"board"`
		Winners    []struct {
			PlayerID string `json:"playerId"`
			Amount   int64  `json:"amount"`
			HandName string `json:"handName"`
		} `json:"winners"`
	} `json:"lastResult"`
}

// normalizeEvent maps the buffer's event vocabulary onto push event types.
// Events no webhook renders are skipped.
func normalizeEvent(tableID int, name string, ev notify.StreamEvent) (TableEvent, bool) {
	out := TableEvent{EventID: ev.EventID, ServerTS: ev.ServerTS, TableID: tableID, TableName: name}
	switch ev.Event {
	case notify.EventActionApplied:
		var d actionData
		if !decodeData(ev.Data, &d) {
			return out, false
		}
		out.Type = EventAction
		out.HandNumber = d.HandNumber
		out.Phase = d.Phase
		out.Player = d.PlayerName
		out.Action = d.Type
		out.Amount = d.Amount
		out.Pot = d.PotAfter
	case notify.EventSeatTaken:
		var d seatData
		if !decodeData(ev.Data, &d) {
			return out, false
		}
		out.Type = EventSeat
		out.Seat = d.SeatNumber
		out.Player = d.PlayerName
	case notify.EventTimeoutExpired:
		var d seatData
		if !decodeData(ev.Data, &d) {
			return out, false
		}
		out.Type = EventTimeout
		out.Player = d.PlayerName
	case notify.EventGameState:
		var d gameData
		if !decodeData(ev.Data, &d) || d.LastResult == nil || d.LastResult.HandNumber == 0 {
			return out, false
		}
		names := make(map[string]string, len(d.Players))
		for _, p := range d.Players {
			names[p.PlayerID] = p.Name
		}
		out.Type = EventHandOver
		out.HandNumber = d.LastResult.HandNumber
		out.Board = d.LastResult.Board
		for _, w := range d.LastResult.Winners {
			player := names[w.PlayerID]
			if player == "" {
				player = w.PlayerID
			}
			out.Winners = append(out.Winners, WinnerLine{Player: player, Amount: w.Amount, HandName: w.HandName})
		}
	default:
		return out, false
	}
	return out, true
}

func decodeData(v any, dst any) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
