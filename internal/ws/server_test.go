package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"holdem-tables/internal/lobby"
	"holdem-tables/internal/notify"
	"holdem-tables/internal/session"
	"holdem-tables/internal/table"
	"holdem-tables/internal/turn"
)

type testServer struct {
	http *httptest.Server
	ids  *session.Identities
	locs *session.LocationStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := session.NewRegistry()
	locs := session.NewLocationStore()
	ids := session.NewIdentities()
	hub := notify.NewHub(reg, ids, 50)
	sched := turn.NewScheduler(turn.RealClock(), hub)
	dir := table.NewDirectory([]table.Config{
		{ID: 1, Name: "Micro", MinBuyIn: 40, MaxBuyIn: 200, SmallBlind: 1, BigBlind: 2, MaxPlayers: 6},
	}, table.Deps{
		Locations:     locs,
		Identities:    ids,
		Publisher:     hub,
		Timer:         sched,
		NextHandDelay: time.Hour,
	}, nil)
	sched.OnFire(dir.Timeout)
	svc := lobby.NewService(lobby.Deps{
		Registry:   reg,
		Locations:  locs,
		Identities: ids,
		Tables:     dir,
		Hub:        hub,
		Grace:      time.Hour,
	})
	srv := NewServer(svc, ids, Options{OutboxSize: 32})
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(func() {
		ts.Close()
		svc.Close()
		dir.Close()
	})
	return &testServer{http: ts, ids: ids, locs: locs}
}

func (s *testServer) dial(t *testing.T, identity string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws?identity_id=" + identity
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(ClientMessage{Event: event, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readUntil reads frames until one with event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if f.Event == event {
			return f
		}
	}
}

func TestHandleWSRejectsUnknownIdentity(t *testing.T) {
	s := newTestServer(t)
	url := "ws" + strings.TrimPrefix(s.http.URL, "http") + "/ws?identity_id=missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestJoinTakeSeatFlow(t *testing.T) {
	s := newTestServer(t)
	p := s.ids.Mint("Alice")
	conn := s.dial(t, p.ID)

	var connected ConnectedPayload
	if err := json.Unmarshal(readUntil(t, conn, notify.EventConnected).Data, &connected); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	if connected.IdentityID != p.ID || connected.Location != "lobby" {
		t.Fatalf("unexpected connected payload %+v", connected)
	}

	sendEvent(t, conn, EventJoinTable, JoinTableRequest{TableID: 1, BuyIn: 100})
	joined := readUntil(t, conn, notify.EventTableJoined)
	if !strings.Contains(string(joined.Data), p.ID) {
		t.Fatalf("tableJoined should list the new observer: %s", joined.Data)
	}

	sendEvent(t, conn, EventTakeSeat, TakeSeatRequest{SeatNumber: 1, BuyIn: 5})
	var seatErr ErrorPayload
	if err := json.Unmarshal(readUntil(t, conn, notify.EventSeatError).Data, &seatErr); err != nil {
		t.Fatalf("decode seatError: %v", err)
	}
	if seatErr.Code != session.ErrInvalidBuyIn.Error() {
		t.Fatalf("expected invalid_buy_in, got %+v", seatErr)
	}

	sendEvent(t, conn, EventTakeSeat, TakeSeatRequest{SeatNumber: 1})
	taken := readUntil(t, conn, notify.EventSeatTaken)
	if !strings.Contains(string(taken.Data), `"seatNumber":1`) {
		t.Fatalf("unexpected seatTaken %s", taken.Data)
	}
	loc := readUntil(t, conn, notify.EventLocationUpdated)
	if !strings.Contains(string(loc.Data), "seat:1:1") {
		t.Fatalf("expected seat location, got %s", loc.Data)
	}
}

func TestMalformedAndUnknownMessages(t *testing.T) {
	s := newTestServer(t)
	p := s.ids.Mint("Alice")
	conn := s.dial(t, p.ID)
	readUntil(t, conn, notify.EventConnected)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var e ErrorPayload
	_ = json.Unmarshal(readUntil(t, conn, notify.EventError).Data, &e)
	if e.Code != "invalid_message" {
		t.Fatalf("expected invalid_message, got %+v", e)
	}

	sendEvent(t, conn, EventFold, ActionRequest{})
	_ = json.Unmarshal(readUntil(t, conn, notify.EventSeatError).Data, &e)
	if e.Code != session.ErrNotSeated.Error() {
		t.Fatalf("expected not_seated, got %+v", e)
	}
}

func TestSecondSocketSupersedesFirst(t *testing.T) {
	s := newTestServer(t)
	p := s.ids.Mint("Alice")
	first := s.dial(t, p.ID)
	readUntil(t, first, notify.EventConnected)

	second := s.dial(t, p.ID)
	readUntil(t, second, notify.EventConnected)
	readUntil(t, first, notify.EventSuperseded)

	_ = first.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected normal close, got %v", err)
			}
			break
		}
	}

	sendEvent(t, second, EventJoinTable, JoinTableRequest{TableID: 1})
	readUntil(t, second, notify.EventTableJoined)
	if s.locs.Get(p.ID) != session.Observing(1) {
		t.Fatalf("expected table:1, got %s", s.locs.Get(p.ID))
	}
}
