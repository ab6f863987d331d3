package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"holdem-tables/internal/game"
	"holdem-tables/internal/lobby"
	"holdem-tables/internal/notify"
	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	commandTimeout = 5 * time.Second
)

type Options struct {
	OutboxSize     int
	AllowedOrigins []string
}

type Server struct {
	svc        *lobby.Service
	identities *session.Identities
	upgrader   websocket.Upgrader
	outboxSize int
}

func NewServer(svc *lobby.Service, identities *session.Identities, opts Options) *Server {
	s := &Server{svc: svc, identities: identities, outboxSize: opts.OutboxSize}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := map[string]struct{}{}
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

type client struct {
	srv    *Server
	conn   *websocket.Conn
	socket *session.Connection
	out    *outbox
}

// HandleWS upgrades a request carrying ?identity_id= into a table session
// socket. Unknown identities are refused before the upgrade.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get("identity_id"))
	if identity == "" || !s.identities.Known(identity) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"identity_not_found"}`))
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("identity_id", identity).Msg("ws_upgrade_failed")
		return
	}
	out := newOutbox(s.outboxSize)
	c := &client{
		srv:  s,
		conn: conn,
		out:  out,
		socket: &session.Connection{
			SocketID:    store.NewID(),
			Identity:    identity,
			ConnectedAt: time.Now(),
			Outbox:      out,
		},
	}
	metricWSConnectionsTotal.Add(1)
	metricWSConnectionsActive.Add(1)
	go c.writePump()

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	welcome, err := s.svc.Connect(ctx, c.socket)
	cancel()
	if err != nil {
		c.replyError("connect", err)
		out.Close()
		metricWSConnectionsActive.Add(-1)
		return
	}
	log.Info().Str("identity_id", identity).Str("socket_id", c.socket.SocketID).Str("location", welcome.Location.String()).Msg("ws_connected")
	c.send(notify.EventConnected, ConnectedPayload{
		SocketID:   c.socket.SocketID,
		IdentityID: identity,
		Nickname:   welcome.Profile.Nickname,
		Location:   welcome.Location.String(),
	})
	c.send(notify.EventLocationUpdated, map[string]any{"location": welcome.Location})
	if welcome.Snapshot != nil {
		c.send(notify.EventTableState, welcome.Snapshot)
	}
	if welcome.Game != nil {
		c.send(notify.EventGameState, welcome.Game)
	}
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.srv.svc.Disconnect(context.Background(), c.socket.SocketID)
		c.out.Close()
		_ = c.conn.Close()
		metricWSConnectionsActive.Add(-1)
		log.Info().Str("identity_id", c.socket.Identity).Str("socket_id", c.socket.SocketID).Msg("ws_disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("socket_id", c.socket.SocketID).Msg("ws_read_failed")
			}
			return
		}
		metricWSMessagesIn.Add(1)
		c.handle(msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.out.ch:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.out.done:
			for {
				select {
				case msg := <-c.out.ch:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var errBadMessage = errors.New("invalid_message")

func (c *client) handle(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Event == "" {
		metricWSBadMessages.Add(1)
		c.send(notify.EventError, ErrorPayload{Code: errBadMessage.Error(), Message: "Malformed message"})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	svc := c.srv.svc
	socketID := c.socket.SocketID
	var err error
	switch msg.Event {
	case EventJoinTable:
		var req JoinTableRequest
		if err = decode(msg.Data, &req); err != nil {
			break
		}
		var joined lobby.Joined
		joined, err = svc.JoinTable(ctx, socketID, req.TableID, req.BuyIn, req.Nickname)
		if err == nil {
			c.send(notify.EventTableJoined, map[string]any{
				"tableId":   joined.TableID,
				"seats":     joined.Snapshot.Seats,
				"observers": joined.Snapshot.Observers,
				"snapshot":  joined.Snapshot,
			})
			c.send(notify.EventGameState, joined.Game)
		}
	case EventTakeSeat:
		var req TakeSeatRequest
		if err = decode(msg.Data, &req); err != nil {
			break
		}
		_, err = svc.TakeSeat(ctx, socketID, req.SeatNumber, req.BuyIn)
	case EventLeaveSeat:
		_, err = svc.LeaveSeat(ctx, socketID)
	case EventLeaveTable:
		var req LeaveTableRequest
		if err = decode(msg.Data, &req); err != nil {
			break
		}
		var left bool
		if left, err = svc.LeaveTable(ctx, socketID, req.TableID); err == nil && left {
			c.send(notify.EventTableLeft, map[string]any{"tableId": req.TableID})
		}
	case EventUpdateLocation:
		var req UpdateLocationRequest
		if err = decode(msg.Data, &req); err != nil {
			break
		}
		var loc session.Location
		if loc, err = svc.UpdateLocation(ctx, socketID, req.Location); err == nil {
			c.send(notify.EventLocationUpdated, map[string]any{"location": loc})
		}
	case EventBet, EventCall, EventRaise, EventFold, EventCheck:
		var req ActionRequest
		if err = decode(msg.Data, &req); err != nil {
			break
		}
		action, _ := game.ParseAction(msg.Event)
		err = svc.Act(ctx, socketID, action, req.Amount)
	default:
		err = errBadMessage
	}
	if err != nil {
		c.replyError(msg.Event, err)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		metricWSBadMessages.Add(1)
		return errBadMessage
	}
	return nil
}

// replyError answers the originating socket only. Seat errors use their own
// event so clients can show them next to the seat picker.
func (c *client) replyError(request string, err error) {
	metricWSCommandErrors.Add(1)
	code := session.Code(err)
	msg := session.Message(err)
	if errors.Is(err, errBadMessage) {
		code, msg = errBadMessage.Error(), "Malformed message"
	}
	log.Debug().Err(err).Str("socket_id", c.socket.SocketID).Str("request", request).Str("code", code).Msg("ws_command_rejected")
	if session.IsSeatError(err) {
		c.send(notify.EventSeatError, ErrorPayload{Code: code, Message: msg, Request: request})
		return
	}
	c.send(notify.EventError, ErrorPayload{Code: code, Message: msg, Request: request})
}

func (c *client) send(event string, data any) {
	notify.SendConn(c.socket, event, data)
}
