package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"holdem-tables/internal/config"
	"holdem-tables/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type seatView struct {
	SeatNumber int    `json:"seatNumber"`
	Occupied   bool   `json:"occupied"`
	PlayerID   string `json:"playerId"`
}

type tableJoined struct {
	TableID  int        `json:"tableId"`
	Seats    []seatView `json:"seats"`
	Snapshot struct {
		MinBuyIn int64 `json:"minBuyIn"`
	} `json:"snapshot"`
}

type gameState struct {
	HandNumber int    `json:"handNumber"`
	InHand     bool   `json:"inHand"`
	Actor      string `json:"actor"`
	CallAmount int64  `json:"callAmount"`
}

type bot struct {
	cfg      config.BotConfig
	conn     *websocket.Conn
	identity string
	rnd      *rand.Rand
	tried    map[int]bool
	buyIn    int64
	lastTurn string
}

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if os.Getenv("LOG_SERVICE") == "" {
		logCfg.Service = "dumb-bot"
	}
	logging.Init(logCfg)
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	identity, err := registerIdentity(cfg.APIURL, cfg.Nickname)
	if err != nil {
		log.Fatal().Err(err).Msg("register identity failed")
	}
	wsURL, err := socketURL(cfg.WSURL, identity)
	if err != nil {
		log.Fatal().Err(err).Msg("bad WS_URL")
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("dial failed")
	}
	defer conn.Close()

	b := &bot{
		cfg:      cfg,
		conn:     conn,
		identity: identity,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		tried:    map[int]bool{},
		buyIn:    cfg.BuyIn,
	}
	log.Info().Str("identity_id", identity).Int("table_id", cfg.TableID).Msg("bot_connected")
	b.send("joinTable", map[string]any{"tableId": cfg.TableID, "buyIn": cfg.BuyIn, "nickname": cfg.Nickname})
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			log.Info().Err(err).Msg("bot_disconnected")
			return
		}
		b.handle(msg)
	}
}

func (b *bot) handle(msg envelope) {
	switch msg.Event {
	case "tableJoined":
		var joined tableJoined
		if err := json.Unmarshal(msg.Data, &joined); err != nil {
			return
		}
		if b.buyIn <= 0 {
			b.buyIn = joined.Snapshot.MinBuyIn
		}
		b.sit(joined.Seats)
	case "seatError":
		log.Warn().RawJSON("error", msg.Data).Msg("bot_seat_error")
	case "tableState":
		var snap struct {
			Seats []seatView `json:"seats"`
		}
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			return
		}
		// Busted players are sent back to observers; sit again at a fresh seat.
		if !b.seated(snap.Seats) {
			b.sit(snap.Seats)
		} else {
			b.tried = map[int]bool{}
		}
	case "gameState":
		var st gameState
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			return
		}
		if !st.InHand || st.Actor != b.identity {
			return
		}
		turn := fmt.Sprintf("%d/%d", st.HandNumber, st.CallAmount)
		if turn == b.lastTurn {
			return
		}
		b.lastTurn = turn
		b.send(decide(b.rnd, st), map[string]any{})
	case "superseded":
		log.Warn().Msg("bot_superseded")
	}
}

func (b *bot) seated(seats []seatView) bool {
	for _, s := range seats {
		if s.PlayerID == b.identity {
			return true
		}
	}
	return false
}

// sit asks for the first free seat not tried yet.
func (b *bot) sit(seats []seatView) {
	for _, s := range seats {
		if s.Occupied || b.tried[s.SeatNumber] {
			continue
		}
		b.tried[s.SeatNumber] = true
		b.send("takeSeat", map[string]any{"seatNumber": s.SeatNumber, "buyIn": b.buyIn})
		return
	}
}

func (b *bot) send(event string, data any) {
	if err := b.conn.WriteJSON(outbound{Event: event, Data: data}); err != nil {
		log.Warn().Err(err).Str("event", event).Msg("bot_send_failed")
	}
}

// decide checks when free, otherwise calls and folds one time in five.
func decide(rnd *rand.Rand, st gameState) string {
	if st.CallAmount == 0 {
		return "check"
	}
	if rnd.Intn(5) == 0 {
		return "fold"
	}
	return "call"
}

func registerIdentity(apiURL, nickname string) (string, error) {
	body, _ := json.Marshal(map[string]string{"nickname": nickname})
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(apiURL+"/api/identities", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("register identity: status %d", resp.StatusCode)
	}
	var out struct {
		IdentityID string `json:"identity_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.IdentityID, nil
}

func socketURL(base, identity string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("identity_id", identity)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
