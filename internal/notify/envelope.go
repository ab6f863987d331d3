package notify

import (
	"encoding/json"
	"time"
)

// Envelope is the frame every socket message is wrapped in.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	TS    int64  `json:"ts"`
}

func Encode(event string, data any) ([]byte, error) {
	if data == nil {
		data = struct{}{}
	}
	return json.Marshal(Envelope{Event: event, Data: data, TS: time.Now().UnixMilli()})
}

// Outbound socket events.
const (
	EventConnected       = "connected"
	EventSuperseded      = "superseded"
	EventTableJoined     = "tableJoined"
	EventTableLeft       = "tableLeft"
	EventTableState      = "tableState"
	EventGameState       = "gameState"
	EventLocationUpdated = "location:updated"
	EventSeatTaken       = "seatTaken"
	EventSeatError       = "seatError"
	EventError           = "error"
	EventActionApplied   = "actionApplied"
	EventTimeoutStart    = "playerTimeout:start"
	EventTimeoutCleared  = "playerTimeout:cleared"
	EventTimeoutExpired  = "playerTimeout:expired"
)
