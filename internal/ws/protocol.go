package ws

import "encoding/json"

// Inbound socket events.
const (
	EventJoinTable      = "joinTable"
	EventTakeSeat       = "takeSeat"
	EventLeaveSeat      = "leaveSeat"
	EventLeaveTable     = "leaveTable"
	EventUpdateLocation = "updateUserLocation"
	EventBet            = "bet"
	EventCall           = "call"
	EventRaise          = "raise"
	EventFold           = "fold"
	EventCheck          = "check"
)

// ClientMessage is one inbound frame.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinTableRequest struct {
	TableID  int    `json:"tableId"`
	BuyIn    int64  `json:"buyIn"`
	Nickname string `json:"nickname"`
}

type TakeSeatRequest struct {
	SeatNumber int   `json:"seatNumber"`
	BuyIn      int64 `json:"buyIn"`
}

type LeaveTableRequest struct {
	TableID int `json:"tableId"`
}

type UpdateLocationRequest struct {
	Location string `json:"location"`
}

type ActionRequest struct {
	Amount int64 `json:"amount"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}

type ConnectedPayload struct {
	SocketID   string `json:"socketId"`
	IdentityID string `json:"identityId"`
	Nickname   string `json:"nickname"`
	Location   string `json:"location"`
}
