package tablepush

import (
	"fmt"
	"time"
)

// PushTarget is one webhook. TableID 0 matches every table.
type PushTarget struct {
	Platform       string   `json:"platform"`
	Endpoint       string   `json:"endpoint"`
	Secret         string   `json:"secret"`
	TableID        int      `json:"table_id"`
	EventAllowlist []string `json:"event_allowlist"`
	Enabled        bool     `json:"enabled"`
}

type Config struct {
	Enabled             bool
	Targets             []PushTarget
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	RequestTimeout      time.Duration
	DispatchBuffer      int
}

// Event types a target can allowlist.
const (
	EventAction   = "action"
	EventSeat     = "seat"
	EventTimeout  = "timeout"
	EventHandOver = "hand_result"
)

// TableEvent is a table stream event reduced to what a webhook renders.
type TableEvent struct {
	EventID    string
	Type       string
	ServerTS   int64
	TableID    int
	TableName  string
	HandNumber int
	Phase      string
	Player     string
	Seat       int
	Action     string
	Amount     int64
	Pot        int64
	Board      []string
	Winners    []WinnerLine
}

type WinnerLine struct {
	Player   string
	Amount   int64
	HandName string
}

type MessageField struct {
	Name   string
	Value  string
	Inline bool
}

type FormattedMessage struct {
	Title       string
	Content     string
	Description string
	Color       int
	Timestamp   string
	Footer      string
	Fields      []MessageField
}

type pushJob struct {
	Target    PushTarget
	Event     TableEvent
	Formatted FormattedMessage
	Attempt   int
}

// key scopes the circuit breaker to one target and one table.
func (j pushJob) key() string {
	return fmt.Sprintf("%s|table:%d", targetKey(j.Target), j.Event.TableID)
}

func targetKey(t PushTarget) string {
	return t.Platform + "|" + t.Endpoint
}
