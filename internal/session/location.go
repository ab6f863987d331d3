package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type LocationKind uint8

const (
	KindLobby LocationKind = iota
	KindObserving
	KindSeated
)

// Location is where an identity currently is. The zero value is the lobby.
type Location struct {
	Kind    LocationKind
	TableID int
	Seat    int
}

func Lobby() Location { return Location{} }

func Observing(tableID int) Location {
	return Location{Kind: KindObserving, TableID: tableID}
}

func Seated(tableID, seat int) Location {
	return Location{Kind: KindSeated, TableID: tableID, Seat: seat}
}

func (l Location) IsLobby() bool { return l.Kind == KindLobby }

// Table returns the table the location refers to, if any.
func (l Location) Table() (int, bool) {
	if l.Kind == KindLobby {
		return 0, false
	}
	return l.TableID, true
}

func (l Location) String() string {
	switch l.Kind {
	case KindObserving:
		return "table:" + strconv.Itoa(l.TableID)
	case KindSeated:
		return fmt.Sprintf("seat:%d:%d", l.TableID, l.Seat)
	default:
		return "lobby"
	}
}

func ParseLocation(s string) (Location, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch parts[0] {
	case "lobby", "":
		if len(parts) == 1 {
			return Lobby(), nil
		}
	case "table":
		if len(parts) == 2 {
			id, err := strconv.Atoi(parts[1])
			if err == nil && id > 0 {
				return Observing(id), nil
			}
		}
	case "seat":
		if len(parts) == 3 {
			id, err1 := strconv.Atoi(parts[1])
			seat, err2 := strconv.Atoi(parts[2])
			if err1 == nil && err2 == nil && id > 0 && seat > 0 {
				return Seated(id, seat), nil
			}
		}
	}
	return Location{}, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
}

func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Location) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLocation(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
