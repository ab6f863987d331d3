package session

import (
	"errors"
	"net/http"
)

var (
	ErrAlreadySeated    = errors.New("already_seated")
	ErrSeatOccupied     = errors.New("seat_occupied")
	ErrInvalidBuyIn     = errors.New("invalid_buy_in")
	ErrInvalidSeat      = errors.New("invalid_seat")
	ErrNotSeated        = errors.New("not_seated")
	ErrIdentityNotFound = errors.New("identity_not_found")
	ErrStaleConnection  = errors.New("stale_connection")
	ErrLocationConflict = errors.New("location_conflict")
	ErrInvalidLocation  = errors.New("invalid_location")
	ErrTableNotFound    = errors.New("table_not_found")
	ErrNotObserving     = errors.New("not_observing")
	ErrNotYourTurn      = errors.New("not_your_turn")
	ErrInvalidAction    = errors.New("invalid_action")
	ErrTableClosed      = errors.New("table_closed")
)

var known = []error{
	ErrAlreadySeated,
	ErrSeatOccupied,
	ErrInvalidBuyIn,
	ErrInvalidSeat,
	ErrNotSeated,
	ErrIdentityNotFound,
	ErrStaleConnection,
	ErrLocationConflict,
	ErrInvalidLocation,
	ErrTableNotFound,
	ErrNotObserving,
	ErrNotYourTurn,
	ErrInvalidAction,
	ErrTableClosed,
}

// Code returns the wire code for err. Unknown errors map to internal_error.
func Code(err error) string {
	for _, sentinel := range known {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal_error"
}

// IsSeatError reports whether err is answered with seatError rather than error.
func IsSeatError(err error) bool {
	return errors.Is(err, ErrAlreadySeated) ||
		errors.Is(err, ErrSeatOccupied) ||
		errors.Is(err, ErrInvalidBuyIn) ||
		errors.Is(err, ErrInvalidSeat) ||
		errors.Is(err, ErrNotSeated)
}

// Message is the human-readable text sent alongside the code.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrAlreadySeated):
		return "already seated at this table"
	case errors.Is(err, ErrSeatOccupied):
		return "seat already taken"
	case errors.Is(err, ErrInvalidBuyIn):
		return "buy-in outside table limits"
	case errors.Is(err, ErrInvalidSeat):
		return "no such seat"
	case errors.Is(err, ErrNotSeated):
		return "not seated"
	case errors.Is(err, ErrStaleConnection):
		return "connection superseded by a newer one"
	case errors.Is(err, ErrNotObserving):
		return "join a table first"
	case errors.Is(err, ErrNotYourTurn):
		return "not your turn"
	default:
		return Code(err)
	}
}

func MapHTTPError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		return http.StatusUnauthorized, ErrIdentityNotFound.Error()
	case errors.Is(err, ErrTableNotFound):
		return http.StatusNotFound, ErrTableNotFound.Error()
	case errors.Is(err, ErrTableClosed):
		return http.StatusGone, ErrTableClosed.Error()
	case errors.Is(err, ErrStaleConnection), errors.Is(err, ErrLocationConflict):
		return http.StatusConflict, Code(err)
	case Code(err) != "internal_error":
		return http.StatusBadRequest, Code(err)
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
