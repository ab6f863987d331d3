package game

import "errors"

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrNotYourTurn      = errors.New("not_your_turn")
	ErrSeatTaken        = errors.New("seat_taken")
	ErrBadSeat          = errors.New("bad_seat")
	ErrAlreadySeated    = errors.New("already_seated")
	ErrNotSeated        = errors.New("not_seated")
	ErrHandInProgress   = errors.New("hand_in_progress")
	ErrNoHand           = errors.New("no_hand_in_progress")
	ErrNotEnoughPlayers = errors.New("not_enough_players")
)

// Betting is the slice of round state that action validation needs.
type Betting struct {
	CurrentBet int64
	MinRaise   int64
	BigBlind   int64
}

// ValidateAction checks an action for the player to act. Bet and raise amounts
// may be short of the minimum only when they put the player all-in. Raise
// amounts are raise-to totals for the street.
func ValidateAction(b Betting, p *Player, action ActionType, amount int64) error {
	if !p.canAct() {
		return ErrInvalidAction
	}
	allIn := p.RoundBet + p.Stack
	switch action {
	case ActionFold:
		return nil
	case ActionCheck:
		if b.CurrentBet != p.RoundBet {
			return ErrInvalidAction
		}
		return nil
	case ActionCall:
		if b.CurrentBet <= p.RoundBet {
			return ErrInvalidAction
		}
		return nil
	case ActionBet:
		if b.CurrentBet != 0 || amount <= 0 {
			return ErrInvalidAction
		}
		if amount < b.BigBlind && amount < p.Stack {
			return ErrInvalidAction
		}
		return nil
	case ActionRaise:
		if b.CurrentBet == 0 || allIn <= b.CurrentBet {
			return ErrInvalidAction
		}
		if amount < b.CurrentBet+b.MinRaise && amount < allIn {
			return ErrInvalidAction
		}
		return nil
	default:
		return ErrInvalidAction
	}
}
