package game

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	MaxPlayers int
	SmallBlind int64
	BigBlind   int64
}

// Engine runs no-limit hold'em hands for one table. It is not safe for
// concurrent use; the owning table actor serializes every call.
type Engine struct {
	cfg     Config
	rnd     *rand.Rand
	newDeck func() *Deck

	seats      []*Player
	deck       *Deck
	handNumber int
	dealer     int

	inHand     bool
	street     Street
	board      []Card
	currentBet int64
	minRaise   int64
	actor      int
	dead       int64
	lastResult *HandResult
}

func NewEngine(cfg Config, rnd *rand.Rand) *Engine {
	if cfg.MaxPlayers < 2 {
		cfg.MaxPlayers = 2
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{cfg: cfg, rnd: rnd, seats: make([]*Player, cfg.MaxPlayers)}
	e.newDeck = func() *Deck {
		d := NewDeck()
		d.Shuffle(e.rnd)
		return d
	}
	return e
}

func (e *Engine) HandNumber() int { return e.handNumber }

// SetHandNumber sets the counter the next hand increments from.
func (e *Engine) SetHandNumber(n int) { e.handNumber = n }

func (e *Engine) InHand() bool { return e.inHand }

func (e *Engine) Street() Street { return e.street }

func (e *Engine) Pot() int64 {
	total := e.dead
	for _, p := range e.seats {
		if p != nil && p.InHand {
			total += p.TotalBet
		}
	}
	return total
}

// Actor returns the identity due to act.
func (e *Engine) Actor() (string, bool) {
	if !e.inHand || e.actor == 0 {
		return "", false
	}
	return e.seats[e.actor-1].ID, true
}

func (e *Engine) SeatOf(id string) int {
	for _, p := range e.seats {
		if p != nil && p.ID == id {
			return p.Seat
		}
	}
	return 0
}

func (e *Engine) Stack(id string) (int64, bool) {
	if seat := e.SeatOf(id); seat != 0 {
		return e.seats[seat-1].Stack, true
	}
	return 0, false
}

func (e *Engine) SitDown(seat int, id, name string, stack int64) error {
	if seat < 1 || seat > len(e.seats) {
		return ErrBadSeat
	}
	if e.SeatOf(id) != 0 {
		return ErrAlreadySeated
	}
	if e.seats[seat-1] != nil {
		return ErrSeatTaken
	}
	e.seats[seat-1] = &Player{ID: id, Name: name, Seat: seat, Stack: stack}
	return nil
}

// StandUp removes id from its seat. A player still live in the hand folds
// first; the returned outcome is non-nil when that fold changed the hand.
func (e *Engine) StandUp(id string) (*Outcome, int64, error) {
	seat := e.SeatOf(id)
	if seat == 0 {
		return nil, 0, ErrNotSeated
	}
	p := e.seats[seat-1]
	var out *Outcome
	if e.inHand && p.live() {
		if e.actor == seat {
			o, err := e.Act(id, ActionFold, 0)
			if err != nil {
				return nil, 0, err
			}
			out = &o
		} else {
			o := Outcome{HandNumber: e.handNumber, Street: e.street, PlayerID: id, Action: ActionFold, PotBefore: e.Pot()}
			p.Folded = true
			p.LastAction = ActionFold
			e.advance(&o, false)
			out = &o
		}
	}
	if e.inHand && p.InHand {
		e.dead += p.TotalBet
	}
	e.seats[seat-1] = nil
	return out, p.Stack, nil
}

// CanStart reports whether a new hand may be dealt.
func (e *Engine) CanStart() bool {
	if e.inHand {
		return false
	}
	funded := 0
	for _, p := range e.seats {
		if p != nil && p.Stack > 0 {
			funded++
		}
	}
	return funded >= 2
}

func (e *Engine) StartHand() (Outcome, error) {
	if e.inHand {
		return Outcome{}, ErrHandInProgress
	}
	if !e.CanStart() {
		return Outcome{}, ErrNotEnoughPlayers
	}
	e.handNumber++
	e.board = nil
	e.dead = 0
	e.lastResult = nil
	e.street = StreetPreFlop
	e.currentBet = 0
	e.minRaise = e.cfg.BigBlind
	inHand := 0
	for _, p := range e.seats {
		if p == nil {
			continue
		}
		p.Hole = nil
		p.Folded = false
		p.AllIn = false
		p.Acted = false
		p.RoundBet = 0
		p.TotalBet = 0
		p.LastAction = ""
		p.InHand = p.Stack > 0
		if p.InHand {
			inHand++
		}
	}
	e.inHand = true

	e.dealer = e.nextInHand(e.dealer)
	sb := e.nextInHand(e.dealer)
	if inHand == 2 {
		sb = e.dealer
	}
	bb := e.nextInHand(sb)

	e.deck = e.newDeck()
	first := e.nextInHand(e.dealer)
	for round := 0; round < 2; round++ {
		seat := first
		for i := 0; i < inHand; i++ {
			p := e.seats[seat-1]
			p.Hole = append(p.Hole, e.deck.Deal())
			seat = e.nextInHand(seat)
		}
	}

	e.post(e.seats[sb-1], e.cfg.SmallBlind)
	e.post(e.seats[bb-1], e.cfg.BigBlind)
	e.currentBet = max64(e.seats[sb-1].RoundBet, e.seats[bb-1].RoundBet)

	log.Debug().
		Int("hand_number", e.handNumber).
		Int("dealer_seat", e.dealer).
		Int("sb_seat", sb).
		Int("bb_seat", bb).
		Msg("hand_started")

	o := Outcome{HandNumber: e.handNumber, Street: StreetPreFlop}
	e.actor = bb
	e.advance(&o, true)
	return o, nil
}

func (e *Engine) Act(id string, action ActionType, amount int64) (Outcome, error) {
	if !e.inHand {
		return Outcome{}, ErrNoHand
	}
	seat := e.SeatOf(id)
	if seat == 0 {
		return Outcome{}, ErrNotSeated
	}
	if seat != e.actor {
		return Outcome{}, ErrNotYourTurn
	}
	p := e.seats[seat-1]
	if err := ValidateAction(e.betting(), p, action, amount); err != nil {
		return Outcome{}, err
	}

	o := Outcome{HandNumber: e.handNumber, Street: e.street, PlayerID: id, Action: action, PotBefore: e.Pot()}
	switch action {
	case ActionFold:
		p.Folded = true
	case ActionCheck:
	case ActionCall:
		o.Amount = e.commit(p, e.currentBet-p.RoundBet)
	case ActionBet:
		o.Amount = e.commit(p, amount)
		e.raised(p)
	case ActionRaise:
		o.Amount = e.commit(p, amount-p.RoundBet)
		e.raised(p)
	}
	p.Acted = true
	p.LastAction = action
	e.advance(&o, true)
	return o, nil
}

// TimeoutAction is what a player is made to do when the decision window
// lapses: check when it costs nothing, fold otherwise.
func (e *Engine) TimeoutAction(id string) ActionType {
	if seat := e.SeatOf(id); seat != 0 && e.seats[seat-1].RoundBet >= e.currentBet {
		return ActionCheck
	}
	return ActionFold
}

func (e *Engine) betting() Betting {
	return Betting{CurrentBet: e.currentBet, MinRaise: e.minRaise, BigBlind: e.cfg.BigBlind}
}

func (e *Engine) post(p *Player, blind int64) {
	e.commit(p, blind)
}

func (e *Engine) commit(p *Player, amount int64) int64 {
	if amount > p.Stack {
		amount = p.Stack
	}
	if amount <= 0 {
		return 0
	}
	p.Stack -= amount
	p.RoundBet += amount
	p.TotalBet += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
	return amount
}

func (e *Engine) raised(p *Player) {
	if p.RoundBet <= e.currentBet {
		return
	}
	if inc := p.RoundBet - e.currentBet; inc >= e.minRaise {
		e.minRaise = inc
	}
	e.currentBet = p.RoundBet
	for _, other := range e.seats {
		if other != nil && other != p && other.canAct() {
			other.Acted = false
		}
	}
}

// advance moves the hand forward after a step and fills in o. passTurn is
// false when the step was not taken by the player to act.
func (e *Engine) advance(o *Outcome, passTurn bool) {
	o.PotAfter = e.Pot()
	if e.countLive() <= 1 {
		e.finish(o, false)
		return
	}
	if !e.roundComplete() {
		if passTurn || !e.seats[e.actor-1].canAct() {
			e.actor = e.nextToAct(e.actor)
		}
		o.NextActor = e.seats[e.actor-1].ID
		return
	}
	if e.countCanAct() <= 1 || e.street == StreetRiver {
		e.finish(o, true)
		return
	}
	e.nextStreet()
	o.StreetChanged = true
	o.NextActor = e.seats[e.actor-1].ID
}

func (e *Engine) roundComplete() bool {
	var actors []*Player
	var highest int64
	for _, p := range e.seats {
		if !p.live() {
			continue
		}
		if p.RoundBet > highest {
			highest = p.RoundBet
		}
		if !p.AllIn {
			actors = append(actors, p)
		}
	}
	if len(actors) == 0 {
		return true
	}
	if len(actors) == 1 && actors[0].RoundBet >= highest {
		return true
	}
	for _, p := range actors {
		if !p.Acted || p.RoundBet != e.currentBet {
			return false
		}
	}
	return true
}

func (e *Engine) nextStreet() {
	for _, p := range e.seats {
		if p != nil && p.InHand {
			p.RoundBet = 0
			p.Acted = false
		}
	}
	e.currentBet = 0
	e.minRaise = e.cfg.BigBlind
	switch e.street {
	case StreetPreFlop:
		e.board = append(e.board, e.deck.Deal(), e.deck.Deal(), e.deck.Deal())
		e.street = StreetFlop
	case StreetFlop:
		e.board = append(e.board, e.deck.Deal())
		e.street = StreetTurn
	case StreetTurn:
		e.board = append(e.board, e.deck.Deal())
		e.street = StreetRiver
	}
	e.actor = e.nextToAct(e.dealer)
}

func (e *Engine) finish(o *Outcome, showdown bool) {
	if showdown {
		for len(e.board) < 5 {
			e.board = append(e.board, e.deck.Deal())
		}
	}
	result := e.settle(showdown)
	e.inHand = false
	e.actor = 0
	e.street = StreetShowdown
	for _, p := range e.seats {
		if p != nil {
			p.RoundBet = 0
		}
	}
	e.lastResult = result
	o.HandOver = true
	o.NextActor = ""
	o.Result = result
	log.Debug().Int("hand_number", e.handNumber).Bool("showdown", showdown).Int("winners", len(result.Winners)).Msg("hand_finished")
}

func (e *Engine) settle(showdown bool) *HandResult {
	result := &HandResult{HandNumber: e.handNumber, Showdown: showdown, Board: cardStrings(e.board)}
	contribs := make([]Contribution, 0, len(e.seats))
	byID := map[string]*Player{}
	for _, p := range e.seats {
		if p == nil || !p.InHand {
			continue
		}
		byID[p.ID] = p
		contribs = append(contribs, Contribution{PlayerID: p.ID, Amount: p.TotalBet, Live: !p.Folded})
	}

	if !showdown {
		for _, p := range e.seats {
			if p.live() {
				won := e.Pot()
				p.Stack += won
				result.Winners = append(result.Winners, Winner{PlayerID: p.ID, Seat: p.Seat, Amount: won})
			}
		}
		return result
	}

	scores := map[string]int16{}
	names := map[string]string{}
	result.Shown = map[string][]string{}
	for id, p := range byID {
		if p.Folded {
			continue
		}
		score, name, err := Score(p.Hole, e.board)
		if err != nil {
			log.Error().Err(err).Str("player_id", id).Int("hand_number", e.handNumber).Msg("hand_score_failed")
			continue
		}
		scores[id] = score
		names[id] = name
		result.Shown[id] = cardStrings(p.Hole)
	}

	won := map[string]int64{}
	for _, pot := range ComputePots(contribs, e.dead) {
		best := int16(-1)
		var winners []string
		for _, id := range e.clockwise(pot.Eligible) {
			score, ok := scores[id]
			if !ok {
				continue
			}
			switch {
			case score > best:
				best = score
				winners = []string{id}
			case score == best:
				winners = append(winners, id)
			}
		}
		if len(winners) == 0 {
			winners = e.clockwise(pot.Eligible)
		}
		if len(winners) == 0 {
			continue
		}
		share := pot.Amount / int64(len(winners))
		odd := pot.Amount - share*int64(len(winners))
		for i, id := range winners {
			amt := share
			if i == 0 {
				amt += odd
			}
			won[id] += amt
		}
	}
	for _, p := range e.seats {
		if p == nil {
			continue
		}
		if amt, ok := won[p.ID]; ok && amt > 0 {
			p.Stack += amt
			result.Winners = append(result.Winners, Winner{PlayerID: p.ID, Seat: p.Seat, Amount: amt, HandName: names[p.ID]})
		}
	}
	return result
}

// clockwise orders ids by seat starting left of the dealer.
func (e *Engine) clockwise(ids []string) []string {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(ids))
	n := len(e.seats)
	for i := 1; i <= n; i++ {
		p := e.seats[(e.dealer-1+i)%n]
		if p != nil && want[p.ID] {
			out = append(out, p.ID)
		}
	}
	return out
}

func (e *Engine) nextInHand(from int) int {
	return e.nextSeat(from, func(p *Player) bool { return p.InHand })
}

func (e *Engine) nextToAct(from int) int {
	return e.nextSeat(from, func(p *Player) bool { return p.canAct() })
}

func (e *Engine) nextSeat(from int, ok func(*Player) bool) int {
	n := len(e.seats)
	if from < 0 {
		from = 0
	}
	for i := 1; i <= n; i++ {
		seat := (from-1+i+n)%n + 1
		if p := e.seats[seat-1]; p != nil && ok(p) {
			return seat
		}
	}
	return 0
}

func (e *Engine) countLive() int {
	n := 0
	for _, p := range e.seats {
		if p.live() {
			n++
		}
	}
	return n
}

func (e *Engine) countCanAct() int {
	n := 0
	for _, p := range e.seats {
		if p != nil && p.canAct() {
			n++
		}
	}
	return n
}

// State returns the public view. Hole cards are hidden.
func (e *Engine) State() State {
	return e.view("")
}

// StateFor returns the view for one player, with their hole cards and, when
// they are to act, the call and minimum raise amounts.
func (e *Engine) StateFor(id string) State {
	return e.view(id)
}

func (e *Engine) view(viewer string) State {
	s := State{
		HandNumber: e.handNumber,
		InHand:     e.inHand,
		Street:     e.street,
		Board:      cardStrings(e.board),
		Pot:        e.Pot(),
		CurrentBet: e.currentBet,
		MinRaise:   e.minRaise,
		SmallBlind: e.cfg.SmallBlind,
		BigBlind:   e.cfg.BigBlind,
		DealerSeat: e.dealer,
		ActorSeat:  e.actor,
		Players:    []PlayerView{},
		LastResult: e.lastResult,
	}
	if !e.inHand {
		s.Pot = 0
		s.ActorSeat = 0
	}
	if id, ok := e.Actor(); ok {
		s.Actor = id
	}
	for _, p := range e.seats {
		if p == nil {
			continue
		}
		pv := PlayerView{
			Seat:       p.Seat,
			PlayerID:   p.ID,
			Name:       p.Name,
			Stack:      p.Stack,
			RoundBet:   p.RoundBet,
			InHand:     p.InHand,
			Folded:     p.Folded,
			AllIn:      p.AllIn,
			LastAction: string(p.LastAction),
		}
		if viewer != "" && p.ID == viewer {
			pv.Hole = cardStrings(p.Hole)
			if e.inHand && e.actor == p.Seat {
				s.CallAmount = min64(e.currentBet-p.RoundBet, p.Stack)
				if e.currentBet > 0 {
					s.MinRaiseTo = min64(e.currentBet+e.minRaise, p.RoundBet+p.Stack)
				}
			}
		}
		s.Players = append(s.Players, pv)
	}
	return s
}
