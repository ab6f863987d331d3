package game

type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
)

func ParseAction(s string) (ActionType, bool) {
	switch a := ActionType(s); a {
	case ActionFold, ActionCheck, ActionCall, ActionBet, ActionRaise:
		return a, true
	default:
		return "", false
	}
}

type Street string

const (
	StreetPreFlop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

type Player struct {
	ID         string
	Name       string
	Seat       int
	Stack      int64
	Hole       []Card
	InHand     bool
	Folded     bool
	AllIn      bool
	Acted      bool
	RoundBet   int64
	TotalBet   int64
	LastAction ActionType
}

func (p *Player) live() bool { return p != nil && p.InHand && !p.Folded }

func (p *Player) canAct() bool { return p.live() && !p.AllIn }

// Outcome describes what one engine step did.
type Outcome struct {
	HandNumber    int         `json:"handNumber"`
	Street        Street      `json:"street"`
	PlayerID      string      `json:"playerId,omitempty"`
	Action        ActionType  `json:"action,omitempty"`
	Amount        int64       `json:"amount"`
	PotBefore     int64       `json:"potBefore"`
	PotAfter      int64       `json:"potAfter"`
	StreetChanged bool        `json:"streetChanged"`
	NextActor     string      `json:"nextActor,omitempty"`
	HandOver      bool        `json:"handOver"`
	Result        *HandResult `json:"result,omitempty"`
}

type HandResult struct {
	HandNumber int                 `json:"handNumber"`
	Showdown   bool                `json:"showdown"`
	Board      []string            `json:"board"`
	Winners    []Winner            `json:"winners"`
	Shown      map[string][]string `json:"shown,omitempty"`
}

type Winner struct {
	PlayerID string `json:"playerId"`
	Seat     int    `json:"seat"`
	Amount   int64  `json:"amount"`
	HandName string `json:"handName,omitempty"`
}

type PlayerView struct {
	Seat       int      `json:"seat"`
	PlayerID   string   `json:"playerId"`
	Name       string   `json:"name"`
	Stack      int64    `json:"stack"`
	RoundBet   int64    `json:"roundBet"`
	InHand     bool     `json:"inHand"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"allIn"`
	LastAction string   `json:"lastAction,omitempty"`
	Hole       []string `json:"holeCards,omitempty"`
}

// State is the engine snapshot pushed as gameState.
type State struct {
	HandNumber int          `json:"handNumber"`
	InHand     bool         `json:"inHand"`
	Street     Street       `json:"street,omitempty"`
	Board      []string     `json:"board"`
	Pot        int64        `json:"pot"`
	CurrentBet int64        `json:"currentBet"`
	MinRaise   int64        `json:"minRaise"`
	SmallBlind int64        `json:"smallBlind"`
	BigBlind   int64        `json:"bigBlind"`
	DealerSeat int          `json:"dealerSeat"`
	ActorSeat  int          `json:"actorSeat"`
	Actor      string       `json:"actor,omitempty"`
	CallAmount int64        `json:"callAmount,omitempty"`
	MinRaiseTo int64        `json:"minRaiseTo,omitempty"`
	Players    []PlayerView `json:"players"`
	LastResult *HandResult  `json:"lastResult,omitempty"`
}
