package game

import "testing"

func TestScoreOrdersHands(t *testing.T) {
	board := []Card{{Ace, Spades}, {King, Spades}, {Queen, Spades}, {Two, Hearts}, {Seven, Clubs}}

	flush, flushName, err := Score([]Card{{Jack, Spades}, {Ten, Spades}}, board)
	if err != nil {
		t.Fatalf("score royal: %v", err)
	}
	pair, _, err := Score([]Card{{Ace, Hearts}, {Four, Diamonds}}, board)
	if err != nil {
		t.Fatalf("score pair: %v", err)
	}
	trips, _, err := Score([]Card{{Two, Clubs}, {Two, Diamonds}}, board)
	if err != nil {
		t.Fatalf("score trips: %v", err)
	}
	if !(flush > trips && trips > pair) {
		t.Fatalf("unexpected ordering flush=%d trips=%d pair=%d", flush, trips, pair)
	}
	if flushName == "" {
		t.Fatal("expected a hand description")
	}
}

func TestScoreTiesOnBoard(t *testing.T) {
	board := []Card{{Ten, Spades}, {Jack, Hearts}, {Queen, Clubs}, {King, Diamonds}, {Ace, Spades}}
	a, _, _ := Score([]Card{{Two, Clubs}, {Three, Hearts}}, board)
	b, _, _ := Score([]Card{{Four, Clubs}, {Five, Hearts}}, board)
	if a != b {
		t.Fatalf("board straight should tie, got %d vs %d", a, b)
	}
}

func TestScoreRejectsShortBoard(t *testing.T) {
	if _, _, err := Score([]Card{{Two, Clubs}, {Three, Hearts}}, []Card{{Ace, Spades}}); err == nil {
		t.Fatal("expected error for short board")
	}
}
