package game

import (
	"fmt"

	"github.com/paulhankin/poker"
)

var pokerSuits = map[Suit]poker.Suit{
	Spades:   poker.Spade,
	Hearts:   poker.Heart,
	Diamonds: poker.Diamond,
	Clubs:    poker.Club,
}

func toPokerCard(c Card) (poker.Card, error) {
	r := int(c.Rank)
	if c.Rank == Ace {
		r = 1
	}
	return poker.MakeCard(pokerSuits[c.Suit], poker.Rank(r))
}

// Score ranks two hole cards plus a five card board. Higher is better.
func Score(hole, board []Card) (int16, string, error) {
	if len(hole) != 2 || len(board) != 5 {
		return 0, "", fmt.Errorf("score needs 2 hole and 5 board cards, got %d and %d", len(hole), len(board))
	}
	var hand [7]poker.Card
	for i, c := range append(append([]Card{}, board...), hole...) {
		pc, err := toPokerCard(c)
		if err != nil {
			return 0, "", fmt.Errorf("card %s: %w", c, err)
		}
		hand[i] = pc
	}
	name, err := poker.Describe(hand[:])
	if err != nil {
		return 0, "", err
	}
	return poker.Eval7(&hand), name, nil
}
