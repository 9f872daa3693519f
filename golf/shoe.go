package golf

import (
	"math/rand"

	"golf-lite/card"
)

// Shoe is the draw pile plus the discard stack. Only the top of the discard
// is ever visible. When the draw pile runs dry the discard minus its top card
// is shuffled back in; if that still yields nothing the shoe is broken, which
// card conservation makes impossible short of a bug.
type Shoe struct {
	draw    card.CardList
	discard card.CardList
	rng     *rand.Rand
}

func newShoe(cards []card.Card, rng *rand.Rand) *Shoe {
	s := &Shoe{rng: rng}
	s.draw.Init(cards)
	rng.Shuffle(len(s.draw), func(i, j int) {
		s.draw[i], s.draw[j] = s.draw[j], s.draw[i]
	})
	return s
}

// newStackedShoe builds a shoe with a known draw order: cards[0] comes off
// first. Replays and scenario tests only.
func newStackedShoe(cards []card.Card, rng *rand.Rand) *Shoe {
	s := &Shoe{rng: rng}
	reversed := make([]card.Card, len(cards))
	for i, c := range cards {
		reversed[len(cards)-1-i] = c
	}
	s.draw.Init(reversed)
	return s
}

// Draw removes the next card from the draw pile, rebuilding it from the
// discard pile (minus its top card) when exhausted.
func (s *Shoe) Draw() (card.Card, error) {
	if s.draw.Count() == 0 {
		if err := s.rebuildFromDiscard(); err != nil {
			return card.CardInvalid, err
		}
	}
	c := s.draw.PopCard()
	if c == card.CardInvalid {
		return card.CardInvalid, ErrInvariant("draw pile empty after rebuild")
	}
	return c, nil
}

func (s *Shoe) rebuildFromDiscard() error {
	if s.discard.Count() <= 1 {
		return ErrInvariant("shoe exhausted: deck and discard unrecoverable")
	}
	top := s.discard.PopCard()
	recycled := make([]card.Card, s.discard.Count())
	copy(recycled, s.discard)
	s.draw.Init(recycled)
	s.rng.Shuffle(len(s.draw), func(i, j int) {
		s.draw[i], s.draw[j] = s.draw[j], s.draw[i]
	})
	s.discard = card.CardList{top}
	return nil
}

func (s *Shoe) DiscardTop() card.Card {
	return s.discard.Top()
}

// TakeDiscard removes and returns the top discard.
func (s *Shoe) TakeDiscard() (card.Card, error) {
	if s.discard.Count() == 0 {
		return card.CardInvalid, ErrEmptySource
	}
	return s.discard.PopCard(), nil
}

func (s *Shoe) PushDiscard(c card.Card) {
	s.discard.Add(c)
}

func (s *Shoe) DrawCount() int    { return s.draw.Count() }
func (s *Shoe) DiscardCount() int { return s.discard.Count() }
