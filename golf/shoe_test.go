package golf

import (
	"errors"
	"math/rand"
	"testing"

	"golf-lite/card"
)

func TestShoe_StackedOrder(t *testing.T) {
	cards := []card.Card{card.CardSpadeA, card.CardHeart7, card.CardClubK}
	s := newStackedShoe(cards, rand.New(rand.NewSource(1)))
	for i, want := range cards {
		got, err := s.Draw()
		if err != nil {
			t.Fatalf("draw %d err: %v", i, err)
		}
		if got != want {
			t.Fatalf("draw %d = %v, want %v", i, got, want)
		}
	}
}

func TestShoe_RebuildKeepsDiscardTop(t *testing.T) {
	s := newStackedShoe([]card.Card{card.CardSpadeA}, rand.New(rand.NewSource(1)))
	for _, c := range []card.Card{card.CardHeart2, card.CardHeart3, card.CardHeart4} {
		s.PushDiscard(c)
	}

	if _, err := s.Draw(); err != nil { // drains the pile
		t.Fatal(err)
	}

	// Next draw recycles the discard minus its top.
	c, err := s.Draw()
	if err != nil {
		t.Fatalf("draw after rebuild err: %v", err)
	}
	if c == card.CardHeart4 {
		t.Fatal("rebuild consumed the visible discard top")
	}
	if top := s.DiscardTop(); top != card.CardHeart4 {
		t.Fatalf("discard top after rebuild = %v, want heart 4", top)
	}
	if s.DrawCount() != 1 || s.DiscardCount() != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", s.DrawCount(), s.DiscardCount())
	}
}

func TestShoe_Exhaustion(t *testing.T) {
	s := newStackedShoe(nil, rand.New(rand.NewSource(1)))
	s.PushDiscard(card.CardSpadeA)

	_, err := s.Draw()
	if !IsFatal(err) {
		t.Fatalf("expected fatal exhaustion error, got %v", err)
	}
}

func TestShoe_TakeDiscardEmpty(t *testing.T) {
	s := newStackedShoe([]card.Card{card.CardSpadeA}, rand.New(rand.NewSource(1)))
	if _, err := s.TakeDiscard(); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected empty source, got %v", err)
	}
}
