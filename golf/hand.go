package golf

import "golf-lite/card"

// Slot is one of the six fixed hand positions: a card plus its face flag.
// Face-down slots are visible to no one, including the owning player.
type Slot struct {
	Card   card.Card
	FaceUp bool
}

// Hand is a fixed 2x3 grid of slots. It never grows or shrinks; it is
// mutated only through Deal, Flip and Swap.
type Hand struct {
	slots [HandSize]Slot
}

// Deal replaces the whole hand with six face-down cards.
func (h *Hand) Deal(cards []card.Card) bool {
	if len(cards) != HandSize {
		return false
	}
	for i, c := range cards {
		h.slots[i] = Slot{Card: c}
	}
	return true
}

func (h *Hand) Slot(pos int) Slot {
	return h.slots[pos]
}

// Flip turns a slot face-up. Flipping an already face-up slot is a no-op
// the caller must have rejected beforehand.
func (h *Hand) Flip(pos int) {
	h.slots[pos].FaceUp = true
}

// Swap puts c into pos face-up and returns the card that occupied the slot.
func (h *Hand) Swap(pos int, c card.Card) card.Card {
	removed := h.slots[pos].Card
	h.slots[pos] = Slot{Card: c, FaceUp: true}
	return removed
}

func (h *Hand) FaceDownCount() int {
	n := 0
	for _, s := range h.slots {
		if !s.FaceUp {
			n++
		}
	}
	return n
}

func (h *Hand) AllFaceUp() bool {
	return h.FaceDownCount() == 0
}

// Cards returns the six cards regardless of face flags. Scoring-only;
// everything player-facing goes through Visible.
func (h *Hand) Cards() [HandSize]card.Card {
	var out [HandSize]card.Card
	for i, s := range h.slots {
		out[i] = s.Card
	}
	return out
}

// Visible is the capability-scoped projection: face-down slots come back as
// CardRear so no caller can learn a hidden rank.
func (h *Hand) Visible() [HandSize]card.Card {
	var out [HandSize]card.Card
	for i, s := range h.slots {
		if s.FaceUp {
			out[i] = s.Card
		} else {
			out[i] = card.CardRear
		}
	}
	return out
}
