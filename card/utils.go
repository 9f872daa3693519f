package card

func Cards2bytes(cs []Card) []byte {
	out := make([]byte, 0, len(cs))
	for _, c := range cs {
		out = append(out, byte(c))
	}
	return out
}

// NewShoeCards builds the card set for a Golf shoe: 52 cards per deck,
// plus two jokers per deck when enabled.
func NewShoeCards(decks int, jokers bool) []Card {
	out := make([]Card, 0, decks*54)
	for d := 0; d < decks; d++ {
		for _, base := range []Card{0x00, 0x10, 0x20, 0x30} {
			for r := Card(1); r <= 13; r++ {
				out = append(out, base+r)
			}
		}
		if jokers {
			out = append(out, CardJokerA, CardJokerB)
		}
	}
	return out
}
