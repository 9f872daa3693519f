package bot

import (
	"math"
	"math/rand"

	"golf-lite/card"
	"golf-lite/golf"
)

// Tuning constants shared by every personality. Hidden cards are estimated at
// the mean value of a golf deck; the estimate is discounted because it may be
// wrong in either direction.
const (
	hiddenValueEstimate = 4.5
	hiddenDiscount      = 0.7
	revealBonus         = 0.5
)

// RuleBrain makes decisions from a PersonalityProfile. One shared algorithm;
// the profile only scales thresholds and penalties.
type RuleBrain struct {
	Persona *Persona
	rng     *rand.Rand
}

// NewRuleBrain creates a RuleBrain from a persona definition.
func NewRuleBrain(persona *Persona, seed int64) *RuleBrain {
	return &RuleBrain{
		Persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (b *RuleBrain) Name() string { return b.Persona.Name }

// ChooseInitialFlips prefers face-down slots in different columns, which
// maximizes early pairing information; it falls back to the first available
// slots when no differing-column pick remains.
func (b *RuleBrain) ChooseInitialFlips(view GameView) []int {
	quota := view.FlipsLeft
	if quota <= 0 {
		return nil
	}
	var picks []int
	usedCols := make(map[int]bool)

	// First pass: one slot per column.
	for pos := 0; pos < golf.HandSize && len(picks) < quota; pos++ {
		col := pos % golf.HandColumns
		if view.MyFaceUp[pos] || usedCols[col] {
			continue
		}
		picks = append(picks, pos)
		usedCols[col] = true
	}
	// Fallback: first remaining face-down slots.
	for pos := 0; pos < golf.HandSize && len(picks) < quota; pos++ {
		if view.MyFaceUp[pos] || containsInt(picks, pos) {
			continue
		}
		picks = append(picks, pos)
	}
	return picks
}

// ChooseDrawSource takes the discard unconditionally when it is a joker, a
// king or cheap; takes it to complete a non-negative pair against a visible
// card with a hidden column partner; takes it when it beats some replaceable
// visible card by more than a point; otherwise draws blind from the deck.
func (b *RuleBrain) ChooseDrawSource(view GameView) golf.DrawSource {
	top := view.DiscardTop
	if top == card.CardInvalid || top == card.CardRear {
		return golf.DrawSourceDeck
	}
	p := b.Persona.Brain
	v := golf.CardValue(top, view.Rules)

	// Unconditional takes: jokers, kings, very low values.
	if top.IsJoker() || top.Rank() == 13 {
		return golf.DrawSourceDiscard
	}
	if float64(v) <= 2-p.Patience {
		return golf.DrawSourceDiscard
	}

	// Pair completion: only with a non-negative value, since pairing away a
	// negative card costs points.
	if v >= 0 {
		for pos := 0; pos < golf.HandSize; pos++ {
			partner := golf.ColumnPartner(pos)
			if view.MyFaceUp[pos] && !view.MyFaceUp[partner] && view.MySlots[pos].SameRank(top) {
				return golf.DrawSourceDiscard
			}
		}
	}

	// Replacement: cheaper by more than a point than something visible.
	// Patient personalities demand a bigger edge.
	margin := 1 + p.Patience
	for pos := 0; pos < golf.HandSize; pos++ {
		if !view.MyFaceUp[pos] {
			continue
		}
		if float64(golf.CardValue(view.MySlots[pos], view.Rules)-v) > margin {
			return golf.DrawSourceDiscard
		}
	}
	return golf.DrawSourceDeck
}

// ChooseSwapPos scores every slot as a candidate for the held card and picks
// the best positive one. When the draw was forced (taken from the discard) a
// swap must happen anyway: prefer burying the card in a face-down slot, else
// accept the least bad option.
func (b *RuleBrain) ChooseSwapPos(view GameView) (int, bool) {
	bestPos, bestScore := -1, math.Inf(-1)
	bestDownPos, bestDownScore := -1, math.Inf(-1)

	for pos := 0; pos < golf.HandSize; pos++ {
		score := b.slotCandidateScore(view, pos)
		if score > bestScore {
			bestPos, bestScore = pos, score
		}
		if !view.MyFaceUp[pos] && score > bestDownScore {
			bestDownPos, bestDownScore = pos, score
		}
	}

	if bestScore > 0 {
		return bestPos, true
	}
	if view.HeldSource == golf.DrawSourceDiscard {
		// Forced swap: no slot improves the hand, so hide the damage.
		if bestDownPos >= 0 {
			return bestDownPos, true
		}
		return bestPos, true
	}
	return -1, false
}

// slotCandidateScore weighs a swap target: pairing gain + replacement
// gain + a small bonus for revealing a hidden slot with a cheap card.
func (b *RuleBrain) slotCandidateScore(view GameView, pos int) float64 {
	p := b.Persona.Brain
	drawn := view.HeldCard
	dv := float64(golf.CardValue(drawn, view.Rules))
	score := 0.0

	// Pairing gain: matching the visible column partner zeroes the column,
	// unless the drawn card is negative: pairing it away loses its value,
	// which risk-tolerant personalities discount.
	partner := golf.ColumnPartner(pos)
	if view.MyFaceUp[partner] && view.MySlots[partner].SameRank(drawn) {
		pv := float64(golf.CardValue(view.MySlots[partner], view.Rules))
		if dv >= 0 {
			score += pv + dv
		} else {
			score -= 2 * math.Abs(dv) * (1.5 - p.RiskTolerance)
		}
	}

	// Replacement gain: points shed by evicting the slot's occupant. A
	// hidden occupant is estimated and discounted.
	if view.MyFaceUp[pos] {
		score += float64(golf.CardValue(view.MySlots[pos], view.Rules)) - dv
	} else {
		score += hiddenDiscount * (hiddenValueEstimate - dv)
		if dv <= 2 {
			score += revealBonus
		}
	}

	// Decision noise.
	score += (b.rng.Float64() - 0.5) * p.Randomness

	return score
}

// ChooseFlipPos prefers a face-down slot whose column partner is already
// visible: the reveal doubles as pairing information.
func (b *RuleBrain) ChooseFlipPos(view GameView) int {
	first := -1
	for pos := 0; pos < golf.HandSize; pos++ {
		if view.MyFaceUp[pos] {
			continue
		}
		if first < 0 {
			first = pos
		}
		if view.MyFaceUp[golf.ColumnPartner(pos)] {
			return pos
		}
	}
	return first
}

// SkipFlip declines an optional flip with small probability, and only once
// two or fewer cards remain hidden; with three or more hidden, flipping is
// always information worth having.
func (b *RuleBrain) SkipFlip(view GameView) bool {
	if view.FaceDown >= 3 {
		return false
	}
	p := b.Persona.Brain
	return b.rng.Float64() < 0.1+0.2*p.Patience
}

// WantsEarlyKnock estimates the hand (hidden slots at the discounted mean)
// and knocks when the estimate is low enough for the personality's nerve.
func (b *RuleBrain) WantsEarlyKnock(view GameView) bool {
	if !view.Rules.EarlyKnock || view.KnockerSeat != golf.InvalidSeat {
		return false
	}
	p := b.Persona.Brain
	estimate := 0.0
	for pos := 0; pos < golf.HandSize; pos++ {
		if view.MyFaceUp[pos] {
			estimate += float64(golf.CardValue(view.MySlots[pos], view.Rules))
		} else {
			estimate += hiddenValueEstimate
		}
	}
	threshold := 2 + 8*p.Aggression - float64(view.FaceDown)*2
	if estimate > threshold {
		return false
	}
	return b.rng.Float64() < 0.2+0.6*p.Aggression
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
