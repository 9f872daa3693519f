package bot

import (
	"golf-lite/card"
	"golf-lite/golf"
)

// GameView is the read-only projection of the game visible to one seat: own
// face-up cards, every opponent's face-up cards, the discard top and the own
// face-down count. Hidden ranks arrive as card.CardRear and stay hidden;
// a brain can never peek.
type GameView struct {
	MySeat uint16
	Phase  golf.Phase
	Rules  golf.HouseRules

	MySlots    [golf.HandSize]card.Card // CardRear where face-down
	MyFaceUp   [golf.HandSize]bool
	FaceDown   int
	FlipsLeft  int // initial-reveal flips still owed
	DiscardTop card.Card

	HeldCard   card.Card
	HeldSource golf.DrawSource

	FlipOptional bool
	KnockerSeat  uint16

	Opponents []OpponentView
}

type OpponentView struct {
	Seat     uint16
	Up       [golf.HandSize]card.Card // CardRear where face-down
	FaceDown int
}

// BuildView derives a seat's view from a snapshot. The snapshot is filtered
// through ViewFor first, so even a buggy brain cannot observe hidden state.
func BuildView(snap golf.Snapshot, seat uint16) GameView {
	snap = snap.ViewFor(seat)
	view := GameView{
		MySeat:       seat,
		Phase:        snap.Phase,
		Rules:        snap.Rules,
		DiscardTop:   snap.DiscardTop,
		HeldCard:     snap.HeldCard,
		HeldSource:   snap.HeldSource,
		FlipOptional: snap.FlipOptional,
		KnockerSeat:  snap.KnockerSeat,
	}
	for _, p := range snap.Players {
		if p.Seat == seat {
			for i, s := range p.Slots {
				view.MySlots[i] = s.Card
				view.MyFaceUp[i] = s.FaceUp
			}
			view.FaceDown = p.FaceDown
			view.FlipsLeft = snap.InitialFlipQuota - p.InitialFlips
			continue
		}
		op := OpponentView{Seat: p.Seat, FaceDown: p.FaceDown}
		for i, s := range p.Slots {
			op.Up[i] = s.Card
		}
		view.Opponents = append(view.Opponents, op)
	}
	return view
}

// BrainDecider is the decision contract every bot implements. All methods are
// pure functions of the view (plus the brain's own rng); they never mutate
// game state.
type BrainDecider interface {
	// ChooseInitialFlips returns the positions to reveal before the round.
	ChooseInitialFlips(view GameView) []int
	// ChooseDrawSource picks deck or discard for the turn's draw.
	ChooseDrawSource(view GameView) golf.DrawSource
	// ChooseSwapPos returns the slot to swap the held card into, or ok=false
	// to discard it (ok=false is never returned for a forced discard draw).
	ChooseSwapPos(view GameView) (pos int, ok bool)
	// ChooseFlipPos picks a face-down slot to reveal after a discard.
	ChooseFlipPos(view GameView) int
	// SkipFlip reports whether to decline an optional endgame flip.
	SkipFlip(view GameView) bool
	// WantsEarlyKnock reports whether to knock instead of drawing.
	WantsEarlyKnock(view GameView) bool
	// Name returns a human-readable identifier for debugging.
	Name() string
}
