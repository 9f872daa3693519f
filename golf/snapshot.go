package golf

import "golf-lite/card"

type SlotSnapshot struct {
	Card   card.Card
	FaceUp bool
}

type PlayerSnapshot struct {
	ID    uint64
	Seat  uint16
	Robot bool

	Slots        [HandSize]SlotSnapshot
	FaceDown     int
	InitialFlips int // flips already performed during the reveal

	RoundScore int
	TotalScore int
}

// Snapshot is the engine-truth state: face-down ranks included. Only the
// scoring path and the transport codec may hold one unfiltered; everything
// player-facing goes through ViewFor first.
type Snapshot struct {
	Round       int
	TotalRounds int
	Phase       Phase
	Ended       bool

	DealerSeat uint16
	ActionSeat uint16

	HeldCard   card.Card
	HeldSource DrawSource

	KnockerSeat    uint16
	FinalTurnSeats []uint16

	DiscardTop   card.Card
	DrawCount    int
	DiscardCount int
	FlipOptional bool

	InitialFlipQuota int
	Rules            HouseRules

	Players []PlayerSnapshot

	LastResult *RoundResult
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Snapshot{
		Round:            g.round,
		TotalRounds:      g.cfg.TotalRounds,
		Phase:            g.phase,
		Ended:            g.ended,
		DealerSeat:       InvalidSeat,
		ActionSeat:       InvalidSeat,
		HeldCard:         g.heldCard,
		HeldSource:       g.heldSource,
		KnockerSeat:      g.knockerSeat,
		FlipOptional:     g.flipOptional,
		InitialFlipQuota: g.cfg.InitialFlips,
		Rules:            g.cfg.Rules,
		LastResult:       g.lastResult,
	}
	if g.dealerNode != nil {
		s.DealerSeat = g.dealerNode.SeatID
	}
	if g.curNode != nil {
		s.ActionSeat = g.curNode.SeatID
	}
	if g.shoe != nil {
		s.DiscardTop = g.shoe.DiscardTop()
		s.DrawCount = g.shoe.DrawCount()
		s.DiscardCount = g.shoe.DiscardCount()
	}
	for seat := range g.finalTurns {
		s.FinalTurnSeats = append(s.FinalTurnSeats, seat)
	}

	for _, seat := range g.orderedSeatsLocked() {
		p := g.playersBySeat[seat]
		ps := PlayerSnapshot{
			ID:           p.ID,
			Seat:         p.Seat,
			Robot:        p.Robot,
			FaceDown:     p.hand.FaceDownCount(),
			InitialFlips: p.initialFlips,
			RoundScore:   p.roundScore,
			TotalScore:   p.totalScore,
		}
		for i := 0; i < HandSize; i++ {
			slot := p.hand.Slot(i)
			ps.Slots[i] = SlotSnapshot{Card: slot.Card, FaceUp: slot.FaceUp}
		}
		s.Players = append(s.Players, ps)
	}
	return s
}

/// ViewFor projects the snapshot down to what seat is allowed to see: every
// face-down rank (including the viewer's own) becomes CardRear, and a
// deck-drawn held card is visible only to the player holding it. This is the
// only state bot brains and clients ever receive.
func (s Snapshot) ViewFor(seat uint16) Snapshot {
	out := s
	out.Players = make([]PlayerSnapshot, len(s.Players))
	copy(out.Players, s.Players)

	for i := range out.Players {
		for j := range out.Players[i].Slots {
			if !out.Players[i].Slots[j].FaceUp {
				out.Players[i].Slots[j].Card = card.CardRear
			}
		}
	}
	if s.HeldSource == DrawSourceDeck && s.ActionSeat != seat {
		out.HeldCard = card.CardRear
	}
	return out
}
