package golf

import (
	"errors"
	"reflect"
	"testing"

	"golf-lite/card"
)

func newTestGame(t *testing.T, players int, mut func(*Config)) *Game {
	t.Helper()
	cfg := Config{
		MaxPlayers:  6,
		MinPlayers:  2,
		Decks:       1,
		TotalRounds: 9,
		Seed:        7,
	}
	if mut != nil {
		mut(&cfg)
	}
	g, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame err: %v", err)
	}
	for i := 0; i < players; i++ {
		if err := g.SitDown(uint16(i), uint64(10001+i), false); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

// completeInitialFlips flips positions 0 and 4 (different columns) for every
// seated player, ending the reveal phase.
func completeInitialFlips(t *testing.T, g *Game) {
	t.Helper()
	snap := g.Snapshot()
	if snap.Phase != PhaseTypeInitialFlip {
		t.Fatalf("expected initial flip phase, got %v", snap.Phase)
	}
	for _, p := range snap.Players {
		for _, pos := range []int{0, 4} {
			if _, err := g.Act(p.Seat, Action{Type: PlayerActionTypeFlip, Pos: pos}); err != nil {
				t.Fatalf("initial flip seat %d pos %d: %v", p.Seat, pos, err)
			}
		}
	}
}

// findCardRef locates a card anywhere in the live round state.
func findCardRef(g *Game, c card.Card) *card.Card {
	for i := range g.shoe.draw {
		if g.shoe.draw[i] == c {
			return &g.shoe.draw[i]
		}
	}
	for i := range g.shoe.discard {
		if g.shoe.discard[i] == c {
			return &g.shoe.discard[i]
		}
	}
	for _, node := range g.seatNodes {
		for i := range node.Player.hand.slots {
			if node.Player.hand.slots[i].Card == c {
				return &node.Player.hand.slots[i].Card
			}
		}
	}
	return nil
}

// swapCardLocations exchanges where two cards live, preserving conservation.
func swapCardLocations(t *testing.T, g *Game, a, b card.Card) {
	t.Helper()
	if a == b {
		return
	}
	pa := findCardRef(g, a)
	pb := findCardRef(g, b)
	if pa == nil || pb == nil {
		t.Fatalf("card not found: %v=%v %v=%v", a, pa, b, pb)
	}
	*pa, *pb = *pb, *pa
}

func TestInitialFlip_QuotaAndTransition(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatalf("StartRound err: %v", err)
	}

	snap := g.Snapshot()
	if snap.Phase != PhaseTypeInitialFlip {
		t.Fatalf("expected initial flip, got %v", snap.Phase)
	}
	if snap.ActionSeat != InvalidSeat {
		t.Fatalf("no seat should hold the turn during the reveal, got %d", snap.ActionSeat)
	}

	// Seat 0 flips its quota; a third flip is rejected.
	for _, pos := range []int{0, 4} {
		if _, err := g.Act(0, Action{Type: PlayerActionTypeFlip, Pos: pos}); err != nil {
			t.Fatalf("flip err: %v", err)
		}
	}
	if _, err := g.Act(0, Action{Type: PlayerActionTypeFlip, Pos: 1}); !errors.Is(err, ErrInvalidActionForPhase) {
		t.Fatalf("expected quota rejection, got %v", err)
	}

	// Re-flipping a face-up slot is an invalid position.
	if _, err := g.Act(1, Action{Type: PlayerActionTypeFlip, Pos: 0}); err != nil {
		t.Fatalf("flip err: %v", err)
	}
	if _, err := g.Act(1, Action{Type: PlayerActionTypeFlip, Pos: 0}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected invalid position, got %v", err)
	}
	if _, err := g.Act(1, Action{Type: PlayerActionTypeFlip, Pos: 4}); err != nil {
		t.Fatalf("flip err: %v", err)
	}

	snap = g.Snapshot()
	if snap.Phase != PhaseTypeAwaitingDraw {
		t.Fatalf("expected awaiting draw after reveal, got %v", snap.Phase)
	}
	// Dealer's left acts first.
	wantFirst := uint16(0)
	if snap.DealerSeat == 0 {
		wantFirst = 1
	}
	if snap.ActionSeat != wantFirst {
		t.Fatalf("first action seat = %d, want %d (dealer=%d)", snap.ActionSeat, wantFirst, snap.DealerSeat)
	}
}

func TestForcedSwap_AfterDiscardDraw(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	seat := g.Snapshot().ActionSeat
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDiscard}); err != nil {
		t.Fatalf("draw from discard err: %v", err)
	}

	// discard() is rejected until a swap completes, and rejection is
	// idempotent: same error, no state drift.
	before := g.Snapshot()
	_, err1 := g.Act(seat, Action{Type: PlayerActionTypeDiscard})
	_, err2 := g.Act(seat, Action{Type: PlayerActionTypeDiscard})
	if !errors.Is(err1, ErrInvalidActionForPhase) || !errors.Is(err2, ErrInvalidActionForPhase) {
		t.Fatalf("expected forced-swap rejection, got %v / %v", err1, err2)
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatal("rejected action mutated state")
	}

	if _, err := g.Act(seat, Action{Type: PlayerActionTypeSwap, Pos: 2}); err != nil {
		t.Fatalf("swap err: %v", err)
	}
	after := g.Snapshot()
	if after.ActionSeat == seat {
		t.Fatal("turn did not pass after swap")
	}
	if after.Phase != PhaseTypeAwaitingDraw {
		t.Fatalf("expected awaiting draw, got %v", after.Phase)
	}
}

// The worked example: a King drawn from the deck swapped into slot 0 over a
// 9 of hearts. flip_mode=never, so the turn passes directly.
func TestScenario_KingSwap(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	seat := g.Snapshot().ActionSeat
	actor := g.playersBySeat[seat]

	swapCardLocations(t, g, actor.hand.slots[0].Card, card.CardHeart9)
	swapCardLocations(t, g, g.shoe.draw[len(g.shoe.draw)-1], card.CardSpadeK)

	events, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck})
	if err != nil {
		t.Fatalf("draw err: %v", err)
	}
	if events[0].Type != EventTypeCardDrawn || events[0].Card != card.CardSpadeK {
		t.Fatalf("drawn event = %+v, want spade king", events[0])
	}

	if _, err := g.Act(seat, Action{Type: PlayerActionTypeSwap, Pos: 0}); err != nil {
		t.Fatalf("swap err: %v", err)
	}

	snap := g.Snapshot()
	var actorSnap PlayerSnapshot
	for _, p := range snap.Players {
		if p.Seat == seat {
			actorSnap = p
		}
	}
	if actorSnap.Slots[0].Card != card.CardSpadeK || !actorSnap.Slots[0].FaceUp {
		t.Fatalf("slot 0 = %+v, want face-up spade king", actorSnap.Slots[0])
	}
	if snap.DiscardTop != card.CardHeart9 {
		t.Fatalf("discard top = %v, want heart 9", snap.DiscardTop)
	}
	if snap.ActionSeat == seat || snap.Phase != PhaseTypeAwaitingDraw {
		t.Fatalf("turn did not pass: seat=%d phase=%v", snap.ActionSeat, snap.Phase)
	}
}

func TestFlipMode_Always(t *testing.T) {
	g := newTestGame(t, 2, func(c *Config) { c.Rules.FlipMode = FlipAlways })
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	seat := g.Snapshot().ActionSeat
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDiscard}); err != nil {
		t.Fatal(err)
	}

	snap := g.Snapshot()
	if snap.Phase != PhaseTypeWaitingForFlip || snap.ActionSeat != seat {
		t.Fatalf("expected mandatory flip for seat %d, got phase=%v seat=%d", seat, snap.Phase, snap.ActionSeat)
	}

	// The flip is mandatory: skipping is rejected, as is a face-up target.
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeSkipFlip}); !errors.Is(err, ErrInvalidActionForPhase) {
		t.Fatalf("expected skip rejection, got %v", err)
	}
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeFlip, Pos: 0}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected face-up rejection, got %v", err)
	}
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeFlip, Pos: 1}); err != nil {
		t.Fatalf("flip err: %v", err)
	}
	if after := g.Snapshot(); after.ActionSeat == seat || after.Phase != PhaseTypeAwaitingDraw {
		t.Fatalf("turn did not pass after flip: %+v", after.Phase)
	}
}

func TestFlipMode_Endgame(t *testing.T) {
	g := newTestGame(t, 2, func(c *Config) { c.Rules.FlipMode = FlipEndgame })
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	// Nobody is near the end: discard passes the turn directly.
	seat := g.Snapshot().ActionSeat
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDiscard}); err != nil {
		t.Fatal(err)
	}
	if snap := g.Snapshot(); snap.Phase != PhaseTypeAwaitingDraw || snap.ActionSeat == seat {
		t.Fatalf("expected direct turn pass, got phase=%v", snap.Phase)
	}

	// Push the other player to one face-down card: endgame begins and the
	// post-discard flip becomes available but optional.
	seat2 := g.Snapshot().ActionSeat
	other := g.playersBySeat[seat2]
	for pos := 0; pos < HandSize-1; pos++ {
		other.hand.slots[pos].FaceUp = true
	}

	if _, err := g.Act(seat2, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Act(seat2, Action{Type: PlayerActionTypeDiscard}); err != nil {
		t.Fatal(err)
	}
	snap := g.Snapshot()
	if snap.Phase != PhaseTypeWaitingForFlip || !snap.FlipOptional {
		t.Fatalf("expected optional endgame flip, got phase=%v optional=%v", snap.Phase, snap.FlipOptional)
	}
	if _, err := g.Act(seat2, Action{Type: PlayerActionTypeSkipFlip}); err != nil {
		t.Fatalf("skip err: %v", err)
	}
	if after := g.Snapshot(); after.ActionSeat != seat || after.Phase != PhaseTypeAwaitingDraw {
		t.Fatalf("turn did not return: seat=%d phase=%v", after.ActionSeat, after.Phase)
	}
}

func TestEarlyKnock_FinalTurnsAndRoundOver(t *testing.T) {
	g := newTestGame(t, 3, func(c *Config) {
		c.Rules.EarlyKnock = true
	})
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	knocker := g.Snapshot().ActionSeat
	events, err := g.Act(knocker, Action{Type: PlayerActionTypeKnock})
	if err != nil {
		t.Fatalf("knock err: %v", err)
	}
	foundKnock := false
	for _, e := range events {
		if e.Type == EventTypeKnock && e.Seat == knocker {
			foundKnock = true
		}
	}
	if !foundKnock {
		t.Fatal("no knock event emitted")
	}

	snap := g.Snapshot()
	if snap.KnockerSeat != knocker {
		t.Fatalf("knocker seat = %d, want %d", snap.KnockerSeat, knocker)
	}
	if len(snap.FinalTurnSeats) != 2 {
		t.Fatalf("final turn seats = %v, want 2 entries", snap.FinalTurnSeats)
	}

	// Exactly N-1 further turns, then the round settles.
	for i := 0; i < 2; i++ {
		seat := g.Snapshot().ActionSeat
		if seat == knocker {
			t.Fatal("knocker got another turn")
		}
		if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); err != nil {
			t.Fatal(err)
		}
		if _, err := g.Act(seat, Action{Type: PlayerActionTypeDiscard}); err != nil {
			t.Fatal(err)
		}
	}

	snap = g.Snapshot()
	if snap.Phase != PhaseTypeRoundOver {
		t.Fatalf("expected round over, got %v", snap.Phase)
	}
	if snap.LastResult == nil || snap.LastResult.KnockerSeat != knocker {
		t.Fatalf("missing settlement: %+v", snap.LastResult)
	}
	for _, p := range snap.Players {
		if p.FaceDown != 0 {
			t.Fatalf("seat %d still has %d hidden cards after settle", p.Seat, p.FaceDown)
		}
	}

	// Nothing more happens until the next round is dealt.
	if _, err := g.Act(knocker, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); !errors.Is(err, ErrInvalidActionForPhase) {
		t.Fatalf("expected phase rejection, got %v", err)
	}
}

func TestEarlyKnock_Disabled(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	seat := g.Snapshot().ActionSeat
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeKnock}); !errors.Is(err, ErrInvalidActionForPhase) {
		t.Fatalf("expected knock rejection, got %v", err)
	}
}

func TestNotYourTurn(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	snap := g.Snapshot()
	wrong := uint16(0)
	if snap.ActionSeat == 0 {
		wrong = 1
	}
	before := g.Snapshot()
	for i := 0; i < 2; i++ {
		if _, err := g.Act(wrong, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); !errors.Is(err, ErrNotYourTurn) {
			t.Fatalf("expected out-of-turn rejection, got %v", err)
		}
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Fatal("rejected action mutated state")
	}
}

func TestDrawFromEmptyDiscard(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	// Move the opened discard back into the draw pile.
	c, err := g.shoe.TakeDiscard()
	if err != nil {
		t.Fatal(err)
	}
	g.shoe.draw.Add(c)

	seat := g.Snapshot().ActionSeat
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDiscard}); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected empty source rejection, got %v", err)
	}
}

func TestGameOver_AfterTotalRounds(t *testing.T) {
	g := newTestGame(t, 2, func(c *Config) {
		c.TotalRounds = 1
		c.Rules.EarlyKnock = true
	})
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	completeInitialFlips(t, g)

	knocker := g.Snapshot().ActionSeat
	if _, err := g.Act(knocker, Action{Type: PlayerActionTypeKnock}); err != nil {
		t.Fatal(err)
	}
	seat := g.Snapshot().ActionSeat
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); err != nil {
		t.Fatal(err)
	}
	events, err := g.Act(seat, Action{Type: PlayerActionTypeDiscard})
	if err != nil {
		t.Fatal(err)
	}

	sawGameOver := false
	for _, e := range events {
		if e.Type == EventTypeGameOver {
			sawGameOver = true
		}
	}
	if !sawGameOver {
		t.Fatal("no game_over event on final round")
	}
	if snap := g.Snapshot(); snap.Phase != PhaseTypeGameOver || !snap.Ended {
		t.Fatalf("expected game over, got %v", snap.Phase)
	}
	if err := g.StartRound(); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected game over rejection, got %v", err)
	}
	if _, err := g.Act(seat, Action{Type: PlayerActionTypeDraw, Source: DrawSourceDeck}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected game over rejection, got %v", err)
	}
}

func TestSeatChanges_RejectedMidRound(t *testing.T) {
	g := newTestGame(t, 2, nil)
	if err := g.StartRound(); err != nil {
		t.Fatal(err)
	}
	if err := g.SitDown(2, 30001, false); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("expected mid-round rejection, got %v", err)
	}
	if err := g.StandUp(0); !errors.Is(err, ErrRoundInProgress) {
		t.Fatalf("expected mid-round rejection, got %v", err)
	}
}

func TestStackedDeck_DealOrder(t *testing.T) {
	g := newTestGame(t, 2, func(c *Config) { c.InitialFlips = 1 })
	deck := card.NewShoeCards(1, false)
	if err := g.StartRoundStacked(deck); err != nil {
		t.Fatal(err)
	}

	// Dealing starts left of the dealer, one card per player per pass, then
	// one card opens the discard. With an unshuffled deck that layout is
	// fully predictable.
	snap := g.Snapshot()
	first := snap.DealerSeat ^ 1 // two players: dealer's left is the other seat
	var firstHand, dealerHand PlayerSnapshot
	for _, p := range snap.Players {
		if p.Seat == first {
			firstHand = p
		} else {
			dealerHand = p
		}
	}
	for i := 0; i < HandSize; i++ {
		if firstHand.Slots[i].Card != deck[i*2] {
			t.Fatalf("first player slot %d = %v, want %v", i, firstHand.Slots[i].Card, deck[i*2])
		}
		if dealerHand.Slots[i].Card != deck[i*2+1] {
			t.Fatalf("dealer slot %d = %v, want %v", i, dealerHand.Slots[i].Card, deck[i*2+1])
		}
	}
	if snap.DiscardTop != deck[12] {
		t.Fatalf("discard top = %v, want %v", snap.DiscardTop, deck[12])
	}
}
