package golf

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golf-lite/card"
)

// Game owns all round state and is the only mutator of it. External callers
// submit actions through Act; bot seats read snapshots and submit through the
// same path. Not reentrant: every entry point takes the game mutex.
type Game struct {
	cfg Config
	rng *rand.Rand

	mu sync.Mutex

	// seats
	playersBySeat map[uint16]*Player
	seatNodes     map[uint16]*PlayerNode

	// round state
	round int
	phase Phase
	shoe  *Shoe

	dealerNode *PlayerNode
	curNode    *PlayerNode

	heldCard   card.Card
	heldSource DrawSource

	knockerSeat  uint16
	finalTurns   map[uint16]bool // seats still owed a final turn
	flipOptional bool            // endgame flip may be skipped

	ended bool

	lastResult *RoundResult
	totalCards int // conservation target for the current round
}

func NewGame(cfg Config) (*Game, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Game{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(seed)),
		playersBySeat: make(map[uint16]*Player, cfg.MaxPlayers),
		seatNodes:     make(map[uint16]*PlayerNode, cfg.MaxPlayers),
		phase:         PhaseTypeRoundOver,
		knockerSeat:   InvalidSeat,
	}
	return g, nil
}

func (g *Game) Config() Config { return g.cfg }

// SitDown seats a player. Seat changes are only allowed between rounds.
func (g *Game) SitDown(seat uint16, playerID uint64, robot bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return ErrGameOver
	}
	if seat >= uint16(g.cfg.MaxPlayers) {
		return fmt.Errorf("invalid seat %d", seat)
	}
	if g.roundActiveLocked() {
		return ErrRoundInProgress
	}
	if g.playersBySeat[seat] != nil {
		return fmt.Errorf("seat %d already occupied", seat)
	}
	g.playersBySeat[seat] = &Player{
		ID:    playerID,
		Seat:  seat,
		Robot: robot,
	}
	return nil
}

// StandUp removes a player from a seat between rounds.
func (g *Game) StandUp(seat uint16) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if seat >= uint16(g.cfg.MaxPlayers) {
		return fmt.Errorf("invalid seat %d", seat)
	}
	if g.playersBySeat[seat] == nil {
		return fmt.Errorf("seat %d is empty", seat)
	}
	if g.roundActiveLocked() {
		return ErrRoundInProgress
	}

	delete(g.playersBySeat, seat)
	delete(g.seatNodes, seat)

	if g.dealerNode != nil && g.dealerNode.SeatID == seat {
		g.dealerNode = nil
	}
	if g.curNode != nil && g.curNode.SeatID == seat {
		g.curNode = nil
	}
	return nil
}

func (g *Game) Player(seat uint16) *Player {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playersBySeat[seat]
}

func (g *Game) roundActiveLocked() bool {
	return g.round > 0 && !g.ended && g.phase != PhaseTypeRoundOver
}

// StartRound deals the next round: fresh shoe, six face-down cards per
// player, one card opened onto the discard, dealer rotated one seat left.
func (g *Game) StartRound() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startRoundLocked(nil)
}

// StartRoundStacked starts a round with a pre-ordered deck instead of a
// shuffle: deck[0] is dealt first. Replay fixtures and tests only.
func (g *Game) StartRoundStacked(deck []card.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.startRoundLocked(deck)
}

func (g *Game) startRoundLocked(stacked []card.Card) error {
	if g.ended {
		return ErrGameOver
	}
	if g.roundActiveLocked() {
		return ErrRoundInProgress
	}

	seats := g.orderedSeatsLocked()
	if len(seats) < g.cfg.MinPlayers {
		return fmt.Errorf("not enough players: %d < %d", len(seats), g.cfg.MinPlayers)
	}

	g.round++

	// Rebuild ring list nodes in seat order
	g.seatNodes = make(map[uint16]*PlayerNode, len(seats))
	var first, last *PlayerNode
	for _, seat := range seats {
		p := g.playersBySeat[seat]
		p.ResetForNewRound()
		node := &PlayerNode{SeatID: seat, Player: p}
		g.seatNodes[seat] = node
		if first == nil {
			first = node
		}
		if last != nil {
			last.Next = node
		}
		last = node
	}
	if first != nil && last != nil {
		last.Next = first
	}

	g.selectDealerLocked()

	// Fresh shoe every round
	if stacked != nil {
		g.totalCards = len(stacked)
		g.shoe = newStackedShoe(stacked, g.rng)
	} else {
		cards := card.NewShoeCards(g.cfg.Decks, g.cfg.Rules.UseJokers)
		g.totalCards = len(cards)
		g.shoe = newShoe(cards, g.rng)
	}

	// Deal one card at a time starting left of the dealer
	for i := 0; i < HandSize; i++ {
		var dealErr error
		g.dealerNode.Next.WalkAll(func(cur *PlayerNode) {
			c, err := g.shoe.Draw()
			if err != nil {
				dealErr = err
				return
			}
			cur.Player.hand.slots[i] = Slot{Card: c}
		})
		if dealErr != nil {
			return dealErr
		}
	}

	// Open the discard pile
	c, err := g.shoe.Draw()
	if err != nil {
		return err
	}
	g.shoe.PushDiscard(c)

	g.heldCard = card.CardInvalid
	g.heldSource = DrawSourceNone
	g.knockerSeat = InvalidSeat
	g.finalTurns = nil
	g.flipOptional = false
	g.lastResult = nil

	if g.cfg.InitialFlips > 0 {
		g.phase = PhaseTypeInitialFlip
		g.curNode = nil
	} else {
		g.phase = PhaseTypeAwaitingDraw
		g.curNode = g.dealerNode.Next
	}
	return nil
}

func (g *Game) orderedSeatsLocked() []uint16 {
	seats := make([]uint16, 0, len(g.playersBySeat))
	for seat := range g.playersBySeat {
		seats = append(seats, seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i] < seats[j] })
	return seats
}

func (g *Game) selectDealerLocked() {
	// first round: random dealer, then rotate left each round
	if g.round == 1 || g.dealerNode == nil {
		if g.cfg.ForcedDealerSeat != nil {
			if node, ok := g.seatNodes[*g.cfg.ForcedDealerSeat]; ok {
				g.dealerNode = node
				return
			}
		}
		seats := g.orderedSeatsLocked()
		g.dealerNode = g.seatNodes[seats[g.rng.Intn(len(seats))]]
		return
	}
	prev := g.dealerNode.SeatID
	if node, ok := g.seatNodes[prev]; ok && node.Next != nil {
		g.dealerNode = node.Next
		return
	}
	// previous dealer stood up; fall back to the lowest seat
	seats := g.orderedSeatsLocked()
	g.dealerNode = g.seatNodes[seats[0]]
}

// Act validates and applies one player action. On rejection the returned
// error is one of the sentinel kinds and state is untouched; no partial
// mutation ever escapes. The returned events are, in order, everything a
// consumer needs to mirror the mutation.
func (g *Game) Act(seat uint16, act Action) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.actLocked(seat, act)
}

// ForceCurrent applies the provided action on behalf of whoever holds the
// turn. Surrounding systems use it for AI-takeover or skip-after-timeout;
// the core does not decide that policy.
func (g *Game) ForceCurrent(act Action) ([]Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.curNode == nil {
		return nil, ErrInvalidActionForPhase
	}
	return g.actLocked(g.curNode.SeatID, act)
}

func (g *Game) actLocked(seat uint16, act Action) ([]Event, error) {
	if g.ended {
		return nil, ErrGameOver
	}
	p := g.playersBySeat[seat]
	if p == nil {
		return nil, fmt.Errorf("unknown seat %d", seat)
	}

	var (
		events []Event
		err    error
	)
	switch g.phase {
	case PhaseTypeInitialFlip:
		events, err = g.actInitialFlipLocked(p, act)
	case PhaseTypeAwaitingDraw, PhaseTypeHoldingCard, PhaseTypeWaitingForFlip:
		if g.curNode == nil || g.curNode.SeatID != seat {
			return nil, ErrNotYourTurn
		}
		switch g.phase {
		case PhaseTypeAwaitingDraw:
			events, err = g.actAwaitingDrawLocked(p, act)
		case PhaseTypeHoldingCard:
			events, err = g.actHoldingCardLocked(p, act)
		default:
			events, err = g.actWaitingForFlipLocked(p, act)
		}
	default:
		return nil, ErrInvalidActionForPhase
	}
	if err != nil {
		return nil, err
	}
	if cerr := g.checkConservationLocked(); cerr != nil {
		return events, cerr
	}
	return events, nil
}

// actInitialFlipLocked handles the pre-round reveal. It is not turn-bound:
// players flip their quota in any order.
func (g *Game) actInitialFlipLocked(p *Player, act Action) ([]Event, error) {
	if act.Type != PlayerActionTypeFlip {
		return nil, ErrInvalidActionForPhase
	}
	if p.initialFlips >= g.cfg.InitialFlips {
		return nil, ErrInvalidActionForPhase
	}
	if act.Pos < 0 || act.Pos >= HandSize {
		return nil, ErrInvalidPosition
	}
	if p.hand.Slot(act.Pos).FaceUp {
		return nil, ErrInvalidPosition
	}

	p.hand.Flip(act.Pos)
	p.initialFlips++
	events := []Event{{
		Type: EventTypeHandUpdate,
		Seat: p.Seat,
		Pos:  act.Pos,
		Card: p.hand.Slot(act.Pos).Card,
	}}

	done := true
	for _, node := range g.seatNodes {
		if node.Player.initialFlips < g.cfg.InitialFlips {
			done = false
			break
		}
	}
	if done {
		g.phase = PhaseTypeAwaitingDraw
		g.curNode = g.dealerNode.Next
		events = append(events, g.turnEventLocked())
	}
	return events, nil
}

func (g *Game) actAwaitingDrawLocked(p *Player, act Action) ([]Event, error) {
	switch act.Type {
	case PlayerActionTypeDraw:
		switch act.Source {
		case DrawSourceDeck:
			c, err := g.shoe.Draw()
			if err != nil {
				return nil, err
			}
			g.heldCard = c
			g.heldSource = DrawSourceDeck
			g.phase = PhaseTypeHoldingCard
			return []Event{{
				Type:   EventTypeCardDrawn,
				Seat:   p.Seat,
				Card:   c,
				Source: DrawSourceDeck,
			}}, nil
		case DrawSourceDiscard:
			c, err := g.shoe.TakeDiscard()
			if err != nil {
				return nil, err
			}
			g.heldCard = c
			g.heldSource = DrawSourceDiscard
			g.phase = PhaseTypeHoldingCard
			return []Event{
				{Type: EventTypeCardDrawn, Seat: p.Seat, Card: c, Source: DrawSourceDiscard},
				{Type: EventTypeDiscard, Card: g.shoe.DiscardTop()},
			}, nil
		default:
			return nil, ErrInvalidActionForPhase
		}

	case PlayerActionTypeKnock:
		if !g.cfg.Rules.EarlyKnock {
			return nil, ErrInvalidActionForPhase
		}
		var events []Event
		g.revealHandLocked(p, &events)
		g.setKnockerLocked(p.Seat, &events)
		g.advanceTurnLocked(&events)
		return events, nil

	default:
		return nil, ErrInvalidActionForPhase
	}
}

func (g *Game) actHoldingCardLocked(p *Player, act Action) ([]Event, error) {
	switch act.Type {
	case PlayerActionTypeSwap:
		if act.Pos < 0 || act.Pos >= HandSize {
			return nil, ErrInvalidPosition
		}
		held := g.heldCard
		removed := p.hand.Swap(act.Pos, held)
		g.shoe.PushDiscard(removed)
		g.heldCard = card.CardInvalid
		g.heldSource = DrawSourceNone

		events := []Event{
			{Type: EventTypeHandUpdate, Seat: p.Seat, Pos: act.Pos, Card: held, Removed: removed},
			{Type: EventTypeDiscard, Card: removed},
		}
		if p.hand.AllFaceUp() && g.knockerSeat == InvalidSeat {
			g.setKnockerLocked(p.Seat, &events)
		}
		g.advanceTurnLocked(&events)
		return events, nil

	case PlayerActionTypeDiscard:
		// A card taken from the discard pile must be swapped in.
		if g.heldSource == DrawSourceDiscard {
			return nil, ErrInvalidActionForPhase
		}
		held := g.heldCard
		g.shoe.PushDiscard(held)
		g.heldCard = card.CardInvalid
		g.heldSource = DrawSourceNone

		events := []Event{{Type: EventTypeDiscard, Card: held}}
		switch g.cfg.Rules.FlipMode {
		case FlipAlways:
			if p.hand.FaceDownCount() > 0 {
				g.phase = PhaseTypeWaitingForFlip
				g.flipOptional = false
				events = append(events, g.turnEventLocked())
				return events, nil
			}
		case FlipEndgame:
			if g.endgameLocked() && p.hand.FaceDownCount() > 0 {
				g.phase = PhaseTypeWaitingForFlip
				g.flipOptional = true
				events = append(events, g.turnEventLocked())
				return events, nil
			}
		}
		g.advanceTurnLocked(&events)
		return events, nil

	default:
		return nil, ErrInvalidActionForPhase
	}
}

func (g *Game) actWaitingForFlipLocked(p *Player, act Action) ([]Event, error) {
	switch act.Type {
	case PlayerActionTypeFlip:
		if act.Pos < 0 || act.Pos >= HandSize {
			return nil, ErrInvalidPosition
		}
		if p.hand.Slot(act.Pos).FaceUp {
			return nil, ErrInvalidPosition
		}
		p.hand.Flip(act.Pos)
		events := []Event{{
			Type: EventTypeHandUpdate,
			Seat: p.Seat,
			Pos:  act.Pos,
			Card: p.hand.Slot(act.Pos).Card,
		}}
		if p.hand.AllFaceUp() && g.knockerSeat == InvalidSeat {
			g.setKnockerLocked(p.Seat, &events)
		}
		g.advanceTurnLocked(&events)
		return events, nil

	case PlayerActionTypeSkipFlip:
		if !g.flipOptional {
			return nil, ErrInvalidActionForPhase
		}
		var events []Event
		g.advanceTurnLocked(&events)
		return events, nil

	default:
		return nil, ErrInvalidActionForPhase
	}
}

// endgameLocked reports whether any player is down to at most one hidden card.
func (g *Game) endgameLocked() bool {
	for _, node := range g.seatNodes {
		if node.Player.hand.FaceDownCount() <= 1 {
			return true
		}
	}
	return false
}

// revealHandLocked flips every remaining face-down slot of p.
func (g *Game) revealHandLocked(p *Player, events *[]Event) {
	for pos := 0; pos < HandSize; pos++ {
		if p.hand.Slot(pos).FaceUp {
			continue
		}
		p.hand.Flip(pos)
		*events = append(*events, Event{
			Type: EventTypeHandUpdate,
			Seat: p.Seat,
			Pos:  pos,
			Card: p.hand.Slot(pos).Card,
		})
	}
}

// setKnockerLocked marks seat as the knocker and grants every other player
// exactly one final turn.
func (g *Game) setKnockerLocked(seat uint16, events *[]Event) {
	if g.knockerSeat != InvalidSeat {
		return
	}
	g.knockerSeat = seat
	g.finalTurns = make(map[uint16]bool, len(g.seatNodes)-1)
	for s := range g.seatNodes {
		if s != seat {
			g.finalTurns[s] = true
		}
	}
	*events = append(*events, Event{Type: EventTypeKnock, Seat: seat})
}

// advanceTurnLocked closes the current player's turn and hands the round to
// the next actor, ending the round when every final turn has been spent.
func (g *Game) advanceTurnLocked(events *[]Event) {
	cur := g.curNode
	g.flipOptional = false

	if g.knockerSeat != InvalidSeat {
		delete(g.finalTurns, cur.SeatID)
		if len(g.finalTurns) == 0 {
			g.endRoundLocked(events)
			return
		}
		g.curNode = cur.Next.WalkOnce(func(n *PlayerNode) bool {
			return g.finalTurns[n.SeatID]
		})
	} else {
		g.curNode = cur.Next
	}
	g.phase = PhaseTypeAwaitingDraw
	*events = append(*events, g.turnEventLocked())
}

func (g *Game) turnEventLocked() Event {
	seat := InvalidSeat
	if g.curNode != nil {
		seat = g.curNode.SeatID
	}
	return Event{Type: EventTypeTurn, Seat: seat, Phase: g.phase}
}

func (g *Game) endRoundLocked(events *[]Event) {
	// Reveal everything still hidden, then score.
	g.dealerNode.WalkAll(func(cur *PlayerNode) {
		g.revealHandLocked(cur.Player, events)
	})

	players := make([]*Player, 0, len(g.seatNodes))
	for _, seat := range g.orderedSeatsLocked() {
		if node, ok := g.seatNodes[seat]; ok {
			players = append(players, node.Player)
		}
	}

	result := Settle(players, g.knockerSeat, g.cfg.Rules)
	result.Round = g.round
	for i := range result.Scores {
		p := g.playersBySeat[result.Scores[i].Seat]
		p.addScore(result.Scores[i].Adjusted)
		result.Scores[i].Total = p.totalScore
	}
	g.lastResult = result
	g.curNode = nil

	*events = append(*events, Event{Type: EventTypeRoundOver, Result: result})

	if g.round >= g.cfg.TotalRounds {
		g.ended = true
		g.phase = PhaseTypeGameOver
		*events = append(*events, Event{Type: EventTypeGameOver, Result: result})
	} else {
		g.phase = PhaseTypeRoundOver
	}
}

// checkConservationLocked verifies that every card dealt into the round is
// still accounted for. A mismatch is a fatal engine bug, never a user error.
func (g *Game) checkConservationLocked() error {
	if g.shoe == nil || g.totalCards == 0 {
		return nil
	}
	n := g.shoe.DrawCount() + g.shoe.DiscardCount()
	for _, node := range g.seatNodes {
		for _, c := range node.Player.hand.Cards() {
			if c != card.CardInvalid {
				n++
			}
		}
	}
	if g.heldCard != card.CardInvalid {
		n++
	}
	if n != g.totalCards {
		return ErrInvariant(fmt.Sprintf("card count %d != %d in play", n, g.totalCards))
	}
	return nil
}
