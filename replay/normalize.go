package replay

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"golf-lite/card"
	"golf-lite/golf"
)

type normalizedSeat struct {
	seat   uint16
	userID uint64
	name   string
	isHero bool
}

type normalizedAction struct {
	phase golf.Phase
	seat  uint16
	act   golf.Action
}

type normalizedSpec struct {
	maxPlayers   int
	decks        int
	initialFlips int
	rules        golf.HouseRules
	dealerSeat   uint16
	seats        []normalizedSeat
	names        map[uint16]string
	heroSeat     uint16
	deck         []card.Card
	actions      []normalizedAction
}

func normalizeSpec(spec RoundSpec) (normalizedSpec, error) {
	var out normalizedSpec

	if spec.Variant != "" && !strings.EqualFold(spec.Variant, "golf") {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_variant", Message: "only golf is supported"}
	}
	out.maxPlayers = int(spec.Table.MaxPlayers)
	if out.maxPlayers < 2 || out.maxPlayers > 6 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_table", Message: "table.max_players must be in [2,6]"}
	}
	out.decks = spec.Table.Decks
	if out.decks == 0 {
		out.decks = 1
	}
	if out.decks < 1 || out.decks > 2 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_table", Message: "table.decks must be 1 or 2"}
	}
	out.initialFlips = 2
	if spec.Table.InitialFlips != nil {
		out.initialFlips = *spec.Table.InitialFlips
	}
	if out.initialFlips < 0 || out.initialFlips >= golf.HandSize {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_table", Message: "table.initial_flips out of range"}
	}

	rules, err := parseRules(spec.Rules)
	if err != nil {
		return out, err
	}
	out.rules = rules

	if len(spec.Seats) < 2 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_seats", Message: "at least 2 seats are required"}
	}
	out.names = make(map[uint16]string, len(spec.Seats))
	seen := make(map[uint16]struct{}, len(spec.Seats))
	heroCount := 0
	for i, seat := range spec.Seats {
		if int(seat.Seat) >= out.maxPlayers {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_seat", Message: fmt.Sprintf("seat spec %d out of range", i)}
		}
		if _, exists := seen[seat.Seat]; exists {
			return out, &ReplayError{StepIndex: -1, Reason: "duplicate_seat", Message: fmt.Sprintf("duplicate seat %d", seat.Seat)}
		}
		seen[seat.Seat] = struct{}{}

		userID := seat.UserID
		if userID == 0 {
			userID = 100000 + uint64(seat.Seat)
		}
		name := strings.TrimSpace(seat.Name)
		if name == "" {
			name = fmt.Sprintf("P%d", seat.Seat)
		}
		ns := normalizedSeat{seat: seat.Seat, userID: userID, name: name, isHero: seat.IsHero}
		if ns.isHero {
			heroCount++
			out.heroSeat = ns.seat
		}
		out.seats = append(out.seats, ns)
		out.names[ns.seat] = name
	}
	sort.Slice(out.seats, func(i, j int) bool { return out.seats[i].seat < out.seats[j].seat })
	if heroCount == 0 {
		out.heroSeat = out.seats[0].seat
	} else if heroCount > 1 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_hero", Message: "multiple seats marked as hero"}
	}

	out.dealerSeat = spec.DealerSeat
	if _, ok := seen[out.dealerSeat]; !ok {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_dealer", Message: "dealer_seat is not seated"}
	}

	out.deck, err = parseOrBuildDeck(spec.Deck, out.decks, out.rules.UseJokers, seedFromSpec(spec.RNG))
	if err != nil {
		return out, err
	}

	out.actions = make([]normalizedAction, 0, len(spec.Actions))
	for i, a := range spec.Actions {
		phase, err := parsePhaseName(a.Phase)
		if err != nil {
			return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_phase", Message: err.Error()}
		}
		act, err := parseAction(a)
		if err != nil {
			return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_action", Message: err.Error()}
		}
		if _, ok := seen[a.Seat]; !ok {
			return out, &ReplayError{StepIndex: int32(i), Reason: "invalid_action_seat", Message: fmt.Sprintf("seat %d not seated", a.Seat)}
		}
		out.actions = append(out.actions, normalizedAction{phase: phase, seat: a.Seat, act: act})
	}
	return out, nil
}

func parseRules(spec RulesSpec) (golf.HouseRules, error) {
	rules := golf.HouseRules{
		SuperKings:    spec.SuperKings,
		TenPenny:      spec.TenPenny,
		UseJokers:     spec.UseJokers,
		LuckySwing:    spec.LuckySwing,
		EagleEye:      spec.EagleEye,
		KnockBonus:    spec.KnockBonus,
		KnockPenalty:  spec.KnockPenalty,
		UnderdogBonus: spec.UnderdogBonus,
		TiedShame:     spec.TiedShame,
		Blackjack:     spec.Blackjack,
		EarlyKnock:    spec.EarlyKnock,
	}
	switch strings.ToLower(strings.TrimSpace(spec.FlipMode)) {
	case "", "never":
		rules.FlipMode = golf.FlipNever
	case "always":
		rules.FlipMode = golf.FlipAlways
	case "endgame":
		rules.FlipMode = golf.FlipEndgame
	default:
		return rules, &ReplayError{StepIndex: -1, Reason: "invalid_rules", Message: fmt.Sprintf("unknown flip_mode %q", spec.FlipMode)}
	}
	return rules, nil
}

// parseOrBuildDeck validates an explicit deck against the shoe composition,
// or builds one (seed-shuffled) when the spec leaves it out.
func parseOrBuildDeck(deck []string, decks int, jokers bool, seed int64) ([]card.Card, error) {
	full := card.NewShoeCards(decks, jokers)
	if len(deck) == 0 {
		if seed != 0 {
			r := rand.New(rand.NewSource(seed))
			r.Shuffle(len(full), func(i, j int) {
				full[i], full[j] = full[j], full[i]
			})
		}
		return full, nil
	}

	if len(deck) != len(full) {
		return nil, &ReplayError{
			StepIndex: -1,
			Reason:    "invalid_deck",
			Message:   fmt.Sprintf("deck must contain %d cards, got %d", len(full), len(deck)),
		}
	}
	// Multi-deck shoes repeat every card once per deck.
	allowed := make(map[card.Card]int, len(full))
	for _, c := range full {
		allowed[c]++
	}
	out := make([]card.Card, len(deck))
	for i, s := range deck {
		c, err := card.ParseCard(strings.TrimSpace(s))
		if err != nil {
			return nil, &ReplayError{StepIndex: -1, Reason: "invalid_deck_card", Message: fmt.Sprintf("deck[%d]: %v", i, err)}
		}
		if allowed[c] == 0 {
			return nil, &ReplayError{StepIndex: -1, Reason: "invalid_deck", Message: fmt.Sprintf("deck[%d]: %s not available in this shoe", i, c)}
		}
		allowed[c]--
		out[i] = c
	}
	return out, nil
}

func parsePhaseName(name string) (golf.Phase, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for phase, s := range golf.PhaseTypeDictionary {
		if s == want {
			return phase, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}

func parseAction(spec ActionSpec) (golf.Action, error) {
	want := strings.ToLower(strings.TrimSpace(spec.Type))
	var actType golf.ActionType
	found := false
	for t, s := range golf.PlayerActionTypeDictionary {
		if s == want {
			actType, found = t, true
			break
		}
	}
	if !found || actType == golf.PlayerActionTypeNone {
		return golf.Action{}, fmt.Errorf("unknown action type %q", spec.Type)
	}

	act := golf.Action{Type: actType, Pos: spec.Pos}
	if actType == golf.PlayerActionTypeDraw {
		switch strings.ToLower(strings.TrimSpace(spec.Source)) {
		case "deck":
			act.Source = golf.DrawSourceDeck
		case "discard":
			act.Source = golf.DrawSourceDiscard
		default:
			return golf.Action{}, fmt.Errorf("draw requires source deck or discard, got %q", spec.Source)
		}
	}
	return act, nil
}

func seedFromSpec(rng *RNGSpec) int64 {
	if rng == nil {
		return 0
	}
	return rng.Seed
}
