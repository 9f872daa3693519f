package replay

import (
	"errors"
	"fmt"

	"golf-lite/golf"
)

const defaultRoomID = "replay_local"

// GenerateReplayTape runs a scripted round through the real engine and records
// the resulting event stream from the hero's perspective. The first illegal
// step aborts generation with a ReplayError naming what the engine expected.
func GenerateReplayTape(spec RoundSpec) (*ReplayTape, error) {
	ns, err := normalizeSpec(spec)
	if err != nil {
		return nil, asReplayError(err)
	}

	game, err := golf.NewGame(golf.Config{
		MaxPlayers:       ns.maxPlayers,
		MinPlayers:       2,
		Decks:            ns.decks,
		TotalRounds:      1,
		InitialFlips:     ns.initialFlips,
		Rules:            ns.rules,
		Seed:             seedFromSpec(spec.RNG),
		ForcedDealerSeat: &ns.dealerSeat,
	})
	if err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "engine_init_failed", Message: err.Error()}
	}
	for _, seat := range ns.seats {
		if err := game.SitDown(seat.seat, seat.userID, false); err != nil {
			return nil, &ReplayError{StepIndex: -1, Reason: "seat_init_failed", Message: err.Error()}
		}
	}
	if err := game.StartRoundStacked(ns.deck); err != nil {
		return nil, &ReplayError{StepIndex: -1, Reason: "start_round_failed", Message: err.Error()}
	}

	tape := &ReplayTape{
		TapeVersion: 1,
		RoomID:      defaultRoomID,
		HeroSeat:    ns.heroSeat,
		Snapshot:    toWireSnapshot(game.Snapshot(), ns.heroSeat, ns.names),
	}

	var seq uint64
	for stepIdx, step := range ns.actions {
		before := game.Snapshot()
		if before.Phase == golf.PhaseTypeRoundOver || before.Phase == golf.PhaseTypeGameOver {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "no_action_expected",
				Message:   "round is already settled; no further actions are allowed",
			}
		}
		if before.Phase != step.phase {
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    "phase_mismatch",
				Message:   fmt.Sprintf("expected phase %s, got %s", before.Phase, step.phase),
				Expected:  &ExpectedState{ActionSeat: before.ActionSeat, Phase: before.Phase.String()},
			}
		}

		events, err := game.Act(step.seat, step.act)
		if err != nil {
			after := game.Snapshot()
			return nil, &ReplayError{
				StepIndex: int32(stepIdx),
				Reason:    reasonForActError(err),
				Message:   err.Error(),
				Expected:  &ExpectedState{ActionSeat: after.ActionSeat, Phase: after.Phase.String()},
			}
		}
		for _, ev := range events {
			seq++
			tape.Events = append(tape.Events, TapeEvent{
				Type:  ev.Type.String(),
				Seq:   seq,
				Value: toWireEvent(ev, ns.heroSeat),
			})
		}
	}
	return tape, nil
}

func reasonForActError(err error) string {
	switch {
	case errors.Is(err, golf.ErrNotYourTurn):
		return "out_of_turn"
	case errors.Is(err, golf.ErrInvalidActionForPhase):
		return "illegal_action"
	case errors.Is(err, golf.ErrInvalidPosition):
		return "invalid_position"
	case errors.Is(err, golf.ErrEmptySource):
		return "empty_source"
	case golf.IsFatal(err):
		return "invariant_violation"
	default:
		return "action_apply_failed"
	}
}

func asReplayError(err error) error {
	var re *ReplayError
	if errors.As(err, &re) {
		return re
	}
	return &ReplayError{StepIndex: -1, Reason: "invalid_spec", Message: err.Error()}
}
