package golf

import "errors"

var (
	ErrNotYourTurn           = errors.New("action out of turn")
	ErrInvalidActionForPhase = errors.New("action not valid for current phase")
	ErrInvalidPosition       = errors.New("invalid slot position")
	ErrEmptySource           = errors.New("draw from empty pile")
	ErrGameOver              = errors.New("game already over")
	ErrRoundInProgress       = errors.New("round in progress")
)

// InvariantViolationError is fatal: it indicates a card-conservation bug.
// The round must be aborted and the error surfaced to operators.
type InvariantViolationError string

func (e InvariantViolationError) Error() string { return "invariant violation: " + string(e) }

func ErrInvariant(msg string) error { return InvariantViolationError(msg) }

// IsFatal reports whether err is an invariant violation that must halt the round.
func IsFatal(err error) bool {
	var iv InvariantViolationError
	return errors.As(err, &iv)
}
