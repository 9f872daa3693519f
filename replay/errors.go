package replay

import "fmt"

// ReplayError pinpoints the first step at which a scripted round diverges
// from what the engine would actually allow. StepIndex -1 means the spec
// itself was invalid before any action ran.
type ReplayError struct {
	StepIndex int32          `json:"step_index"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

type ExpectedState struct {
	ActionSeat uint16 `json:"action_seat"`
	Phase      string `json:"phase,omitempty"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d reason=%s): %s", e.StepIndex, e.Reason, e.Message)
}
