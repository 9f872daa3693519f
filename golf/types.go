package golf

const InvalidSeat uint16 = 65535

// Hand geometry: 2 rows x 3 columns, column partners (0,3) (1,4) (2,5).
const (
	HandSize    = 6
	HandColumns = 3
)

// ColumnPartner returns the other slot in pos's column.
func ColumnPartner(pos int) int {
	if pos < HandColumns {
		return pos + HandColumns
	}
	return pos - HandColumns
}

// Phase 游戏阶段
type Phase byte

const (
	PhaseTypeInitialFlip    Phase = 0
	PhaseTypeAwaitingDraw   Phase = 1
	PhaseTypeHoldingCard    Phase = 2
	PhaseTypeWaitingForFlip Phase = 3
	PhaseTypeRoundOver      Phase = 4
	PhaseTypeGameOver       Phase = 5
)

var PhaseTypeDictionary = map[Phase]string{
	PhaseTypeInitialFlip:    "initial_flip",
	PhaseTypeAwaitingDraw:   "awaiting_draw",
	PhaseTypeHoldingCard:    "holding_card",
	PhaseTypeWaitingForFlip: "waiting_for_flip",
	PhaseTypeRoundOver:      "round_over",
	PhaseTypeGameOver:       "game_over",
}

func (p Phase) String() string {
	if s, ok := PhaseTypeDictionary[p]; ok {
		return s
	}
	return "unknown"
}

// ActionType 动作类型：0-NONE 1-DRAW 2-SWAP 3-DISCARD 4-FLIP 5-KNOCK 6-SKIP_FLIP
type ActionType byte

const (
	PlayerActionTypeNone     ActionType = 0
	PlayerActionTypeDraw     ActionType = 1
	PlayerActionTypeSwap     ActionType = 2
	PlayerActionTypeDiscard  ActionType = 3
	PlayerActionTypeFlip     ActionType = 4
	PlayerActionTypeKnock    ActionType = 5
	PlayerActionTypeSkipFlip ActionType = 6
)

var PlayerActionTypeDictionary = map[ActionType]string{
	PlayerActionTypeNone:     "none",
	PlayerActionTypeDraw:     "draw",
	PlayerActionTypeSwap:     "swap",
	PlayerActionTypeDiscard:  "discard",
	PlayerActionTypeFlip:     "flip",
	PlayerActionTypeKnock:    "knock",
	PlayerActionTypeSkipFlip: "skip_flip",
}

func (a ActionType) String() string {
	if s, ok := PlayerActionTypeDictionary[a]; ok {
		return s
	}
	return "unknown"
}

// DrawSource 摸牌来源
type DrawSource byte

const (
	DrawSourceNone    DrawSource = 0
	DrawSourceDeck    DrawSource = 1
	DrawSourceDiscard DrawSource = 2
)

var DrawSourceDictionary = map[DrawSource]string{
	DrawSourceNone:    "none",
	DrawSourceDeck:    "deck",
	DrawSourceDiscard: "discard",
}

func (s DrawSource) String() string {
	if v, ok := DrawSourceDictionary[s]; ok {
		return v
	}
	return "unknown"
}

// FlipMode controls whether discarding a deck-drawn card requires a flip.
type FlipMode byte

const (
	FlipNever   FlipMode = 0
	FlipAlways  FlipMode = 1
	FlipEndgame FlipMode = 2
)

var FlipModeDictionary = map[FlipMode]string{
	FlipNever:   "never",
	FlipAlways:  "always",
	FlipEndgame: "endgame",
}

func (m FlipMode) String() string {
	if v, ok := FlipModeDictionary[m]; ok {
		return v
	}
	return "unknown"
}

// Action is a validated inbound player action. Pos is only meaningful for
// swap/flip, Source only for draw.
type Action struct {
	Type   ActionType
	Source DrawSource
	Pos    int
}
