package replay

// RoundSpec describes one scripted golf round: table shape, house rules, a
// fully or partially determined deck and the exact action sequence. It is the
// JSON input for tape generation.
type RoundSpec struct {
	Variant    string       `json:"variant"`
	Table      TableSpec    `json:"table"`
	Rules      RulesSpec    `json:"rules"`
	DealerSeat uint16       `json:"dealer_seat"`
	Seats      []SeatSpec   `json:"seats"`
	Deck       []string     `json:"deck,omitempty"`
	Actions    []ActionSpec `json:"actions"`
	RNG        *RNGSpec     `json:"rng,omitempty"`
}

type TableSpec struct {
	MaxPlayers   uint16 `json:"max_players"`
	Decks        int    `json:"decks,omitempty"`
	InitialFlips *int   `json:"initial_flips,omitempty"`
}

// RulesSpec mirrors the engine's house rules with JSON-friendly names.
type RulesSpec struct {
	SuperKings bool `json:"super_kings,omitempty"`
	TenPenny   bool `json:"ten_penny,omitempty"`
	UseJokers  bool `json:"use_jokers,omitempty"`
	LuckySwing bool `json:"lucky_swing,omitempty"`
	EagleEye   bool `json:"eagle_eye,omitempty"`

	KnockBonus    bool `json:"knock_bonus,omitempty"`
	KnockPenalty  bool `json:"knock_penalty,omitempty"`
	UnderdogBonus bool `json:"underdog_bonus,omitempty"`
	TiedShame     bool `json:"tied_shame,omitempty"`
	Blackjack     bool `json:"blackjack,omitempty"`

	EarlyKnock bool   `json:"early_knock,omitempty"`
	FlipMode   string `json:"flip_mode,omitempty"` // never | always | endgame
}

type SeatSpec struct {
	Seat   uint16 `json:"seat"`
	Name   string `json:"name,omitempty"`
	UserID uint64 `json:"user_id,omitempty"`
	IsHero bool   `json:"is_hero,omitempty"`
}

// ActionSpec is one scripted step. Source is only meaningful for draw, Pos
// only for swap and flip.
type ActionSpec struct {
	Phase  string `json:"phase"`
	Seat   uint16 `json:"seat"`
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
	Pos    int    `json:"pos,omitempty"`
}

type RNGSpec struct {
	Seed int64 `json:"seed"`
}

// ReplayTape is the generated event stream, already filtered down to the
// hero's perspective. A client can play it back without an engine.
type ReplayTape struct {
	TapeVersion int          `json:"tape_version"`
	RoomID      string       `json:"room_id"`
	HeroSeat    uint16       `json:"hero_seat"`
	Events      []TapeEvent  `json:"events"`
	Snapshot    WireSnapshot `json:"snapshot"`
}

type TapeEvent struct {
	Type  string    `json:"type"`
	Seq   uint64    `json:"seq"`
	Value WireEvent `json:"value"`
}
