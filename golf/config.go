package golf

import "fmt"

// HouseRules is the immutable set of optional rule toggles selected at game
// start. Read-only to the engine; scoring and flip behavior consult it.
type HouseRules struct {
	// Scoring value overrides
	SuperKings bool // K scores -2 instead of 0
	TenPenny   bool // 10 scores 1 instead of 10
	UseJokers  bool // two jokers per deck in the shoe
	LuckySwing bool // single joker scores -5 instead of -2
	EagleEye   bool // paired jokers score -8 instead of 0

	// Post-score modifiers
	KnockBonus    bool // knocker gets -5
	KnockPenalty  bool // knocker gets +10 instead when not lowest
	UnderdogBonus bool // unique lowest gets -3
	TiedShame     bool // everyone tied for lowest gets +5
	Blackjack     bool // raw 21 becomes 0

	// Turn protocol
	EarlyKnock bool     // knock at start of own turn, bypassing the draw
	FlipMode   FlipMode // flip-after-discard policy
}

type Config struct {
	// Table
	MaxPlayers int // 2-6
	MinPlayers int

	// Shoe
	Decks int // 1-2

	// Rounds
	TotalRounds  int
	InitialFlips int // face-down cards each player reveals before a round (default 2)

	Rules HouseRules

	// RNG seed (0 => time-based)
	Seed int64

	// First-round dealer override. Replay fixtures only; nil means random.
	ForcedDealerSeat *uint16
}

const (
	defaultTotalRounds  = 9
	defaultInitialFlips = 2
)

func (c Config) validate() error {
	if c.MaxPlayers < 2 || c.MaxPlayers > 6 {
		return fmt.Errorf("MaxPlayers must be in [2,6], got %d", c.MaxPlayers)
	}
	if c.MinPlayers < 2 {
		return fmt.Errorf("MinPlayers must be >= 2")
	}
	if c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("MinPlayers must be <= MaxPlayers")
	}
	if c.Decks < 1 || c.Decks > 2 {
		return fmt.Errorf("Decks must be 1 or 2, got %d", c.Decks)
	}
	if c.TotalRounds < 1 {
		return fmt.Errorf("TotalRounds must be >= 1")
	}
	// Leaving at least one card hidden keeps the initial reveal from ending
	// the round before the first draw.
	if c.InitialFlips < 0 || c.InitialFlips >= HandSize {
		return fmt.Errorf("InitialFlips must be in [0,%d], got %d", HandSize-1, c.InitialFlips)
	}
	switch c.Rules.FlipMode {
	case FlipNever, FlipAlways, FlipEndgame:
	default:
		return fmt.Errorf("invalid FlipMode %d", c.Rules.FlipMode)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MinPlayers == 0 {
		c.MinPlayers = 2
	}
	if c.Decks == 0 {
		c.Decks = 1
	}
	if c.TotalRounds == 0 {
		c.TotalRounds = defaultTotalRounds
	}
	if c.InitialFlips == 0 {
		c.InitialFlips = defaultInitialFlips
	}
	return c
}
