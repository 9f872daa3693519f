package bot

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"golf-lite/golf"
)

// Instance represents an active bot seated in a game.
type Instance struct {
	PlayerID   uint64
	Seat       uint16
	Persona    *Persona
	Brain      BrainDecider
	ThinkDelay time.Duration
}

// Manager manages bot lifecycle and decision-making. It never mutates game
// state: OnTurn returns the intended action and the room applies it through
// the same serialized path as human actions.
type Manager struct {
	registry  *PersonaRegistry
	instances map[uint64]*Instance // keyed by PlayerID
	mu        sync.RWMutex
	rng       *rand.Rand
	nextID    uint64
}

// NewManager creates a bot manager with the given persona registry.
func NewManager(registry *PersonaRegistry) *Manager {
	return &Manager{
		registry:  registry,
		instances: make(map[uint64]*Instance),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID:    9_000_000, // bot IDs start from 9M to avoid collision with real users
	}
}

// Registry returns the underlying PersonaRegistry.
func (m *Manager) Registry() *PersonaRegistry {
	return m.registry
}

// Spawn creates and seats a bot in a game.
func (m *Manager) Spawn(game *golf.Game, seat uint16, persona *Persona) (*Instance, error) {
	m.mu.Lock()
	m.nextID++
	playerID := m.nextID
	seed := m.rng.Int63()
	jitterMs := m.rng.Intn(1200)
	m.mu.Unlock()

	brain := NewRuleBrain(persona, seed)

	// Think delay keeps bot pacing human-ish, especially with several bots
	// acting back to back.
	baseMs := 800 + int(persona.Brain.Patience*1800)
	thinkDelay := time.Duration(baseMs+jitterMs) * time.Millisecond

	if err := game.SitDown(seat, playerID, true); err != nil {
		return nil, fmt.Errorf("spawn bot %s at seat %d: %w", persona.Name, seat, err)
	}

	inst := &Instance{
		PlayerID:   playerID,
		Seat:       seat,
		Persona:    persona,
		Brain:      brain,
		ThinkDelay: thinkDelay,
	}

	m.mu.Lock()
	m.instances[playerID] = inst
	m.mu.Unlock()

	log.Printf("[Bot] Spawned %s (ID=%d) at seat %d", persona.Name, playerID, seat)
	return inst, nil
}

// Instance returns the instance for a bot player ID, or nil.
func (m *Manager) Instance(playerID uint64) *Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[playerID]
}

// Release drops a bot instance after it stood up.
func (m *Manager) Release(playerID uint64) {
	m.mu.Lock()
	delete(m.instances, playerID)
	m.mu.Unlock()
}

// OnTurn computes the bot's next action for the current snapshot. ok=false
// means the bot has nothing to do in this phase (not its move).
func (m *Manager) OnTurn(playerID uint64, snap golf.Snapshot) (golf.Action, bool) {
	m.mu.RLock()
	inst := m.instances[playerID]
	m.mu.RUnlock()

	if inst == nil {
		log.Printf("[Bot] OnTurn called for unknown player %d", playerID)
		return golf.Action{}, false
	}
	view := BuildView(snap, inst.Seat)
	return Decide(inst.Brain, view)
}

// Decide maps a brain's phase decision onto a single engine action.
func Decide(brain BrainDecider, view GameView) (golf.Action, bool) {
	switch view.Phase {
	case golf.PhaseTypeInitialFlip:
		picks := brain.ChooseInitialFlips(view)
		if len(picks) == 0 {
			return golf.Action{}, false
		}
		return golf.Action{Type: golf.PlayerActionTypeFlip, Pos: picks[0]}, true

	case golf.PhaseTypeAwaitingDraw:
		if brain.WantsEarlyKnock(view) {
			return golf.Action{Type: golf.PlayerActionTypeKnock}, true
		}
		return golf.Action{
			Type:   golf.PlayerActionTypeDraw,
			Source: brain.ChooseDrawSource(view),
		}, true

	case golf.PhaseTypeHoldingCard:
		if pos, ok := brain.ChooseSwapPos(view); ok {
			return golf.Action{Type: golf.PlayerActionTypeSwap, Pos: pos}, true
		}
		return golf.Action{Type: golf.PlayerActionTypeDiscard}, true

	case golf.PhaseTypeWaitingForFlip:
		if view.FlipOptional && brain.SkipFlip(view) {
			return golf.Action{Type: golf.PlayerActionTypeSkipFlip}, true
		}
		pos := brain.ChooseFlipPos(view)
		if pos < 0 {
			return golf.Action{Type: golf.PlayerActionTypeSkipFlip}, true
		}
		return golf.Action{Type: golf.PlayerActionTypeFlip, Pos: pos}, true
	}
	return golf.Action{}, false
}
