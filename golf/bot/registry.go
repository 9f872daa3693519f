package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// builtinPersonas are the eight stock table characters. External persona
// files may extend or override them by ID.
var builtinPersonas = []*Persona{
	{
		ID: "steady", Name: "Steady Freddy", Tagline: "Plays the percentages.",
		AvatarKey: "freddy",
		Brain:     PersonalityProfile{RiskTolerance: 0.4, Aggression: 0.3, Patience: 0.6, Randomness: 0.1},
	},
	{
		ID: "shark", Name: "Marlena", Tagline: "Smells a cheap column from across the table.",
		AvatarKey: "marlena",
		Brain:     PersonalityProfile{RiskTolerance: 0.7, Aggression: 0.7, Patience: 0.8, Randomness: 0.05},
	},
	{
		ID: "gambler", Name: "Dicey Dan", Tagline: "Face-down? Flip it and find out.",
		AvatarKey: "dan",
		Brain:     PersonalityProfile{RiskTolerance: 0.9, Aggression: 0.8, Patience: 0.2, Randomness: 0.3},
	},
	{
		ID: "granny", Name: "Granny Greta", Tagline: "Never met a two she didn't keep.",
		AvatarKey: "greta",
		Brain:     PersonalityProfile{RiskTolerance: 0.2, Aggression: 0.1, Patience: 0.9, Randomness: 0.1},
	},
	{
		ID: "rookie", Name: "Rook", Tagline: "Still learning the columns.",
		AvatarKey: "rook",
		Brain:     PersonalityProfile{RiskTolerance: 0.5, Aggression: 0.4, Patience: 0.3, Randomness: 0.6},
	},
	{
		ID: "closer", Name: "The Closer", Tagline: "Knocks before you're ready.",
		AvatarKey: "closer",
		Brain:     PersonalityProfile{RiskTolerance: 0.6, Aggression: 0.95, Patience: 0.4, Randomness: 0.1},
	},
	{
		ID: "stonewall", Name: "Stonewall", Tagline: "Waits you out.",
		AvatarKey: "stonewall",
		Brain:     PersonalityProfile{RiskTolerance: 0.3, Aggression: 0.2, Patience: 1.0, Randomness: 0.05},
	},
	{
		ID: "wildcard", Name: "Wildcard Wu", Tagline: "Even Wu doesn't know Wu's next move.",
		AvatarKey: "wu",
		Brain:     PersonalityProfile{RiskTolerance: 0.8, Aggression: 0.6, Patience: 0.1, Randomness: 0.9},
	},
}

// PersonaRegistry holds all bot persona definitions.
type PersonaRegistry struct {
	mu       sync.RWMutex
	personas map[string]*Persona
	order    []string
}

// NewRegistry creates a registry pre-populated with the built-in personas.
func NewRegistry() *PersonaRegistry {
	r := &PersonaRegistry{personas: make(map[string]*Persona)}
	for _, p := range builtinPersonas {
		r.personas[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

// LoadFromFile loads bot personas from a JSON file.
func (r *PersonaRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read personas file: %w", err)
	}
	return r.LoadFromJSON(data)
}

// LoadFromJSON loads bot personas from raw JSON bytes.
func (r *PersonaRegistry) LoadFromJSON(data []byte) error {
	var list []*Persona
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("parse personas JSON: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range list {
		if p.ID == "" {
			continue
		}
		if _, known := r.personas[p.ID]; !known {
			r.order = append(r.order, p.ID)
		}
		r.personas[p.ID] = p
	}
	return nil
}

// Get returns a persona by ID.
func (r *PersonaRegistry) Get(id string) *Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.personas[id]
}

// All returns every persona in registration order.
func (r *PersonaRegistry) All() []*Persona {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}

// Count returns the total number of registered personas.
func (r *PersonaRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personas)
}
