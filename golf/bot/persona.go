package bot

// PersonalityProfile defines the tunable parameters for a RuleBrain. All
// personalities share the same decision functions; these weights are the only
// thing that differs between them.
type PersonalityProfile struct {
	RiskTolerance float64 `json:"riskTolerance"` // 0.0–1.0: shrinks the negative-pairing penalty
	Aggression    float64 `json:"aggression"`    // 0.0–1.0: early-knock / go-out likelihood
	Patience      float64 `json:"patience"`      // 0.0–1.0: raises discard-taking thresholds
	Randomness    float64 `json:"randomness"`    // 0.0–1.0: decision noise
}

// Persona defines a named bot character.
type Persona struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Tagline   string             `json:"tagline"`
	AvatarKey string             `json:"avatarKey"`
	Brain     PersonalityProfile `json:"brain"`
}
