package auth

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// NewServiceFromEnv selects the backend from AUTH_MODE:
//
//	memory (default): in-process, lost on restart
//	local / sqlite:   single-file sqlite, self-initializing schema
//	db / postgres:    shared postgres, schema must exist
func NewServiceFromEnv() (Service, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	switch mode {
	case "", "memory":
		log.Printf("[Auth] using in-memory account store")
		return NewManager(), nil
	case "local", "sqlite":
		svc, err := NewSQLiteManagerFromEnv()
		if err != nil {
			return nil, fmt.Errorf("init sqlite auth: %w", err)
		}
		log.Printf("[Auth] using sqlite account store")
		return svc, nil
	case "db", "postgres":
		svc, err := NewPostgresManagerFromEnv()
		if err != nil {
			return nil, fmt.Errorf("init postgres auth: %w", err)
		}
		log.Printf("[Auth] using postgres account store")
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", mode)
	}
}

// Mode reports the effective AUTH_MODE so sibling services (ledger) can
// co-locate their state.
func Mode() string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if mode == "" {
		return "memory"
	}
	return mode
}
