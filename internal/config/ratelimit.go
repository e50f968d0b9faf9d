package config

import (
	"time"
)

type RateLimitConfig struct {
	MaxHits int
	Window  time.Duration
}

// GetSelfHealRateLimit returns the per-namespace limit on self-heal session
// creation. MaxHits of 0 disables the limit entirely.
func GetSelfHealRateLimit() RateLimitConfig {
	return RateLimitConfig{
		MaxHits: GetEnvIntOrDefault("SELF_HEAL_RATE_LIMIT", 5),
		Window:  time.Duration(GetEnvIntOrDefault("SELF_HEAL_RATE_WINDOW_SECONDS", 60)) * time.Second,
	}
}
