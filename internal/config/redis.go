package config

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// GetRedisURL returns the Redis address, either from REDIS_URL or composed
// from REDIS_HOST/REDIS_PORT. Empty when Redis is not configured.
func GetRedisURL() string {
	if url := GetEnvOrDefault("REDIS_URL", ""); url != "" {
		return url
	}

	host := GetEnvOrDefault("REDIS_HOST", "")
	if host == "" {
		log.Warn().Msg("Redis not configured - sessions will use the in-memory store")
		return ""
	}

	port := GetEnvOrDefault("REDIS_PORT", "6379")
	return fmt.Sprintf("%s:%s", host, port)
}

func GetRedisPassword() string {
	return GetEnvOrDefault("REDIS_PASSWORD", "")
}

func GetRedisDB() int {
	return GetEnvIntOrDefault("REDIS_DB", 0)
}
