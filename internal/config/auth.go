package config

import (
	"sync"
	"time"
)

const (
	// DefaultAccessExpiration is the access token lifetime (12 hours)
	DefaultAccessExpiration = 43200
	// DefaultRefreshExpiration is the refresh token lifetime (14 days)
	DefaultRefreshExpiration = 1209600
)

var (
	jwtSecretMu sync.RWMutex
	// JWTSecret is the secret key used to sign JWTs
	// In production, this should be loaded from environment variables
	JWTSecret = []byte(GetEnvOrDefault("JWT_SECRET_KEY", "dev-only-jwt-secret"))
)

// SetJWTSecret temporarily changes the JWT secret and returns a function to restore it
// This is primarily used for testing
func SetJWTSecret(secret []byte) func() {
	jwtSecretMu.Lock()
	previous := JWTSecret
	JWTSecret = secret
	jwtSecretMu.Unlock()

	return func() {
		jwtSecretMu.Lock()
		JWTSecret = previous
		jwtSecretMu.Unlock()
	}
}

// GetJWTSecret returns the current JWT secret in a thread-safe manner
func GetJWTSecret() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return JWTSecret
}

// GetAccessExpiration returns the access token TTL
func GetAccessExpiration() time.Duration {
	seconds := GetEnvIntOrDefault("JWT_ACCESS_EXPIRATION_SECONDS", DefaultAccessExpiration)
	return time.Duration(seconds) * time.Second
}

// GetRefreshExpiration returns the refresh token TTL
func GetRefreshExpiration() time.Duration {
	seconds := GetEnvIntOrDefault("JWT_REFRESH_EXPIRATION_SECONDS", DefaultRefreshExpiration)
	return time.Duration(seconds) * time.Second
}

// GetTokenPrefix returns the key prefix for session records in the store
func GetTokenPrefix() string {
	return GetEnvOrDefault("JWT_TOKEN_PREFIX", "jwt_")
}

// CSRFRequired reports whether cookie-authenticated mutating requests
// must carry a CSRF header matching the session's CSRF claim
func CSRFRequired() bool {
	return GetEnvOrDefault("JWT_CSRF_REQUIRED", "false") == "true"
}
