package config

// GetOAuthIssuerURL returns the issuer URL for the external OAuth bearer
// verifier. Empty when external bearer auth is not configured.
func GetOAuthIssuerURL() string {
	return GetEnvOrDefault("OAUTH_ISSUER_URL", "")
}

// GetOAuthClientID returns the audience expected on externally issued tokens
func GetOAuthClientID() string {
	return GetEnvOrDefault("OAUTH_CLIENT_ID", "")
}
