package config

var (
	// AccessCookieName is the name of the access token cookie
	// Default to "jwt_access" if not set in environment
	AccessCookieName = GetEnvOrDefault("JWT_ACCESS_COOKIE", "jwt_access")
)

// GetAccessCookieName returns the configured access token cookie name
func GetAccessCookieName() string {
	return AccessCookieName
}

// SetAccessCookieName temporarily changes the access cookie name and returns a function to restore it
// This is primarily used for testing
func SetAccessCookieName(name string) func() {
	previous := AccessCookieName
	AccessCookieName = name

	return func() {
		AccessCookieName = previous
	}
}
