package config

import (
	"time"
)

// DefaultInviteExpiration is the team invite token lifetime (14 days)
const DefaultInviteExpiration = 1209600

// GetInviteExpiration returns how long a team invitation token stays
// redeemable after it is issued
func GetInviteExpiration() time.Duration {
	seconds := GetEnvIntOrDefault("TEAM_INVITE_EXPIRATION_SECONDS", DefaultInviteExpiration)
	return time.Duration(seconds) * time.Second
}
