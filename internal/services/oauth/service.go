package oauth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExtractToken pulls the bearer token out of the Authorization header.
// Returns an empty string when the header is absent or not a bearer scheme.
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		log.Debug().Str("header", authHeader).Msg("Malformed Authorization header")
		return ""
	}

	return parts[1]
}
