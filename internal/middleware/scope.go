package middleware

import (
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/auth"
	"github.com/blueskybroadcast/teams-api/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// RequireScope checks the decoded token's scopes when the identity came from
// the external bearer scheme. All other auth methods pass through: the legacy
// session schemes carry no scopes and predate scoped authorization.
func (g *Guard) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := CurrentIdentity(r)
			if identity == nil {
				log.Error().
					Str("path", r.URL.Path).
					Msg("Scope check reached without authentication context")
				httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if identity.Method != auth.MethodExternalBearer {
				next.ServeHTTP(w, r)
				return
			}

			hasScope := false
			for _, s := range identity.Claims.Scopes() {
				if s == scope {
					hasScope = true
					break
				}
			}

			if !hasScope {
				log.Warn().
					Str("required_scope", scope).
					Strs("token_scopes", identity.Claims.Scopes()).
					Str("path", r.URL.Path).
					Msg("Access denied - token missing required scope")
				httpext.JsonError(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
