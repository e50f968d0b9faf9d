package middleware

import (
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/auth"
	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/pkg/httpext"
	"github.com/blueskybroadcast/teams-api/pkg/ratelimit"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Guard wraps protected operations: it runs the request authenticator,
// attaches the resolved identity and re-creates sessions for dangling tokens.
type Guard struct {
	authenticator *auth.Authenticator
	sessions      *session.Manager
	users         directory.UserProvider
	accounts      directory.AccountProvider
	healLimiter   *ratelimit.Limiter
}

func NewGuard(
	authenticator *auth.Authenticator,
	sessions *session.Manager,
	users directory.UserProvider,
	accounts directory.AccountProvider,
) *Guard {
	limitCfg := config.GetSelfHealRateLimit()

	var limiter *ratelimit.Limiter
	if limitCfg.MaxHits > 0 {
		limiter = ratelimit.NewLimiter(limitCfg.Window, limitCfg.MaxHits)
	}

	return &Guard{
		authenticator: authenticator,
		sessions:      sessions,
		users:         users,
		accounts:      accounts,
		healLimiter:   limiter,
	}
}

// RequireAuth rejects unauthenticated requests before the handler runs
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.authenticator.Authenticate(r)

		var dangling *auth.DanglingTokenError
		if errors.As(err, &dangling) {
			identity = g.selfHeal(w, r, dangling)
		}

		if identity == nil {
			if err != nil {
				log.Warn().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Authentication failed")
			}
			httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !g.checkCSRF(r, identity) {
			log.Warn().Str("path", r.URL.Path).Msg("CSRF token mismatch")
			httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// selfHeal re-creates a session for a structurally valid token whose record
// is missing from the store (store flush, out-of-band minting). Returns nil
// when the claims do not resolve to a known identity; any partial token
// state is destroyed in that case.
func (g *Guard) selfHeal(w http.ResponseWriter, r *http.Request, dangling *auth.DanglingTokenError) *auth.Identity {
	namespace, err := session.Namespace(dangling.Claims)
	if err != nil {
		return nil
	}

	if g.healLimiter != nil && !g.healLimiter.Allow(namespace) {
		log.Warn().
			Str("namespace", namespace).
			Msg("Self-heal rate limit reached - rejecting dangling token")
		return nil
	}

	user, account := g.resolveClaims(r, dangling)
	if user == nil && account == nil {
		log.Warn().
			Str("namespace", namespace).
			Msg("Dangling token claims do not resolve - destroying partial session state")
		if err := g.sessions.Destroy(r.Context(), dangling.Token); err != nil {
			log.Warn().Err(err).Msg("Failed to destroy partial session state")
		}
		return nil
	}

	pair, err := g.sessions.Create(r.Context(), account, user, nil)
	if err != nil {
		log.Error().
			Err(err).
			Str("namespace", namespace).
			Msg("Self-heal session creation failed")
		return nil
	}

	log.Info().
		Str("namespace", namespace).
		Msg("Re-created session for dangling token")

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetAccessCookieName(),
		Value:    pair.Access,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Expires:  pair.AccessExpiresAt,
	})

	// Keep the originating scheme so cookie-authenticated requests stay
	// subject to the CSRF check even on the healed request
	return &auth.Identity{
		User:    user,
		Account: account,
		Claims:  dangling.Claims,
		Method:  dangling.Method,
	}
}

func (g *Guard) resolveClaims(r *http.Request, dangling *auth.DanglingTokenError) (*directory.User, *directory.Account) {
	var user *directory.User
	var account *directory.Account

	if userID := dangling.Claims.UserID(); userID != "" {
		if found, err := g.users.UserByID(r.Context(), userID); err == nil {
			user = found
		}
	}
	if accountID := dangling.Claims.AccountID(); accountID != "" {
		if found, err := g.accounts.AccountByID(r.Context(), accountID); err == nil {
			account = found
		}
	}
	if user != nil && account == nil && user.AccountID != "" {
		if found, err := g.accounts.AccountByID(r.Context(), user.AccountID); err == nil {
			account = found
		}
	}
	return user, account
}

var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// checkCSRF enforces the CSRF claim on cookie-authenticated mutating
// requests when the CSRF scheme is enabled. Header-bearer requests are
// exempt: the header itself cannot be set cross-site.
func (g *Guard) checkCSRF(r *http.Request, identity *auth.Identity) bool {
	if !config.CSRFRequired() {
		return true
	}
	if identity.Method != auth.MethodCookieJWT || safeMethods[r.Method] {
		return true
	}

	header := r.Header.Get("X-CSRF-Token")
	if header == "" {
		return false
	}

	stored, err := g.sessions.FetchCSRF(r.Context(), identity.Claims)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch CSRF marker")
		return false
	}
	return stored != "" && stored == header
}
