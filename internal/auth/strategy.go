package auth

import (
	"context"
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/oauth"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Strategy is one attempt in the ordered fallback chain. A nil identity with
// a nil error means the strategy was structurally inapplicable (no token of
// its kind present) and the chain moves on. A non-nil error is terminal.
type Strategy interface {
	Name() string
	Try(r *http.Request) (*Identity, error)
}

// resolver turns claims into concrete user/account records
type resolver struct {
	users    directory.UserProvider
	accounts directory.AccountProvider
}

func (rs *resolver) resolve(ctx context.Context, claims token.Claims) (*directory.User, *directory.Account, error) {
	var user *directory.User
	var account *directory.Account

	if userID := claims.UserID(); userID != "" {
		found, err := rs.users.UserByID(ctx, userID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "resolve user")
		}
		user = found
	}

	if accountID := claims.AccountID(); accountID != "" {
		found, err := rs.accounts.AccountByID(ctx, accountID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "resolve account")
		}
		account = found
	}

	if user != nil && account == nil && user.AccountID != "" {
		found, err := rs.accounts.AccountByID(ctx, user.AccountID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "resolve user account")
		}
		account = found
	}

	if user == nil && account == nil {
		return nil, nil, ErrUnauthenticated
	}
	return user, account, nil
}

// jwtStrategy decodes a session JWT from either the Authorization header or
// the access token cookie and validates it against the session store.
type jwtStrategy struct {
	method   Method
	codec    *token.Codec
	sessions *session.Manager
	resolver *resolver
}

func (s *jwtStrategy) Name() string {
	return string(s.method)
}

func (s *jwtStrategy) Try(r *http.Request) (*Identity, error) {
	raw := s.extract(r)
	if raw == "" {
		return nil, nil
	}

	claims, err := s.codec.Decode(raw)
	if err != nil {
		// Not a JWT at all: a later strategy may recognize the credential
		if errors.Is(err, token.ErrMalformed) {
			return nil, nil
		}
		return nil, err
	}

	exists, err := s.sessions.ExistsForClaims(r.Context(), claims)
	if err != nil {
		if errors.Is(err, session.ErrNamespaceUnresolvable) {
			return nil, err
		}
		log.Warn().Err(err).Str("strategy", s.Name()).Msg("Session store lookup failed")
		return nil, errors.Wrap(session.ErrUnauthorized, "session store unavailable")
	}
	if !exists {
		revoked, err := s.sessions.IsRevoked(r.Context(), claims)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Name()).Msg("Revocation check failed")
		}
		if revoked {
			return nil, errors.Wrap(session.ErrUnauthorized, "token was revoked")
		}
		return nil, &DanglingTokenError{Token: raw, Claims: claims, Method: s.method}
	}

	user, account, err := s.resolver.resolve(r.Context(), claims)
	if err != nil {
		return nil, err
	}

	// Accounts may opt out of JWT auth entirely; fall back to other schemes
	if account != nil && !account.JWTEnabled {
		return nil, nil
	}

	return &Identity{
		User:    user,
		Account: account,
		Claims:  claims,
		Method:  s.method,
	}, nil
}

func (s *jwtStrategy) extract(r *http.Request) string {
	if s.method == MethodHeaderJWT {
		return oauth.ExtractToken(r)
	}

	cookie, err := r.Cookie(config.GetAccessCookieName())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// legacyTokenStrategy resolves the static per-user auth token scheme that
// predates JWT sessions. The same Authorization header is consulted.
type legacyTokenStrategy struct {
	users    directory.UserProvider
	accounts directory.AccountProvider
}

func (s *legacyTokenStrategy) Name() string {
	return string(MethodLegacyToken)
}

func (s *legacyTokenStrategy) Try(r *http.Request) (*Identity, error) {
	raw := oauth.ExtractToken(r)
	if raw == "" {
		return nil, nil
	}

	user, err := s.users.UserByAuthToken(r.Context(), raw)
	if err != nil {
		return nil, errors.Wrap(err, "legacy token lookup")
	}
	if user == nil {
		return nil, nil
	}

	account, err := s.accounts.AccountByID(r.Context(), user.AccountID)
	if err != nil {
		return nil, errors.Wrap(err, "legacy token account lookup")
	}

	return &Identity{
		User:    user,
		Account: account,
		Method:  MethodLegacyToken,
	}, nil
}

// externalBearerStrategy verifies tokens minted by an external OAuth issuer
type externalBearerStrategy struct {
	verifier *oauth.Verifier
	resolver *resolver
}

func (s *externalBearerStrategy) Name() string {
	return string(MethodExternalBearer)
}

func (s *externalBearerStrategy) Try(r *http.Request) (*Identity, error) {
	raw := oauth.ExtractToken(r)
	if raw == "" {
		return nil, nil
	}

	claims, err := s.verifier.Verify(r.Context(), raw)
	if err != nil {
		log.Debug().Err(err).Msg("External bearer verification failed")
		return nil, errors.Wrap(ErrUnauthenticated, err.Error())
	}

	user, account, err := s.resolver.resolve(r.Context(), claims)
	if err != nil {
		return nil, err
	}

	return &Identity{
		User:    user,
		Account: account,
		Claims:  claims,
		Method:  MethodExternalBearer,
	}, nil
}
