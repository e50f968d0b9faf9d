package auth

import (
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/oauth"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrUnauthenticated is the terminal failure of the fallback chain
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves a request to an identity by walking an ordered
// chain of auth strategies, short-circuiting on the first success.
type Authenticator struct {
	strategies []Strategy
}

// NewAuthenticator wires the standard fallback chain: header JWT, cookie
// JWT, legacy static token, then external bearer when a verifier is
// configured.
func NewAuthenticator(
	codec *token.Codec,
	sessions *session.Manager,
	users directory.UserProvider,
	accounts directory.AccountProvider,
	verifier *oauth.Verifier,
) *Authenticator {
	res := &resolver{users: users, accounts: accounts}

	strategies := []Strategy{
		&jwtStrategy{method: MethodHeaderJWT, codec: codec, sessions: sessions, resolver: res},
		&jwtStrategy{method: MethodCookieJWT, codec: codec, sessions: sessions, resolver: res},
		&legacyTokenStrategy{users: users, accounts: accounts},
	}
	if verifier != nil {
		strategies = append(strategies, &externalBearerStrategy{verifier: verifier, resolver: res})
	}

	return &Authenticator{strategies: strategies}
}

// NewAuthenticatorWithStrategies builds a chain from explicit strategies.
// This is primarily used for testing.
func NewAuthenticatorWithStrategies(strategies ...Strategy) *Authenticator {
	return &Authenticator{strategies: strategies}
}

// Authenticate walks the chain. A strategy returning an identity wins; a
// strategy returning an error is terminal (a present but invalid token does
// not fall through to a weaker scheme); a nil/nil result moves to the next
// strategy. Exhausting the chain yields ErrUnauthenticated.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	for _, strategy := range a.strategies {
		identity, err := strategy.Try(r)
		if identity != nil {
			log.Debug().
				Str("strategy", strategy.Name()).
				Str("path", r.URL.Path).
				Msg("Request authenticated")
			return identity, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, ErrUnauthenticated
}
