package auth

import (
	"fmt"

	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
)

// Method records which strategy in the fallback chain produced an identity
type Method string

const (
	MethodHeaderJWT      Method = "header_jwt"
	MethodCookieJWT      Method = "cookie_jwt"
	MethodLegacyToken    Method = "legacy_token"
	MethodExternalBearer Method = "external_bearer"
)

// Identity is the resolved user/account pair attached to a request. Account
// may be present without a user (service-to-service or partially
// authenticated state).
type Identity struct {
	User    *directory.User
	Account *directory.Account
	Claims  token.Claims
	Method  Method
}

// Namespace derives the session namespace for this identity
func (id *Identity) Namespace() (string, error) {
	if id.Claims != nil {
		if ns, err := session.Namespace(id.Claims); err == nil {
			return ns, nil
		}
	}
	if id.User != nil {
		return fmt.Sprintf("user_%s", id.User.ID), nil
	}
	if id.Account != nil {
		return fmt.Sprintf("account_%s", id.Account.ID), nil
	}
	return "", session.ErrNamespaceUnresolvable
}

// DanglingTokenError signals a signature-valid, unexpired token whose session
// record is missing from the store. The middleware uses the carried claims
// for the self-heal path; Method records how the token arrived so the healed
// identity keeps its original auth scheme.
type DanglingTokenError struct {
	Token  string
	Claims token.Claims
	Method Method
}

func (e *DanglingTokenError) Error() string {
	return "token has no tracked session"
}

func (e *DanglingTokenError) Unwrap() error {
	return session.ErrSessionNotFound
}
