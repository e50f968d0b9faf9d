package middleware

import (
	"context"
	"net/http"

	"github.com/blueskybroadcast/teams-api/internal/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches an authenticated identity to the request context
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// CurrentIdentity retrieves the authenticated identity from the request
// context. Returns nil when the request did not pass through RequireAuth.
func CurrentIdentity(r *http.Request) *auth.Identity {
	if identity, ok := r.Context().Value(identityKey).(*auth.Identity); ok {
		return identity
	}
	return nil
}
