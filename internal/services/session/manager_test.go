package session

import (
	"context"
	"testing"
	"time"

	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testAccount = &directory.Account{ID: "acc-1", Slug: "test-account", JWTEnabled: true}
	testUser    = &directory.User{ID: "user-1", Email: "test@example.com", Admin: true, AccountID: "acc-1"}
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cleanup := config.SetJWTSecret([]byte("test-secret-key-for-jwt-signing-in-tests"))
	t.Cleanup(cleanup)

	return NewManager(token.NewCodec(), NewMemoryStore())
}

func TestNamespace(t *testing.T) {
	t.Run("prefers user id", func(t *testing.T) {
		ns, err := Namespace(token.Claims{"user_id": "user-1", "account_id": "acc-1"})
		require.NoError(t, err)
		assert.Equal(t, "user_user-1", ns)
	})

	t.Run("falls back to account id", func(t *testing.T) {
		ns, err := Namespace(token.Claims{"account_id": "acc-1"})
		require.NoError(t, err)
		assert.Equal(t, "account_acc-1", ns)
	})

	t.Run("fails without either", func(t *testing.T) {
		_, err := Namespace(token.Claims{})
		assert.ErrorIs(t, err, ErrNamespaceUnresolvable)
	})
}

func TestManagerCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("access token decodes back to the input identity", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)
		require.NotEmpty(t, pair.Access)
		require.NotEmpty(t, pair.Refresh)

		claims, err := token.NewCodec().Decode(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, "acc-1", claims.AccountID())
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, "test-account", claims["account_slug"])
		assert.Equal(t, "test@example.com", claims["user_email"])
		assert.Equal(t, true, claims["admin"])
		assert.NotEmpty(t, claims.CSRF())

		exists, err := m.Exists(ctx, pair.Access)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("expiry spread matches configured TTLs", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		spread := pair.RefreshExpiresAt.Sub(pair.AccessExpiresAt)
		expected := 14*24*time.Hour - 12*time.Hour
		assert.InDelta(t, expected.Seconds(), spread.Seconds(), 5)
	})

	t.Run("account-only session", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, nil, nil)
		require.NoError(t, err)

		claims, err := token.NewCodec().Decode(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, "acc-1", claims.AccountID())
		assert.Empty(t, claims.UserID())

		ns, err := Namespace(claims)
		require.NoError(t, err)
		assert.Equal(t, "account_acc-1", ns)
	})

	t.Run("caller overrides are merged", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, token.Claims{"impersonated": true})
		require.NoError(t, err)

		claims, err := token.NewCodec().Decode(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, true, claims["impersonated"])
	})

	t.Run("fails without account or user", func(t *testing.T) {
		m := newTestManager(t)

		_, err := m.Create(ctx, nil, nil, nil)
		assert.ErrorIs(t, err, ErrNamespaceUnresolvable)
	})
}

func TestManagerRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation preserves identity and invalidates the old pair", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		rotated, err := m.Refresh(ctx, pair.Refresh)
		require.NoError(t, err)
		require.NotEqual(t, pair.Access, rotated.Access)

		claims, err := token.NewCodec().Decode(rotated.Access)
		require.NoError(t, err)
		assert.Equal(t, "acc-1", claims.AccountID())
		assert.Equal(t, "user-1", claims.UserID())

		// Old access session is gone
		exists, err := m.Exists(ctx, pair.Access)
		require.NoError(t, err)
		assert.False(t, exists)

		// Old refresh token is single-use
		_, err = m.Refresh(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrUnauthorized)

		// New access session is tracked
		exists, err = m.Exists(ctx, rotated.Access)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("garbage refresh token", func(t *testing.T) {
		m := newTestManager(t)
		_, err := m.Refresh(ctx, "garbage")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		m := newTestManager(t)
		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		_, err = m.Refresh(ctx, pair.Access)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestManagerDestroy(t *testing.T) {
	ctx := context.Background()

	t.Run("destroy removes session and pairs refresh", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		require.NoError(t, m.Destroy(ctx, pair.Access))

		exists, err := m.Exists(ctx, pair.Access)
		require.NoError(t, err)
		assert.False(t, exists)

		// Paired refresh token died with the session
		_, err = m.Refresh(ctx, pair.Refresh)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		require.NoError(t, m.Destroy(ctx, pair.Access))
		require.NoError(t, m.Destroy(ctx, pair.Access))
	})

	t.Run("destroyed token is revoked", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		claims, err := token.NewCodec().Decode(pair.Access)
		require.NoError(t, err)

		revoked, err := m.IsRevoked(ctx, claims)
		require.NoError(t, err)
		assert.False(t, revoked)

		require.NoError(t, m.Destroy(ctx, pair.Access))

		revoked, err = m.IsRevoked(ctx, claims)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("destroy rejects garbage tokens", func(t *testing.T) {
		m := newTestManager(t)
		assert.Error(t, m.Destroy(ctx, "garbage"))
	})
}

func TestManagerDestroyNamespace(t *testing.T) {
	ctx := context.Background()

	t.Run("memory store degrades to a logged no-op", func(t *testing.T) {
		m := newTestManager(t)

		pair, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)

		// No error even though the backend cannot flush namespaces
		require.NoError(t, m.DestroyNamespace(ctx, "user_user-1"))

		// Session survives: the degradation is an accepted limitation
		exists, err := m.Exists(ctx, pair.Access)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("redis store flushes the namespace", func(t *testing.T) {
		cleanup := config.SetJWTSecret([]byte("test-secret-key-for-jwt-signing-in-tests"))
		t.Cleanup(cleanup)

		_, store := newTestRedisStore(t)
		m := NewManager(token.NewCodec(), store)

		first, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)
		second, err := m.Create(ctx, testAccount, testUser, nil)
		require.NoError(t, err)
		other, err := m.Create(ctx, testAccount, nil, nil)
		require.NoError(t, err)

		require.NoError(t, m.DestroyNamespace(ctx, "user_user-1"))

		for _, access := range []string{first.Access, second.Access} {
			exists, err := m.Exists(ctx, access)
			require.NoError(t, err)
			assert.False(t, exists)
		}

		// The account-namespaced session is untouched
		exists, err := m.Exists(ctx, other.Access)
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
