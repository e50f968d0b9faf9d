package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedService(t *testing.T) *Service {
	t.Helper()

	hash, err := HashPassword("secret")
	require.NoError(t, err)

	s := NewService()
	s.AddAccount(&Account{ID: "acc-1", Slug: "test-account", JWTEnabled: true})
	s.AddUser(&User{
		ID:           "user-1",
		Email:        "a@x.com",
		AccountID:    "acc-1",
		AuthToken:    "legacy-token-123",
		PasswordHash: hash,
	})
	return s
}

func TestServiceLookups(t *testing.T) {
	ctx := context.Background()
	s := seedService(t)

	t.Run("by id", func(t *testing.T) {
		user, err := s.UserByID(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "a@x.com", user.Email)

		missing, err := s.UserByID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("by email", func(t *testing.T) {
		user, err := s.UserByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("by legacy auth token", func(t *testing.T) {
		user, err := s.UserByAuthToken(ctx, "legacy-token-123")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-1", user.ID)

		missing, err := s.UserByAuthToken(ctx, "wrong")
		require.NoError(t, err)
		assert.Nil(t, missing)

		// Empty tokens never match, even against users without one
		missing, err = s.UserByAuthToken(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("account by id", func(t *testing.T) {
		account, err := s.AccountByID(ctx, "acc-1")
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "test-account", account.Slug)
	})
}

func TestServiceAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := seedService(t)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := s.Authenticate(ctx, "a@x.com", "secret")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		user, err := s.Authenticate(ctx, "a@x.com", "wrong")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("unknown email", func(t *testing.T) {
		user, err := s.Authenticate(ctx, "nobody@x.com", "secret")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}
