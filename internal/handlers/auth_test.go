package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/blueskybroadcast/teams-api/internal/auth"
	"github.com/blueskybroadcast/teams-api/internal/config"
	redisinfra "github.com/blueskybroadcast/teams-api/internal/infrastructure/redis"
	"github.com/blueskybroadcast/teams-api/internal/middleware"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/session"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
	"github.com/blueskybroadcast/teams-api/internal/teams"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router   *mux.Router
	sessions *session.Manager
	store    session.Store
	dir      *directory.Service
	repo     *teams.Repo
	account  *directory.Account
	user     *directory.User
}

func newAPIFixture(t *testing.T) *apiFixture {
	return newAPIFixtureWithStore(t, session.NewMemoryStore())
}

func newAPIFixtureWithStore(t *testing.T, store session.Store) *apiFixture {
	t.Helper()
	cleanup := config.SetJWTSecret([]byte("test-secret-key-for-jwt-signing-in-tests"))
	t.Cleanup(cleanup)

	codec := token.NewCodec()
	sessions := session.NewManager(codec, store)

	dir := directory.NewService()
	account := &directory.Account{ID: "acc-1", Slug: "test-account", JWTEnabled: true}
	hash, err := directory.HashPassword("secret")
	require.NoError(t, err)
	user := &directory.User{ID: "user-1", Email: "a@x.com", AccountID: "acc-1", PasswordHash: hash}
	dir.AddAccount(account)
	dir.AddUser(user)

	authenticator := auth.NewAuthenticator(codec, sessions, dir, dir, nil)
	guard := middleware.NewGuard(authenticator, sessions, dir, dir)

	repo := teams.NewRepo()
	router := NewRouter(
		NewAuthHandler(sessions, dir),
		NewTeamsHandler(repo),
		NewMembershipsHandler(repo, dir),
		guard,
	)

	return &apiFixture{
		router:   router,
		sessions: sessions,
		store:    store,
		dir:      dir,
		repo:     repo,
		account:  account,
		user:     user,
	}
}

func (f *apiFixture) request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *apiFixture) login(t *testing.T) *session.TokenPair {
	t.Helper()
	w := f.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "secret",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var pair session.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return &pair
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials yield a token pair", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "a@x.com",
			"password": "secret",
		}, nil)

		require.Equal(t, http.StatusCreated, w.Code)

		var pair session.TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)

		// Refresh lifetime is 14 days against the 12 hour access lifetime
		spread := pair.RefreshExpiresAt.Sub(pair.AccessExpiresAt)
		expected := f.sessions.RefreshTTL() - f.sessions.AccessTTL()
		assert.InDelta(t, expected.Seconds(), spread.Seconds(), 5)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "a@x.com",
			"password": "nope",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
	})

	t.Run("unknown email is rejected", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "nobody@x.com",
			"password": "secret",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email": "not-an-email",
		}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("rotates the pair and invalidates the old tokens", func(t *testing.T) {
		f := newAPIFixture(t)
		pair := f.login(t)

		w := f.request(http.MethodPost, "/api/v1/auth/refresh", map[string]string{
			"refresh_token": pair.Refresh,
		}, nil)

		require.Equal(t, http.StatusOK, w.Code)

		var rotated session.TokenPair
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rotated))
		assert.NotEqual(t, pair.Access, rotated.Access)

		// Old access session is gone
		exists, err := f.sessions.Exists(context.Background(), pair.Access)
		require.NoError(t, err)
		assert.False(t, exists)

		// A refresh token is single use
		w = f.request(http.MethodPost, "/api/v1/auth/refresh", map[string]string{
			"refresh_token": pair.Refresh,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("blank token is a bad request", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodPost, "/api/v1/auth/refresh", map[string]string{}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Refresh token required"}`, w.Body.String())
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodPost, "/api/v1/auth/refresh", map[string]string{
			"refresh_token": "not-a-jwt",
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid refresh token"}`, w.Body.String())
	})
}

func TestLogout(t *testing.T) {
	t.Run("destroys the session and keeps it dead", func(t *testing.T) {
		f := newAPIFixture(t)
		pair := f.login(t)

		w := f.request(http.MethodDelete, "/api/v1/auth/logout", nil, bearer(pair.Access))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"logged out"}`, w.Body.String())

		// The same token cannot reach a protected resource, and the
		// missing session must not be healed back into existence
		w = f.request(http.MethodGet, "/api/v1/teams", nil, bearer(pair.Access))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token is a bad request", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodDelete, "/api/v1/auth/logout", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No token provided"}`, w.Body.String())
	})

	t.Run("malformed token is unprocessable", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodDelete, "/api/v1/auth/logout", nil, bearer("not-a-jwt"))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"error":"Invalid token"}`, w.Body.String())
	})
}

func TestLogoutAll(t *testing.T) {
	t.Run("flushes every session in the caller's namespace", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		store := session.NewRedisStore(redisinfra.NewServiceWithClient(client), "jwt_")
		f := newAPIFixtureWithStore(t, store)

		// Two logins, as from two devices
		first := f.login(t)
		second := f.login(t)

		w := f.request(http.MethodDelete, "/api/v1/auth/logout_all", nil, bearer(first.Access))
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"logged out"}`, w.Body.String())

		for _, access := range []string{first.Access, second.Access} {
			exists, err := f.sessions.Exists(context.Background(), access)
			require.NoError(t, err)
			assert.False(t, exists)
		}
	})

	t.Run("degrades to a no-op on the memory store", func(t *testing.T) {
		f := newAPIFixture(t)
		pair := f.login(t)

		w := f.request(http.MethodDelete, "/api/v1/auth/logout_all", nil, bearer(pair.Access))
		assert.Equal(t, http.StatusOK, w.Code)

		// The flush is best effort; the session survives until TTL
		exists, err := f.sessions.Exists(context.Background(), pair.Access)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("requires authentication", func(t *testing.T) {
		f := newAPIFixture(t)

		w := f.request(http.MethodDelete, "/api/v1/auth/logout_all", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSessionSurvivesStoreReset(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)

	require.NoError(t, f.store.Clear(context.Background()))

	w := f.request(http.MethodGet, "/api/v1/teams", nil, bearer(pair.Access))
	assert.Equal(t, http.StatusOK, w.Code)

	// The response carries a replacement cookie for the re-created session
	var replaced bool
	for _, c := range w.Result().Cookies() {
		if c.Name == config.GetAccessCookieName() {
			replaced = true
		}
	}
	assert.True(t, replaced)
}

func TestTokenExpiryWindow(t *testing.T) {
	f := newAPIFixture(t)
	pair := f.login(t)

	assert.InDelta(t, float64(time.Now().Add(f.sessions.AccessTTL()).Unix()), float64(pair.AccessExpiresAt.Unix()), 5)
	assert.InDelta(t, float64(time.Now().Add(f.sessions.RefreshTTL()).Unix()), float64(pair.RefreshExpiresAt.Unix()), 5)
}
