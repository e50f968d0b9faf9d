package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/blueskybroadcast/teams-api/internal/services/directory"
	"github.com/blueskybroadcast/teams-api/internal/services/token"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNamespaceUnresolvable means the claims carry neither a user id nor
	// an account id, so the session cannot be grouped anywhere
	ErrNamespaceUnresolvable = errors.New("could not resolve session namespace")
	// ErrSessionNotFound means a token decoded fine but has no tracked
	// session record (a dangling token)
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnauthorized covers invalid or expired refresh tokens
	ErrUnauthorized = errors.New("unauthorized")
)

// TokenPair is the result of creating or refreshing a session
type TokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// accessRecord is the persisted value for an access session
type accessRecord struct {
	CSRF       string       `json:"csrf"`
	RefreshUID string       `json:"refresh_uid"`
	Claims     token.Claims `json:"claims"`
}

// refreshRecord links a refresh token back to its access session
type refreshRecord struct {
	AccessUID string       `json:"access_uid"`
	Claims    token.Claims `json:"claims"`
}

// Manager orchestrates the session lifecycle: issue an access/refresh pair,
// rotate it, and tear it down by token or by namespace.
type Manager struct {
	codec      *token.Codec
	store      Store
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(codec *token.Codec, store Store) *Manager {
	return &Manager{
		codec:      codec,
		store:      store,
		accessTTL:  config.GetAccessExpiration(),
		refreshTTL: config.GetRefreshExpiration(),
	}
}

// AccessTTL returns the configured access token lifetime
func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// Namespace derives the session grouping key from claims: user_<id> when a
// user id is present, account_<id> otherwise. A session cannot be namespaced
// to nothing.
func Namespace(claims token.Claims) (string, error) {
	if userID := claims.UserID(); userID != "" {
		return fmt.Sprintf("user_%s", userID), nil
	}
	if accountID := claims.AccountID(); accountID != "" {
		return fmt.Sprintf("account_%s", accountID), nil
	}
	return "", ErrNamespaceUnresolvable
}

// Create issues a new access/refresh pair for the given account and user and
// persists both session records. Overrides are merged over the built claims.
// User may be nil for account-only sessions; at least one of account or user
// must resolve to a namespace.
func (m *Manager) Create(ctx context.Context, account *directory.Account, user *directory.User, overrides token.Claims) (*TokenPair, error) {
	claims := token.Claims{}
	if account != nil {
		claims["account_id"] = account.ID
		claims["account_slug"] = account.Slug
	}
	if user != nil {
		claims["user_id"] = user.ID
		claims["user_email"] = user.Email
		claims["admin"] = user.Admin
		if account == nil {
			claims["account_id"] = user.AccountID
		}
	}
	for k, v := range overrides {
		claims[k] = v
	}

	namespace, err := Namespace(claims)
	if err != nil {
		log.Error().Err(err).Msg("Create JWT session error")
		return nil, err
	}

	pair, err := m.issue(ctx, claims, namespace)
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("Create JWT session error")
		return nil, err
	}
	return pair, nil
}

// Refresh rotates a session: the old access/refresh pair is invalidated and a
// new pair is issued preserving the original identity claims. Returns
// ErrUnauthorized when the refresh token is invalid, expired or untracked.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.codec.Decode(refreshToken)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}

	namespace, err := Namespace(claims)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}

	value, found, err := m.store.Fetch(ctx, refreshKey(namespace, claims.UID()))
	if err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("Session store unavailable during refresh")
		return nil, errors.Wrap(ErrUnauthorized, "session store unavailable")
	}
	if !found {
		return nil, errors.Wrap(ErrUnauthorized, "refresh token is not tracked")
	}

	var record refreshRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, errors.Wrap(ErrUnauthorized, "corrupt refresh record")
	}

	// Last writer wins on concurrent refreshes of the same token; refresh
	// tokens are single in-flight use.
	if err := m.store.Delete(ctx, accessKey(namespace, record.AccessUID)); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to delete rotated access session")
	}
	if err := m.store.Delete(ctx, refreshKey(namespace, claims.UID())); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to delete rotated refresh session")
	}

	pair, err := m.issue(ctx, baseClaims(record.Claims), namespace)
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("Refresh JWT session error")
		return nil, err
	}
	return pair, nil
}

// Destroy removes the session records for an access token and its paired
// refresh token. Destroying an already-absent session is not an error.
func (m *Manager) Destroy(ctx context.Context, accessToken string) error {
	claims, err := m.codec.Decode(accessToken)
	if err != nil {
		return err
	}

	namespace, err := Namespace(claims)
	if err != nil {
		return err
	}

	key := accessKey(namespace, claims.UID())
	value, found, err := m.store.Fetch(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("Session store unavailable during destroy")
		return nil
	}

	if found {
		var record accessRecord
		if err := json.Unmarshal([]byte(value), &record); err == nil && record.RefreshUID != "" {
			if err := m.store.Delete(ctx, refreshKey(namespace, record.RefreshUID)); err != nil {
				log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to delete paired refresh session")
			}
		}
	}

	if err := m.store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to delete access session")
	}

	// Tombstone the token so the self-heal path cannot resurrect an
	// explicitly destroyed session. TTL matches the token's own lifetime.
	if err := m.store.Persist(ctx, revokedKey(claims.UID()), "1", m.accessTTL); err != nil {
		log.Warn().Err(err).Str("namespace", namespace).Msg("Failed to persist revocation marker")
	}
	return nil
}

// IsRevoked reports whether the token was explicitly destroyed. A revoked
// token is never eligible for self-heal.
func (m *Manager) IsRevoked(ctx context.Context, claims token.Claims) (bool, error) {
	return m.store.Exists(ctx, revokedKey(claims.UID()))
}

// DestroyNamespace flushes every session in a namespace. On backends without
// pattern deletion this degrades to a logged no-op.
func (m *Manager) DestroyNamespace(ctx context.Context, namespace string) error {
	err := m.store.DeleteNamespace(ctx, namespace)
	if errors.Is(err, ErrNotSupported) {
		log.Warn().Str("namespace", namespace).Msg("Namespace flush not supported by store backend - skipping")
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Msg("Destroy JWT sessions by namespace error")
	}
	return err
}

// Exists reports whether the access token has a tracked session record
func (m *Manager) Exists(ctx context.Context, accessToken string) (bool, error) {
	claims, err := m.codec.Decode(accessToken)
	if err != nil {
		return false, err
	}
	return m.ExistsForClaims(ctx, claims)
}

// ExistsForClaims reports whether already-decoded claims map to a tracked session
func (m *Manager) ExistsForClaims(ctx context.Context, claims token.Claims) (bool, error) {
	namespace, err := Namespace(claims)
	if err != nil {
		return false, err
	}
	return m.store.Exists(ctx, accessKey(namespace, claims.UID()))
}

// FetchCSRF returns the CSRF marker persisted with an access session
func (m *Manager) FetchCSRF(ctx context.Context, claims token.Claims) (string, error) {
	namespace, err := Namespace(claims)
	if err != nil {
		return "", err
	}

	value, found, err := m.store.Fetch(ctx, accessKey(namespace, claims.UID()))
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrSessionNotFound
	}

	var record accessRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return "", err
	}
	return record.CSRF, nil
}

func (m *Manager) issue(ctx context.Context, claims token.Claims, namespace string) (*TokenPair, error) {
	accessUID := uuid.New().String()
	refreshUID := uuid.New().String()
	csrf := uuid.New().String()

	accessClaims := token.Claims{}
	for k, v := range claims {
		accessClaims[k] = v
	}
	accessClaims["uid"] = accessUID
	accessClaims["csrf"] = csrf

	access, err := m.codec.Encode(accessClaims, m.accessTTL)
	if err != nil {
		return nil, errors.Wrap(err, "encode access token")
	}

	refreshClaims := token.Claims{"uid": refreshUID}
	if accountID := claims.AccountID(); accountID != "" {
		refreshClaims["account_id"] = accountID
	}
	if userID := claims.UserID(); userID != "" {
		refreshClaims["user_id"] = userID
	}

	refresh, err := m.codec.Encode(refreshClaims, m.refreshTTL)
	if err != nil {
		return nil, errors.Wrap(err, "encode refresh token")
	}

	accessValue, err := json.Marshal(accessRecord{
		CSRF:       csrf,
		RefreshUID: refreshUID,
		Claims:     accessClaims,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal access record")
	}
	if err := m.store.Persist(ctx, accessKey(namespace, accessUID), string(accessValue), m.accessTTL); err != nil {
		return nil, errors.Wrap(err, "persist access session")
	}

	refreshValue, err := json.Marshal(refreshRecord{
		AccessUID: accessUID,
		Claims:    claims,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal refresh record")
	}
	if err := m.store.Persist(ctx, refreshKey(namespace, refreshUID), string(refreshValue), m.refreshTTL); err != nil {
		return nil, errors.Wrap(err, "persist refresh session")
	}

	now := time.Now()
	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}, nil
}

// baseClaims strips per-session claims so rotation reuses only identity claims
func baseClaims(claims token.Claims) token.Claims {
	base := token.Claims{}
	for k, v := range claims {
		switch k {
		case "uid", "csrf", "exp":
		default:
			base[k] = v
		}
	}
	return base
}

func accessKey(namespace, uid string) string {
	return fmt.Sprintf("%s_access_%s", namespace, uid)
}

func refreshKey(namespace, uid string) string {
	return fmt.Sprintf("%s_refresh_%s", namespace, uid)
}

func revokedKey(uid string) string {
	return fmt.Sprintf("revoked_%s", uid)
}
