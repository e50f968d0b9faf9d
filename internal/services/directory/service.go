package directory

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// User is the host application's user as seen by the auth subsystem
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Admin        bool   `json:"admin"`
	AccountID    string `json:"account_id"`
	AuthToken    string `json:"auth_token,omitempty"`
	PasswordHash string `json:"password_hash,omitempty"`
}

// Account is the tenant a user belongs to
type Account struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	JWTEnabled bool   `json:"jwt_enabled"`
}

// UserProvider resolves users by the identifiers tokens carry
type UserProvider interface {
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	// UserByAuthToken resolves a legacy static per-user auth token
	UserByAuthToken(ctx context.Context, authToken string) (*User, error)
}

// AccountProvider resolves accounts by id
type AccountProvider interface {
	AccountByID(ctx context.Context, id string) (*Account, error)
}

// Service is an in-memory directory backing the provider interfaces. The host
// application owns the real records; this service holds the projection the
// auth subsystem needs.
type Service struct {
	mu       sync.RWMutex
	users    map[string]*User
	accounts map[string]*Account
}

func NewService() *Service {
	return &Service{
		users:    make(map[string]*User),
		accounts: make(map[string]*Account),
	}
}

// LoadFixtures seeds the directory from a JSON file of users and accounts
func (s *Service) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read directory fixtures")
	}

	var fixtures struct {
		Users    []*User    `json:"users"`
		Accounts []*Account `json:"accounts"`
	}
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return errors.Wrap(err, "parse directory fixtures")
	}

	for _, account := range fixtures.Accounts {
		s.AddAccount(account)
	}
	for _, user := range fixtures.Users {
		s.AddUser(user)
	}

	log.Info().
		Int("users", len(fixtures.Users)).
		Int("accounts", len(fixtures.Accounts)).
		Msg("Directory fixtures loaded")
	return nil
}

func (s *Service) AddUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *Service) AddAccount(account *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

// UserByID returns nil without error when no user matches
func (s *Service) UserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[id], nil
}

func (s *Service) UserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, nil
}

func (s *Service) UserByAuthToken(ctx context.Context, authToken string) (*User, error) {
	if authToken == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.AuthToken != "" && user.AuthToken == authToken {
			return user, nil
		}
	}
	return nil, nil
}

func (s *Service) AccountByID(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[id], nil
}

// Authenticate checks a user's credentials. Returns nil when the email is
// unknown or the password does not match the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.UserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// HashPassword hashes a plaintext password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}
