package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blueskybroadcast/teams-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed means the string is not a JWT at all
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature means the token was signed with a different key
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpired means the token's exp claim is in the past
	ErrExpired = errors.New("expired token")
)

// Claims is the decoded payload of a signed token
type Claims map[string]interface{}

// Codec encodes and decodes HS256-signed tokens. The signing secret is read
// once at construction and never mutated.
type Codec struct {
	secret []byte
}

func NewCodec() *Codec {
	return &Codec{secret: config.GetJWTSecret()}
}

func NewCodecWithSecret(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Encode signs the claims with the given lifetime. A uid claim is generated
// when absent so every token has a stable session identifier.
func (c *Codec) Encode(claims Claims, ttl time.Duration) (string, error) {
	payload := jwt.MapClaims{}
	for k, v := range claims {
		payload[k] = v
	}

	if _, ok := payload["uid"]; !ok {
		payload["uid"] = uuid.New().String()
	}
	payload["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Decode verifies the signature and expiry, then returns the claims.
// Failures are classified as ErrMalformed, ErrInvalidSignature or ErrExpired.
func (c *Codec) Decode(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformed
	}

	return Claims(mapClaims), nil
}

// AccountID returns the account_id claim as a string
func (c Claims) AccountID() string {
	return c.stringValue("account_id")
}

// UserID returns the user_id claim as a string
func (c Claims) UserID() string {
	return c.stringValue("user_id")
}

// UID returns the session identifier claim
func (c Claims) UID() string {
	return c.stringValue("uid")
}

// CSRF returns the CSRF claim
func (c Claims) CSRF() string {
	return c.stringValue("csrf")
}

// ExpiresAt returns the exp claim. Zero time when absent.
func (c Claims) ExpiresAt() time.Time {
	switch v := c["exp"].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case int64:
		return time.Unix(v, 0)
	}
	return time.Time{}
}

// Scopes returns the scopes claim as a string slice. Both a JSON array under
// "scopes" and a space-separated "scope" string are accepted, matching the
// shapes external issuers produce.
func (c Claims) Scopes() []string {
	if raw, ok := c["scopes"].([]interface{}); ok {
		scopes := make([]string, 0, len(raw))
		for _, s := range raw {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	}
	if raw, ok := c["scope"].(string); ok && raw != "" {
		return strings.Fields(raw)
	}
	return nil
}

func (c Claims) stringValue(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}
