// Package auth handles the bearer credential the engine operates under.
//
// The gateway never issues tokens. It reads the claims of the JWT minted by
// the backend to learn the acting user's identity and to fail fast on
// expiry before any network call; signature verification stays with the
// backend, which rejects tampered tokens on every request.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/expensetrack/splitdesk/internal/member"
)

var (
	ErrMissingToken = errors.New("authorization token required")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Credential is a validated bearer token plus the identity it carries.
type Credential struct {
	Token    string
	Username string // canonical acting-user username
	Expiry   time.Time
}

// FromToken parses a raw JWT and extracts the acting user. It fails closed:
// a missing, malformed, expired, or anonymous token yields an error and the
// engine refuses to operate.
func FromToken(raw string) (*Credential, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: no expiry claim", ErrInvalidToken)
	}
	if time.Now().After(exp.Time) {
		return nil, ErrExpiredToken
	}

	username := usernameFromClaims(claims)
	if username == "" {
		return nil, fmt.Errorf("%w: no username claim", ErrInvalidToken)
	}

	return &Credential{
		Token:    raw,
		Username: member.Canonical(username),
		Expiry:   exp.Time,
	}, nil
}

// FromBearer parses an Authorization header value of the form
// "Bearer <token>".
func FromBearer(header string) (*Credential, error) {
	if header == "" {
		return nil, ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("%w: malformed authorization header", ErrInvalidToken)
	}
	return FromToken(parts[1])
}

// Expired reports whether the credential's expiry has passed since it was
// parsed. Long-lived editor sessions re-check before each submission.
func (c *Credential) Expired() bool {
	return time.Now().After(c.Expiry)
}

// usernameFromClaims prefers the custom username claim and falls back to
// the registered subject, matching what the backend puts in its tokens.
func usernameFromClaims(claims jwt.MapClaims) string {
	if v, ok := claims["username"].(string); ok && v != "" {
		return v
	}
	sub, _ := claims.GetSubject()
	return sub
}
