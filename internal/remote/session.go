package remote

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session describes the bearer token the client is acting with. The token is
// decoded but not verified; the server remains the authority on what the
// token permits.
type Session struct {
	Token     string
	Subject   string
	Role      string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

type sessionClaims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// ParseSession decodes the claims of a JWT bearer token.
func ParseSession(token string) (*Session, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	var claims sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	s := &Session{Token: token, Subject: claims.Subject, Role: claims.Role}
	if s.Role == "" && len(claims.Roles) > 0 {
		s.Role = claims.Roles[0]
		for _, r := range claims.Roles {
			if isAdminRole(r) {
				s.Role = r
				break
			}
		}
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// IsAdmin reports whether the token carries the administrator role.
func (s *Session) IsAdmin() bool {
	return isAdminRole(s.Role)
}

// Expired reports whether the token's exp claim lies before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// AccountID returns a stable identifier for the account token acts for: the
// JWT subject when present, otherwise a digest of the token itself. An empty
// token yields "".
func AccountID(token string) string {
	if token == "" {
		return ""
	}
	if s, err := ParseSession(token); err == nil && s.Subject != "" {
		return s.Subject
	}
	sum := sha256.Sum256([]byte(token))
	return "token:" + hex.EncodeToString(sum[:8])
}

func isAdminRole(r string) bool {
	return strings.TrimPrefix(strings.ToUpper(r), "ROLE_") == "ADMIN"
}
