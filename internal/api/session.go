package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session describes the signed-in user as claimed by the bearer token.
type Session struct {
	Subject string
	Name    string
	Email   string
	Expires time.Time
}

// Expired reports whether the token has expired at now.
func (s Session) Expired(now time.Time) bool {
	return !s.Expires.IsZero() && now.After(s.Expires)
}

// Label is the name shown in the header.
func (s Session) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Email != "":
		return s.Email
	default:
		return s.Subject
	}
}

// ParseSession decodes the claims of token without verifying its signature.
// The server verifies the token; the console only displays what it claims.
func ParseSession(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, fmt.Errorf("token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("parse token: %w", err)
	}

	var s Session
	s.Subject, _ = claims.GetSubject()
	if name, ok := claims["name"].(string); ok {
		s.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.Expires = exp.Time
	}
	return s, nil
}
