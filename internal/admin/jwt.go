// Package admin implements the federated-identity-gated management
// surface: OIDC login, JWT-bearer API authorization, file/share/task
// management endpoints, and the live-update websocket.
//
// Grounded on the teacher's internal/api/server.go chi-router idiom
// (plain handler methods on a server struct, middleware chain built
// with router.Use) for the overall shape, cross-pollinated with
// golang-jwt/jwt and golang.org/x/oauth2 usage found elsewhere in the
// retrieved corpus for the auth layer itself — the teacher's own
// control-plane auth was a static shared-secret header
// (X-Tachyon-Token), which has no OIDC/JWT equivalent to adapt, so
// this part is built fresh in the teacher's handler idiom rather than
// adapted from a specific teacher function.
package admin

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// claims is the HS256 bearer token payload. Subject is the
// admin_users row id, carried as a string per JWT convention.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenIssuer mints and verifies HS256 bearer tokens for admin sessions.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry}
}

// Issue mints a token for the given admin user id and email.
func (t *TokenIssuer) Issue(adminUserID uint, email string) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", adminUserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
		},
		Email: email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token, returning the admin user id
// encoded as its subject.
func (t *TokenIssuer) Verify(tokenString string) (uint, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	var id uint
	if _, err := fmt.Sscanf(c.Subject, "%d", &id); err != nil {
		return 0, fmt.Errorf("malformed subject claim: %w", err)
	}
	return id, nil
}
