// Package auth inspects the bearer token the server issues at login.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/verdantchat/verdant/internal/normalize"
)

// Claims is the JWT payload the server puts in its tokens (user id + email).
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is what the client can learn from its own token. The client holds
// no signing secret, so nothing here is verified; the server remains the
// authority and revokes bad tokens through the forceLogout event.
type Identity struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Inspect reads the identity out of a bearer token without verifying the
// signature.
func Inspect(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, err
	}
	if claims.UserID == "" {
		return Identity{}, errors.New("token has no user id")
	}
	id := Identity{
		UserID: claims.UserID,
		Email:  normalize.Email(claims.Email),
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// Expired reports whether the identity's token has passed its expiry. An
// expired token gets the same treatment as a server-initiated forced logout.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
