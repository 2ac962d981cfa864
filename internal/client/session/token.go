package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
)

var ErrMalformedToken = errors.New("malformed token")

// TokenInfo is what the client can learn from a bearer token without the
// server's signing key.
type TokenInfo struct {
	Profile   models.Profile
	ExpiresAt time.Time
	IsJWT     bool
}

// Expired reports whether the token carries an expiry earlier than now.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// InspectToken reads the claims of a JWT without verifying its signature;
// the backend stays the authority. Opaque tokens yield an empty TokenInfo.
func InspectToken(tok string) (TokenInfo, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return TokenInfo{}, ErrMalformedToken
	}
	if strings.Count(tok, ".") != 2 {
		return TokenInfo{}, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	info := TokenInfo{IsJWT: true}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		info.Profile.ID = sub
	}
	info.Profile.Email = stringClaim(claims, "email")
	info.Profile.Name = stringClaim(claims, "name")
	info.Profile.Admin = boolClaim(claims, "admin", "is_admin")
	info.Profile.Premium = boolClaim(claims, "premium", "is_premium")
	if info.Profile.ID == "" {
		info.Profile.ID = stringClaim(claims, "user_id", "uid")
	}
	return info, nil
}

func stringClaim(c jwt.MapClaims, names ...string) string {
	for _, n := range names {
		if v, ok := c[n].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func boolClaim(c jwt.MapClaims, names ...string) bool {
	for _, n := range names {
		if v, ok := c[n].(bool); ok && v {
			return true
		}
	}
	return false
}
