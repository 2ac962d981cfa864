// Package services contains application services for the medkeeper client.
// This file defines the authentication service: bearer-token login validated
// against the backend, logout, and the cached profile of the signed-in user.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/session"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: store the token, prove it with an authenticated call and cache
//     the profile carried by its claims.
//   - Logout: forget identity-bound state; device flags stay.
//   - Profile: the cached identity, common.ErrLocalDataNotAvailable when
//     signed out.
//   - Ping: an authenticated round trip with the current token.
type AuthService interface {
	Login(ctx context.Context, token string) (models.Profile, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (models.Profile, error)
	Ping(ctx context.Context) error
}

// Verifier is the authenticated call used to prove a token.
type Verifier interface {
	Limits(ctx context.Context) (models.UserLimits, error)
}

// SessionStore is the part of session.Store the service needs.
type SessionStore interface {
	SetToken(ctx context.Context, tok string) error
	ClearToken(ctx context.Context) error
	SetProfile(ctx context.Context, p models.Profile) error
	Profile(ctx context.Context) (*models.Profile, error)
	Logout(ctx context.Context) error
}

type authService struct {
	api   Verifier
	store SessionStore
	log   logging.Logger
	now   func() time.Time
}

// NewAuthService constructs an AuthService bound to the given API client and
// session store.
func NewAuthService(api Verifier, store SessionStore, log logging.Logger) AuthService {
	return &authService{api: api, store: store, log: log, now: time.Now}
}

// Login rejects an empty, malformed or already expired token before any
// network call. On a failed verification the token is cleared again.
func (a *authService) Login(ctx context.Context, token string) (models.Profile, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), common.BearerPrefix))
	info, err := session.InspectToken(token)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if info.Expired(a.now()) {
		return models.Profile{}, fmt.Errorf("token expired at %s: %w", info.ExpiresAt.Format(time.RFC3339), common.ErrUnauthorized)
	}

	if err := a.store.SetToken(ctx, token); err != nil {
		return models.Profile{}, fmt.Errorf("save token: %w", err)
	}

	limits, err := a.api.Limits(ctx)
	if err != nil {
		if clearErr := a.store.ClearToken(ctx); clearErr != nil {
			a.log.Error(ctx, "clearing rejected token failed", "error", clearErr)
		}
		return models.Profile{}, fmt.Errorf("login error: %w", err)
	}

	p := info.Profile
	if limits.IsPremium {
		p.Premium = true
	}
	if err := a.store.SetProfile(ctx, p); err != nil {
		return models.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	a.log.Info(ctx, "signed in", "user", p.ID, "jwt", info.IsJWT)
	return p, nil
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	a.log.Info(ctx, "signed out")
	return nil
}

func (a *authService) Profile(ctx context.Context) (models.Profile, error) {
	p, err := a.store.Profile(ctx)
	if err != nil {
		return models.Profile{}, err
	}
	if p == nil {
		return models.Profile{}, common.ErrLocalDataNotAvailable
	}
	return *p, nil
}

// Ping proves the stored token still works. A 401 has already cleared it by
// the time the error surfaces here.
func (a *authService) Ping(ctx context.Context) error {
	if _, err := a.api.Limits(ctx); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return common.ErrUnauthorized
		}
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
