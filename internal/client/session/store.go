package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

const (
	keyToken         = "token"
	keySalt          = "key_salt"
	keyProfile       = "profile"
	keyPendingAction = "pending_action"
	keyLanguage      = "language"
)

// Flag is a persisted device-level boolean.
type Flag string

const (
	FlagTermsAccepted      Flag = "terms_accepted"
	FlagTourCompleted      Flag = "tour_completed"
	FlagNotificationsOptIn Flag = "notifications_opt_in"
)

type Store struct {
	db     *sql.DB
	repo   metadata.Repository
	secret []byte
	log    logging.Logger
	now    func() time.Time

	mu  sync.Mutex
	key []byte
}

func NewStore(db *sql.DB, secret string, log logging.Logger) *Store {
	return &Store{
		db:     db,
		repo:   metadata.NewSQLiteRepository(db),
		secret: []byte(secret),
		log:    log,
		now:    time.Now,
	}
}

// Token returns the stored bearer token, or "" when signed out. An expired
// JWT is dropped on read.
func (s *Store) Token(ctx context.Context) (string, error) {
	sealed, err := s.repo.Get(ctx, keyToken)
	if err != nil || sealed == nil {
		return "", err
	}
	key, err := s.cipherKey(ctx)
	if err != nil {
		return "", err
	}
	plain, err := cryptox.Open(key, sealed)
	if err != nil {
		// sealed under another secret; treat as signed out
		s.log.Warn(ctx, "stored token unreadable, clearing", "error", err)
		return "", s.ClearToken(ctx)
	}
	tok := string(plain)
	cryptox.Wipe(plain)

	if info, err := InspectToken(tok); err == nil && info.Expired(s.now()) {
		s.log.Info(ctx, "session token expired", "expired_at", info.ExpiresAt)
		return "", s.ClearToken(ctx)
	}
	return tok, nil
}

// SetToken seals and stores tok.
func (s *Store) SetToken(ctx context.Context, tok string) error {
	key, err := s.cipherKey(ctx)
	if err != nil {
		return err
	}
	plain := []byte(tok)
	sealed, err := cryptox.Seal(key, plain)
	cryptox.Wipe(plain)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	return s.repo.Set(ctx, keyToken, sealed)
}

// ClearToken forgets the token and the cached profile. Used when the backend
// answers 401.
func (s *Store) ClearToken(ctx context.Context) error {
	return s.repo.Delete(ctx, keyToken, keyProfile)
}

// SignedIn reports whether a usable token is stored.
func (s *Store) SignedIn(ctx context.Context) (bool, error) {
	tok, err := s.Token(ctx)
	return tok != "", err
}

// Logout clears identity-bound state and keeps device flags.
func (s *Store) Logout(ctx context.Context) error {
	return s.repo.Delete(ctx, keyToken, keyProfile, keyPendingAction)
}

// Reset forgets everything stored on this device, including terms
// acceptance, language and the token key salt.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.key = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Profile(ctx context.Context) (*models.Profile, error) {
	raw, err := s.repo.Get(ctx, keyProfile)
	if err != nil || raw == nil {
		return nil, err
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (s *Store) SetProfile(ctx context.Context, p models.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.repo.Set(ctx, keyProfile, raw)
}

func (s *Store) Flag(ctx context.Context, f Flag) (bool, error) {
	raw, err := s.repo.Get(ctx, string(f))
	if err != nil {
		return false, err
	}
	return string(raw) == "1", nil
}

func (s *Store) SetFlag(ctx context.Context, f Flag, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return s.repo.Set(ctx, string(f), []byte(v))
}

// Language returns the stored display language or fallback.
func (s *Store) Language(ctx context.Context, fallback string) (string, error) {
	raw, err := s.repo.Get(ctx, keyLanguage)
	if err != nil {
		return fallback, err
	}
	if len(raw) == 0 {
		return fallback, nil
	}
	return string(raw), nil
}

func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	return s.repo.Set(ctx, keyLanguage, []byte(lang))
}

// SetPendingAction records a, replacing any previous one.
func (s *Store) SetPendingAction(ctx context.Context, a models.PendingAction) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode pending action: %w", err)
	}
	return s.repo.Set(ctx, keyPendingAction, raw)
}

// TakePendingAction reads and deletes the pending action in one
// transaction, so it is returned at most once. nil means none.
func (s *Store) TakePendingAction(ctx context.Context) (*models.PendingAction, error) {
	var out *models.PendingAction
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		raw, err := repo.Get(ctx, keyPendingAction)
		if err != nil || raw == nil {
			return err
		}
		if err := repo.Delete(ctx, keyPendingAction); err != nil {
			return err
		}
		var a models.PendingAction
		if err := json.Unmarshal(raw, &a); err != nil {
			// a corrupt entry is dropped rather than replayed
			s.log.Warn(ctx, "discarding unreadable pending action", "error", err)
			return nil
		}
		out = &a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("take pending action: %w", err)
	}
	return out, nil
}

func (s *Store) cipherKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}

	salt, err := s.repo.Get(ctx, keySalt)
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		salt, err = cryptox.RandomBytes(16)
		if err != nil {
			return nil, err
		}
		if err := s.repo.Set(ctx, keySalt, salt); err != nil {
			return nil, err
		}
	}
	s.key = cryptox.DeriveKey(s.secret, salt)
	return s.key, nil
}
