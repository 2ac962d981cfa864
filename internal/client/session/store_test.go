package session

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medkeeper/internal/client/client"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "medkeeper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(openDB(t), "device-secret", logging.NewNop())
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-key"))
	require.NoError(t, err)
	return s
}

func TestToken_RoundTripIsEncryptedAtRest(t *testing.T) {
	db := openDB(t)
	s := NewStore(db, "device-secret", logging.NewNop())
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "opaque-token-123"))

	var raw []byte
	require.NoError(t, db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = 'token'`).Scan(&raw))
	require.NotContains(t, string(raw), "opaque-token-123")

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "opaque-token-123", tok)

	// a second store over the same database derives the same key
	tok, err = NewStore(db, "device-secret", logging.NewNop()).Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "opaque-token-123", tok)
}

func TestToken_WrongSecretReadsAsSignedOut(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	require.NoError(t, NewStore(db, "a", logging.NewNop()).SetToken(ctx, "tok"))

	other := NewStore(db, "b", logging.NewNop())
	tok, err := other.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)

	in, err := other.SignedIn(ctx)
	require.NoError(t, err)
	require.False(t, in)
}

func TestToken_ExpiredJWTIsCleared(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	tok := signed(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()})
	require.NoError(t, s.SetToken(ctx, tok))
	require.NoError(t, s.SetProfile(ctx, models.Profile{ID: "u1"}))

	got, err := s.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestToken_ValidJWTKept(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tok := signed(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, s.SetToken(ctx, tok))

	got, err := s.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, tok, got)
}

func TestLogout_KeepsDeviceFlags(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SetProfile(ctx, models.Profile{ID: "u1", Email: "a@b.c"}))
	require.NoError(t, s.SetFlag(ctx, FlagTermsAccepted, true))
	require.NoError(t, s.SetFlag(ctx, FlagTourCompleted, true))
	require.NoError(t, s.SetPendingAction(ctx, models.PendingAction{Kind: models.PendingActionOpenAdd, Method: models.MethodScan}))

	require.NoError(t, s.Logout(ctx))

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)

	p, err := s.Profile(ctx)
	require.NoError(t, err)
	require.Nil(t, p)

	a, err := s.TakePendingAction(ctx)
	require.NoError(t, err)
	require.Nil(t, a)

	terms, err := s.Flag(ctx, FlagTermsAccepted)
	require.NoError(t, err)
	require.True(t, terms)
	tour, err := s.Flag(ctx, FlagTourCompleted)
	require.NoError(t, err)
	require.True(t, tour)
}

func TestFlags_DefaultFalseAndToggle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	on, err := s.Flag(ctx, FlagNotificationsOptIn)
	require.NoError(t, err)
	require.False(t, on)

	require.NoError(t, s.SetFlag(ctx, FlagNotificationsOptIn, true))
	on, _ = s.Flag(ctx, FlagNotificationsOptIn)
	require.True(t, on)

	require.NoError(t, s.SetFlag(ctx, FlagNotificationsOptIn, false))
	on, _ = s.Flag(ctx, FlagNotificationsOptIn)
	require.False(t, on)
}

func TestLanguage_Fallback(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	lang, err := s.Language(ctx, "en")
	require.NoError(t, err)
	require.Equal(t, "en", lang)

	require.NoError(t, s.SetLanguage(ctx, "ar"))
	lang, err = s.Language(ctx, "en")
	require.NoError(t, err)
	require.Equal(t, "ar", lang)
}

func TestTakePendingAction_ConsumedExactlyOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetPendingAction(ctx, models.PendingAction{Kind: models.PendingActionOpenAdd, Method: models.MethodSearch}))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.TakePendingAction(ctx)
			require.NoError(t, err)
			if a != nil {
				mu.Lock()
				taken++
				mu.Unlock()
				require.Equal(t, models.MethodSearch, a.Method)
				require.False(t, a.CreatedAt.IsZero())
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, taken)
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{
		"sub":        "u1",
		"email":      "a@b.c",
		"is_admin":   true,
		"is_premium": true,
		"exp":        exp.Unix(),
	})

	info, err := InspectToken(tok)
	require.NoError(t, err)
	require.True(t, info.IsJWT)
	require.Equal(t, "u1", info.Profile.ID)
	require.Equal(t, "a@b.c", info.Profile.Email)
	require.True(t, info.Profile.Admin)
	require.True(t, info.Profile.Premium)
	require.True(t, info.ExpiresAt.Equal(exp))
	require.False(t, info.Expired(time.Now()))

	info, err = InspectToken("opaque")
	require.NoError(t, err)
	require.False(t, info.IsJWT)

	_, err = InspectToken("a.b.c")
	require.ErrorIs(t, err, ErrMalformedToken)

	_, err = InspectToken("  ")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestReset_ForgetsDeviceState(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SetFlag(ctx, FlagTermsAccepted, true))
	require.NoError(t, s.SetLanguage(ctx, "ar"))

	require.NoError(t, s.Reset(ctx))

	ok, err := s.SignedIn(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	accepted, err := s.Flag(ctx, FlagTermsAccepted)
	require.NoError(t, err)
	require.False(t, accepted)
	lang, err := s.Language(ctx, "en")
	require.NoError(t, err)
	require.Equal(t, "en", lang)

	// a fresh salt is created on the next write
	require.NoError(t, s.SetToken(ctx, "tok2"))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok2", tok)
}
