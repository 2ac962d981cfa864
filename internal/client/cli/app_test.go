package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medkeeper/internal/client/client"
	"github.com/dmitrijs2005/medkeeper/internal/client/client/clienttest"
	"github.com/dmitrijs2005/medkeeper/internal/client/config"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/session"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// ---- helpers ----

// script feeds canned lines to the REPL and then reports EOF.
type script struct {
	mu    sync.Mutex
	lines []string
}

func (s *script) Readline() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

type stubCamera struct{}

func (stubCamera) Capture(context.Context) (models.Image, error) {
	return models.Image{Filename: "pack.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}, nil
}

type harness struct {
	app   *App
	api   *clienttest.Backend
	store *session.Store
	out   *bytes.Buffer
	in    *script
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server:       config.ServerConfig{URL: "http://example.invalid/api", RequestTimeout: time.Second, RecognitionTimeout: time.Second},
		Subscription: config.SubscriptionConfig{PollInterval: time.Hour, WarnHours: 24},
		Quota:        config.QuotaConfig{FreeMedications: 3},
		Capture:      config.CaptureConfig{ResultTTL: time.Minute, MaxImageBytes: 1 << 20},
		Reminders:    config.RemindersConfig{PollInterval: time.Hour},
		Session:      config.SessionConfig{DBPath: filepath.Join(t.TempDir(), "session.db"), Secret: "device"},
		Language:     "en",
	}
}

func newHarness(t *testing.T, lines ...string) *harness {
	t.Helper()
	ctx := context.Background()
	cfg := testConfig(t)

	db, err := client.InitDatabase(ctx, cfg.Session.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		api:   clienttest.New(),
		store: session.NewStore(db, cfg.Session.Secret, logging.NewNop()),
		out:   &bytes.Buffer{},
		in:    &script{lines: lines},
	}
	a, err := New(ctx, Deps{Config: cfg, Store: h.store, API: h.api, Camera: stubCamera{}, In: h.in, Out: h.out, Log: logging.NewNop()})
	require.NoError(t, err)
	a.render = func(md string) string { return md }
	a.secret = func(string) (string, error) { return h.in.Readline() }
	t.Cleanup(func() { _ = a.Close() })
	h.app = a

	old := printlnFn
	printlnFn = func(args ...any) (int, error) { return fmt.Fprintln(h.out, args...) }
	t.Cleanup(func() { printlnFn = old })
	return h
}

func token(t *testing.T) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"name": "Sara",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

// run executes one REPL line through the same path as the interactive loop.
func (h *harness) run(t *testing.T, line string) {
	t.Helper()
	ctx := context.Background()
	parts := strings.Fields(line)
	cmd, ok := h.app.commands()[parts[0]]
	require.True(t, ok, "unknown command %s", parts[0])
	if err := cmd.run(ctx, parts[1:]); err != nil {
		h.app.report(ctx, err)
	}
	h.app.afterCommand(ctx)
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.run(t, "login "+token(t))
	require.Contains(t, h.out.String(), "Signed in as Sara")
}

// ---- tests ----

func TestProtectedCommand_RequiresSignIn(t *testing.T) {
	h := newHarness(t)
	h.run(t, "list")

	assert.Contains(t, h.out.String(), "You are signed out")
	assert.Zero(t, h.api.Calls("ListMedications"))
}

func TestLogin_ListShowsMedicationsWithReminders(t *testing.T) {
	h := newHarness(t)
	h.api.Meds = []models.Medication{
		{ID: "m1", Name: "Aspirin", Dosage: "100mg"},
		{ID: "m2", Name: "Old", Archived: true},
	}
	h.api.Rems = []models.Reminder{{ID: "r1", MedicationID: "m1", Times: []string{"08:00"}, Enabled: true}}
	h.login(t)

	h.run(t, "list")
	out := h.out.String()
	assert.Contains(t, out, "1. Aspirin 100mg")
	assert.Contains(t, out, "08:00")
	assert.NotContains(t, out, "Old")

	h.out.Reset()
	h.run(t, "list all")
	assert.Contains(t, h.out.String(), "[archived]")
}

func TestAddSearch_ReplaysAfterTermsAccepted(t *testing.T) {
	h := newHarness(t, "y", "para")
	h.api.Catalog = []models.CatalogItem{{ID: "c1", TradeName: "Panadol", ScientificName: "Paracetamol", Strength: "500", StrengthUnit: "mg"}}
	h.login(t)

	h.run(t, "add search")
	assert.Contains(t, h.out.String(), "accept the terms")
	assert.Zero(t, h.api.Calls("SearchCatalog"))

	h.run(t, "terms")
	out := h.out.String()
	assert.Contains(t, out, "Terms accepted")
	assert.Contains(t, out, "Panadol 500mg")
	assert.Equal(t, 1, h.api.Calls("SearchCatalog"))

	h.run(t, "pick 1")
	assert.Contains(t, h.out.String(), "Added Panadol 500mg")
	require.Len(t, h.api.Meds, 1)
	assert.Equal(t, "Paracetamol", h.api.Meds[0].ActiveIngredient)
}

func TestScan_LowConfidenceWaitsForConfirm(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.SetFlag(context.Background(), session.FlagTermsAccepted, true))
	h.api.Recognized = models.RecognitionResult{Candidate: models.Candidate{Name: "Brufen", Dosage: "400mg"}}
	h.login(t)

	h.run(t, "scan")
	assert.Contains(t, h.out.String(), "Is this right?")
	assert.Empty(t, h.api.Meds)

	h.run(t, "confirm")
	assert.Contains(t, h.out.String(), "Added Brufen 400mg")
	assert.Len(t, h.api.Meds, 1)
}

func TestInactiveSubscription_ShowsUpgradeSurface(t *testing.T) {
	h := newHarness(t)
	h.api.SetStatus(models.SubscriptionStatus{Tier: models.TierMonthly, Active: false})
	h.login(t)
	require.Eventually(t, func() bool { return h.app.guard.Status() != nil }, time.Second, 5*time.Millisecond)

	h.run(t, "list")
	assert.Contains(t, h.out.String(), "Subscription required")
	assert.Zero(t, h.api.Calls("ListMedications"))
}

func TestRemind_AddSlotAndSave(t *testing.T) {
	h := newHarness(t, "add 13:00", "save", "done")
	h.api.Meds = []models.Medication{{ID: "m1", Name: "Aspirin", Frequency: "once daily"}}
	h.login(t)
	h.run(t, "list")

	h.run(t, "remind 1")
	assert.Contains(t, h.out.String(), "Reminder saved")
	require.Len(t, h.api.Rems, 1)
	assert.Contains(t, h.api.Rems[0].Times, "13:00")
	assert.True(t, h.api.Rems[0].Enabled)
}

func TestRemind_DiscardPromptKeepsEditing(t *testing.T) {
	h := newHarness(t, "add 13:00", "done", "n", "done", "y")
	h.api.Meds = []models.Medication{{ID: "m1", Name: "Aspirin"}}
	h.login(t)

	h.run(t, "remind Aspirin")
	assert.Equal(t, 2, strings.Count(h.out.String(), "Discard unsaved changes?"))
	assert.Zero(t, h.api.Calls("CreateReminder"))
}

func TestInteractions_RendersBySeverity(t *testing.T) {
	h := newHarness(t)
	h.api.Meds = []models.Medication{
		{ID: "m1", Name: "Warfarin", ActiveIngredient: "warfarin"},
		{ID: "m2", Name: "Aspirin", ActiveIngredient: "aspirin"},
	}
	h.api.Report = models.InteractionReport{Interactions: []models.Interaction{
		{DrugA: "warfarin", DrugB: "aspirin", Severity: models.SeverityMajor, Description: "bleeding risk"},
	}}
	h.login(t)

	h.run(t, "interactions")
	out := h.out.String()
	assert.Contains(t, out, "## MAJOR")
	assert.Contains(t, out, "**warfarin + aspirin**: bleeding risk")
}

func TestDelete_AsksForConfirmation(t *testing.T) {
	h := newHarness(t, "n", "y")
	h.api.Meds = []models.Medication{{ID: "abc123", Name: "Aspirin"}}
	h.login(t)

	h.run(t, "delete abc")
	assert.Len(t, h.api.Meds, 1)

	h.run(t, "delete abc")
	assert.Empty(t, h.api.Meds)
	assert.Contains(t, h.out.String(), "Deleted Aspirin")
}

func TestArchive_QueuesToast(t *testing.T) {
	h := newHarness(t)
	h.api.Meds = []models.Medication{{ID: "m1", Name: "Aspirin"}}
	h.login(t)
	h.run(t, "list")

	h.run(t, "archive 1")
	assert.Contains(t, h.out.String(), "Medication archived")
	assert.True(t, h.api.Meds[0].Archived)

	h.run(t, "archive m1")
	assert.Contains(t, h.out.String(), "already archived")
}

func TestLang_PersistsAndSwitchesNames(t *testing.T) {
	h := newHarness(t)
	h.api.Meds = []models.Medication{{ID: "m1", Name: "Panadol", NameAr: "بنادول"}}
	h.login(t)

	h.run(t, "lang ar")
	lang, err := h.store.Language(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, "ar", lang)

	h.run(t, "list")
	assert.Contains(t, h.out.String(), "بنادول")

	h.run(t, "lang fr")
	assert.Contains(t, h.out.String(), "usage: lang en|ar")
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.run(t, "logout")
	ok, err := h.store.SignedIn(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, h.app.prompt(), "signed out")
}

func TestRun_EndToEnd(t *testing.T) {
	h := newHarness(t, "login "+token(t), "tour", "bogus", "exit")
	h.app.Run(context.Background())

	out := h.out.String()
	assert.Contains(t, out, "Signed in as Sara")
	assert.Contains(t, out, "Welcome to medkeeper")
	assert.Contains(t, out, "Unknown command: bogus")
	assert.Contains(t, out, "Bye!")

	done, err := h.store.Flag(context.Background(), session.FlagTourCompleted)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestReset_ClearsDeviceData(t *testing.T) {
	h := newHarness(t, "y")
	ctx := context.Background()
	require.NoError(t, h.store.SetFlag(ctx, session.FlagTermsAccepted, true))
	h.login(t)
	h.run(t, "lang ar")

	h.run(t, "reset")
	assert.Contains(t, h.out.String(), "Device data cleared")
	ok, err := h.store.SignedIn(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	accepted, err := h.store.Flag(ctx, session.FlagTermsAccepted)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, "en", h.app.language())
}
