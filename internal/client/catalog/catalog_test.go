package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
	"github.com/dmitrijs2005/medkeeper/internal/client/client/clienttest"
	"github.com/dmitrijs2005/medkeeper/internal/client/gate"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/client/repository"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

type harness struct {
	api  *clienttest.Backend
	repo *repository.Repository
	svc  *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := clienttest.New()
	api.Catalog = []models.CatalogItem{
		{ID: "c1", TradeName: "Panadol", ScientificName: "Paracetamol", Strength: "500", StrengthUnit: "mg"},
		{ID: "c2", TradeName: "Panadol Extra", ScientificName: "Paracetamol, Caffeine", Strength: "500/65", StrengthUnit: "mg"},
		{ID: "c3", TradeName: "Brufen", ScientificName: "Ibuprofen", Strength: "400mg"},
	}
	b := bus.New(logging.NewNop())
	repo := repository.New(api, b, logging.NewNop())
	t.Cleanup(repo.Close)
	g := gate.New(repo, nil, common.DefaultFreeMedicationAllowance, logging.NewNop())
	return &harness{api: api, repo: repo, svc: New(api, g, repo, nil, logging.NewNop())}
}

func TestSearch_SpendsAllowanceAndRefreshesLimits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	items, err := h.svc.Search(ctx, "panadol")
	require.NoError(t, err)
	require.Len(t, items, 2)

	lim, err := h.repo.Limits(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, lim.SearchesRemaining)

	q, cached := h.svc.Results()
	require.Equal(t, "panadol", q)
	require.Len(t, cached, 2)
}

func TestSearch_ExhaustedAllowanceMakesNoCall(t *testing.T) {
	h := newHarness(t)
	h.api.SetLimits(models.UserLimits{MedicationsRemaining: 3, SearchesRemaining: 0})

	_, err := h.svc.Search(context.Background(), "panadol")
	require.ErrorIs(t, err, common.ErrSearchQuotaExceeded)
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	require.Zero(t, h.api.Calls("SearchCatalog"))
}

func TestSearch_ServerRateLimit(t *testing.T) {
	h := newHarness(t)
	h.api.SetFail("SearchCatalog", common.ErrQuotaExceeded)

	_, err := h.svc.Search(context.Background(), "panadol")
	require.ErrorIs(t, err, common.ErrSearchQuotaExceeded)
}

func TestSearch_KeepsResultsOnFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Search(ctx, "brufen")
	require.NoError(t, err)

	h.api.SetFail("SearchCatalog", common.ErrUnavailable)
	_, err = h.svc.Search(ctx, "panadol")
	require.ErrorIs(t, err, common.ErrUnavailable)

	q, items := h.svc.Results()
	require.Equal(t, "brufen", q)
	require.Len(t, items, 1)
}

func TestSearch_ShortQuery(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Search(context.Background(), " p ")
	require.ErrorIs(t, err, common.ErrValidation)
	require.Zero(t, h.api.TotalCalls())
}

func TestPick_CreatesFromCatalog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Search(ctx, "panadol")
	require.NoError(t, err)

	m, err := h.svc.Pick(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Panadol", m.Name)
	require.Equal(t, "Paracetamol", m.ActiveIngredient)
	require.Equal(t, "500mg", m.Dosage)

	meds, err := h.repo.Medications(ctx)
	require.NoError(t, err)
	require.Len(t, meds, 1)

	_, err = h.svc.Pick(ctx, 1)
	require.ErrorIs(t, err, common.ErrDuplicate)
	require.Equal(t, 1, h.api.Calls("CreateMedication"))
}

func TestPick_OutOfRange(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Pick(context.Background(), 1)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestAdd_QuotaExhaustedMakesNoCreate(t *testing.T) {
	h := newHarness(t)
	h.api.SetLimits(models.UserLimits{MedicationsRemaining: 0, SearchesRemaining: 5})

	_, err := h.svc.Add(context.Background(), h.api.Catalog[2])
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	require.Zero(t, h.api.Calls("CreateMedication"))
}
