package cli

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/medkeeper/internal/client/interactions"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
)

func TestNotice_ByKind(t *testing.T) {
	assert.Empty(t, notice(nil))
	assert.Contains(t, notice(fmt.Errorf("%w: bad time", common.ErrValidation)), "bad time")
	assert.Contains(t, notice(common.ErrQuotaExceeded), "Upgrade to premium")
	assert.Contains(t, notice(common.ErrUnavailable), "try again")
	assert.Contains(t, notice(common.ErrUnauthorized), "Use 'login'")
	assert.Contains(t, notice(common.ErrTermsNotAccepted), "type 'terms'")
}

func TestUpgradeSurface_TrialWording(t *testing.T) {
	assert.Contains(t, upgradeSurface(&models.SubscriptionStatus{Tier: models.TierTrial}), "free trial has ended")
	assert.Contains(t, upgradeSurface(&models.SubscriptionStatus{Tier: models.TierYearly}), "subscription has expired")
	assert.Contains(t, upgradeSurface(nil), "subscription has expired")
}

func TestMedicationLine(t *testing.T) {
	m := models.Medication{ID: "m1", Name: "Panadol", NameAr: "بنادول", Dosage: "500mg", ActiveIngredient: "Paracetamol"}
	rem := &models.Reminder{Times: []string{"08:00", "20:00"}, Enabled: false}

	line := medicationLine(3, m, "en", rem)
	assert.Contains(t, line, " 3. Panadol 500mg")
	assert.Contains(t, line, "Paracetamol")
	assert.Contains(t, line, "08:00, 20:00 off")

	assert.Contains(t, medicationLine(1, m, "ar", nil), "بنادول")
}

func TestInteractionsMarkdown(t *testing.T) {
	under := interactionsMarkdown(interactions.Result{Medications: 1})
	assert.Contains(t, under, "Add at least 2")

	none := interactionsMarkdown(interactions.Result{Report: &models.InteractionReport{}, Medications: 2})
	assert.Contains(t, none, "No known interactions")

	stale := interactionsMarkdown(interactions.Result{
		Report: &models.InteractionReport{Interactions: []models.Interaction{
			{DrugA: "a", DrugB: "b", Severity: models.SeverityMinor, Description: "mild", Recommendation: "space doses"},
			{DrugA: "c", DrugB: "d", Severity: models.SeverityMajor, Description: "severe"},
		}},
		Medications: 3,
		Stale:       true,
	})
	assert.Contains(t, stale, "latest check failed")
	assert.Contains(t, stale, "  - space doses")
	assert.Less(t, strings.Index(stale, "## MAJOR"), strings.Index(stale, "## MINOR"))
}

