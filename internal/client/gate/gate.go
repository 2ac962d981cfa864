// Package gate holds the two checks every medication write must pass: the
// free-tier quota and duplicate detection. Both run against the client's
// cached view and are advisory; a concurrent write from another session can
// still slip through.
package gate

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// Source is the cached state the gate reads.
type Source interface {
	Limits(ctx context.Context) (models.UserLimits, error)
	Medications(ctx context.Context) ([]models.Medication, error)
}

// Entitlement reports whether the current subscription lifts every quota
// (lifetime tier or an administrator-granted premium flag).
type Entitlement interface {
	Unlimited() bool
}

type Gate struct {
	src       Source
	ent       Entitlement
	allowance int
	log       logging.Logger
}

// New builds a gate. allowance is the free medication count used when
// limits cannot be fetched; ent may be nil.
func New(src Source, ent Entitlement, allowance int, log logging.Logger) *Gate {
	if allowance <= 0 {
		allowance = common.DefaultFreeMedicationAllowance
	}
	return &Gate{src: src, ent: ent, allowance: allowance, log: log}
}

// CheckQuota rejects with common.ErrQuotaExceeded when a non-premium user
// has no medication additions left.
func (g *Gate) CheckQuota(ctx context.Context) error {
	if g.ent != nil && g.ent.Unlimited() {
		return nil
	}

	limits, err := g.src.Limits(ctx)
	if err != nil {
		remaining, estErr := g.estimate(ctx)
		if estErr != nil {
			return fmt.Errorf("check quota: %w", err)
		}
		g.log.Warn(ctx, "limits unavailable, using local estimate", "remaining", remaining, "error", err)
		limits = models.UserLimits{MedicationsRemaining: remaining}
	}
	if limits.IsPremium {
		return nil
	}
	if limits.MedicationsRemaining <= 0 {
		return common.ErrQuotaExceeded
	}
	return nil
}

// CheckSearchQuota rejects catalog searches once the search allowance is
// used up. The error matches both common.ErrSearchQuotaExceeded and
// common.ErrQuotaExceeded.
func (g *Gate) CheckSearchQuota(ctx context.Context) error {
	if g.ent != nil && g.ent.Unlimited() {
		return nil
	}
	limits, err := g.src.Limits(ctx)
	if err != nil {
		// the server enforces the same limit with a 429
		g.log.Warn(ctx, "limits unavailable, deferring search quota to server", "error", err)
		return nil
	}
	if !limits.IsPremium && limits.SearchesRemaining <= 0 {
		return SearchQuotaError()
	}
	return nil
}

// SearchQuotaError is the error returned for an exhausted search allowance.
func SearchQuotaError() error {
	return fmt.Errorf("%w: %w", common.ErrSearchQuotaExceeded, common.ErrQuotaExceeded)
}

func (g *Gate) estimate(ctx context.Context) (int, error) {
	list, err := g.src.Medications(ctx)
	if err != nil {
		return 0, err
	}
	return g.allowance - len(models.ActiveOnly(list)), nil
}

// Admit runs the quota check and then the duplicate check for c.
func (g *Gate) Admit(ctx context.Context, c models.Candidate) error {
	if err := g.CheckQuota(ctx); err != nil {
		return err
	}
	list, err := g.src.Medications(ctx)
	if err != nil {
		return fmt.Errorf("load medications: %w", err)
	}
	if dup, ok := DuplicateOf(c, list); ok {
		if dup.Archived {
			return fmt.Errorf("%w: %s is archived, unarchive it instead", common.ErrDuplicate, dup.Name)
		}
		return fmt.Errorf("%w: %s", common.ErrDuplicate, dup.Name)
	}
	return nil
}

// IsDuplicate reports whether list holds an entry matching c on name,
// active ingredient and dosage, all three, case-insensitively.
func IsDuplicate(c models.Candidate, list []models.Medication) bool {
	_, ok := DuplicateOf(c, list)
	return ok
}

// DuplicateOf returns the first entry of list that duplicates c. Archived
// entries count.
func DuplicateOf(c models.Candidate, list []models.Medication) (models.Medication, bool) {
	name, ingredient, dosage := norm(c.Name), norm(c.ActiveIngredient), norm(c.Dosage)
	for _, m := range list {
		if norm(m.Name) == name && norm(m.ActiveIngredient) == ingredient && norm(m.Dosage) == dosage {
			return m, true
		}
	}
	return models.Medication{}, false
}

func norm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
