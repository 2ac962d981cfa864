// Package interactions keeps the drug-interaction report for the user's
// active medications. The report is recomputed only when the set of active
// ingredients or the display language changes.
package interactions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// MinMedications is the smallest active set worth checking.
const MinMedications = 2

type Checker interface {
	CheckInteractions(ctx context.Context, req models.InteractionRequest) (models.InteractionReport, error)
}

type Source interface {
	ActiveMedications(ctx context.Context) ([]models.Medication, error)
}

// Result is what the view renders. Report is nil when fewer than
// MinMedications are active. Stale marks a report kept from an earlier
// fingerprint after a failed recompute.
type Result struct {
	Report      *models.InteractionReport
	Medications int
	Stale       bool
}

type Aggregator struct {
	api Checker
	src Source
	log logging.Logger
	sub *bus.Subscription

	run sync.Mutex // serializes recomputes

	mu          sync.Mutex
	lang        string
	fingerprint string
	report      *models.InteractionReport
	dirty       bool
}

func New(api Checker, src Source, b *bus.Bus, lang string, log logging.Logger) *Aggregator {
	if lang == "" {
		lang = common.LanguageEnglish
	}
	a := &Aggregator{api: api, src: src, log: log, lang: lang, dirty: true}
	if b != nil {
		a.sub = bus.On(b, func(bus.MedicationsRefreshed) {
			a.mu.Lock()
			a.dirty = true
			a.mu.Unlock()
		})
	}
	return a
}

// Close drops the bus subscription.
func (a *Aggregator) Close() {
	if a.sub != nil {
		a.sub.Unsubscribe()
	}
}

// SetLanguage changes the report language; the next Report recomputes.
func (a *Aggregator) SetLanguage(lang string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if lang != a.lang {
		a.lang = lang
		a.dirty = true
	}
}

// Dirty reports whether the medication list or language changed since the
// last Report.
func (a *Aggregator) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dirty
}

// Report returns the interaction report for the current active list. On a
// failed recompute the previous report is returned with Stale set together
// with the error.
func (a *Aggregator) Report(ctx context.Context) (Result, error) {
	a.run.Lock()
	defer a.run.Unlock()

	meds, err := a.src.ActiveMedications(ctx)
	if err != nil {
		return a.staleResult(0), fmt.Errorf("load active medications: %w", err)
	}

	a.mu.Lock()
	lang := a.lang
	a.mu.Unlock()

	if len(meds) < MinMedications {
		a.mu.Lock()
		a.report = nil
		a.fingerprint = ""
		a.dirty = false
		a.mu.Unlock()
		return Result{Medications: len(meds)}, nil
	}

	fp := Fingerprint(meds, lang)
	a.mu.Lock()
	if a.report != nil && a.fingerprint == fp {
		a.dirty = false
		r := *a.report
		a.mu.Unlock()
		return Result{Report: &r, Medications: len(meds)}, nil
	}
	a.mu.Unlock()

	req := models.InteractionRequest{Language: lang}
	for _, m := range meds {
		req.Medications = append(req.Medications, models.InteractionDrug{Name: m.Name, ActiveIngredient: m.ActiveIngredient})
	}

	report, err := a.api.CheckInteractions(ctx, req)
	if err != nil {
		a.log.Warn(ctx, "interaction check failed", "medications", len(meds), "error", err)
		return a.staleResult(len(meds)), fmt.Errorf("check interactions: %w", err)
	}

	a.mu.Lock()
	a.report = &report
	a.fingerprint = fp
	a.dirty = false
	a.mu.Unlock()

	a.log.Debug(ctx, "interactions recomputed", "medications", len(meds), "found", len(report.Interactions))
	return Result{Report: &report, Medications: len(meds)}, nil
}

func (a *Aggregator) staleResult(n int) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.report == nil {
		return Result{Medications: n}
	}
	r := *a.report
	return Result{Report: &r, Medications: n, Stale: true}
}

// Fingerprint identifies an active list for caching: the sorted interaction
// keys (ingredient, else name) plus the language.
func Fingerprint(meds []models.Medication, lang string) string {
	keys := make([]string, 0, len(meds))
	for _, m := range meds {
		keys = append(keys, strings.ToLower(strings.TrimSpace(m.InteractionKey())))
	}
	sort.Strings(keys)
	return lang + "|" + strings.Join(keys, ",")
}

// Highest returns the most severe interaction level present, or "".
func Highest(r models.InteractionReport) models.Severity {
	rank := map[models.Severity]int{models.SeverityMinor: 1, models.SeverityModerate: 2, models.SeverityMajor: 3}
	var best models.Severity
	for _, it := range r.Interactions {
		if rank[it.Severity] > rank[best] {
			best = it.Severity
		}
	}
	return best
}
