// Package clienttest provides an in-memory client.Client for tests.
package clienttest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/client/client"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
)

var _ client.Client = (*Backend)(nil)

// Backend mimics the server: it owns medications, reminders and counters,
// decrements quotas on writes and counts every call by method name.
// Fail makes the named method return an error.
type Backend struct {
	mu sync.Mutex

	Meds       []models.Medication
	Rems       []models.Reminder
	Lim        models.UserLimits
	Status     models.SubscriptionStatus
	Catalog    []models.CatalogItem
	Report     models.InteractionReport
	Recognized models.RecognitionResult

	// RecognizeHook, when set, runs inside Recognize before it answers; tests
	// use it to block or fail recognition.
	RecognizeHook func(ctx context.Context) error

	Fail map[string]error

	calls      map[string]int
	lastReq    models.InteractionRequest
	reminderID int
}

// New returns a backend with the default free allowance.
func New() *Backend {
	return &Backend{
		Lim:    models.UserLimits{MedicationsRemaining: common.DefaultFreeMedicationAllowance, SearchesRemaining: 10},
		Status: models.SubscriptionStatus{Tier: models.TierTrial, Active: true, HoursRemaining: 72},
		Fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (b *Backend) enter(name string) error {
	b.mu.Lock()
	b.calls[name]++
	err := b.Fail[name]
	b.mu.Unlock()
	return err
}

// Calls returns how often method was invoked.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method]
}

// TotalCalls returns the number of backend calls of any kind.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// SetFail makes method fail with err (nil clears it).
func (b *Backend) SetFail(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.Fail, method)
		return
	}
	b.Fail[method] = err
}

// LastInteractionRequest returns the body of the latest CheckInteractions.
func (b *Backend) LastInteractionRequest() models.InteractionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReq
}

func (b *Backend) ListMedications(ctx context.Context) ([]models.Medication, error) {
	if err := b.enter("ListMedications"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Medication(nil), b.Meds...), nil
}

func (b *Backend) CreateMedication(ctx context.Context, m models.NewMedication) (models.Medication, error) {
	if err := b.enter("CreateMedication"); err != nil {
		return models.Medication{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Lim.IsPremium {
		if b.Lim.MedicationsRemaining <= 0 {
			return models.Medication{}, common.ErrQuotaExceeded
		}
		b.Lim.MedicationsRemaining--
	}
	start, _ := time.Parse(time.DateOnly, m.StartDate)
	med := models.Medication{
		ID:               m.ID,
		Name:             m.Name,
		NameAr:           m.NameAr,
		ActiveIngredient: m.ActiveIngredient,
		Dosage:           m.Dosage,
		Frequency:        m.Frequency,
		Times:            m.Times,
		StartDate:        start,
		Notes:            m.Notes,
		PackageSize:      m.PackageSize,
		Manufacturer:     m.Manufacturer,
		Price:            m.Price,
	}
	if med.ID == "" {
		med.ID = fmt.Sprintf("srv-%d", len(b.Meds)+1)
	}
	b.Meds = append(b.Meds, med)
	return med, nil
}

func (b *Backend) DeleteMedication(ctx context.Context, id string) error {
	if err := b.enter("DeleteMedication"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := -1
	for i, m := range b.Meds {
		if m.ID == id {
			idx = i
		}
	}
	if idx < 0 {
		return common.ErrNotFound
	}
	b.Meds = append(b.Meds[:idx], b.Meds[idx+1:]...)
	kept := b.Rems[:0]
	for _, r := range b.Rems {
		if r.MedicationID != id {
			kept = append(kept, r)
		}
	}
	b.Rems = kept
	return nil
}

func (b *Backend) SetArchived(ctx context.Context, id string, archived bool) error {
	if err := b.enter("SetArchived"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Meds {
		if b.Meds[i].ID == id {
			b.Meds[i].Archived = archived
			return nil
		}
	}
	return common.ErrNotFound
}

func (b *Backend) ListReminders(ctx context.Context) ([]models.Reminder, error) {
	if err := b.enter("ListReminders"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Reminder, len(b.Rems))
	for i, r := range b.Rems {
		r.Times = append([]string(nil), r.Times...)
		out[i] = r
	}
	return out, nil
}

func (b *Backend) CreateReminder(ctx context.Context, in models.ReminderInput) (models.Reminder, error) {
	if err := b.enter("CreateReminder"); err != nil {
		return models.Reminder{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.Rems {
		if r.MedicationID == in.MedicationID {
			return models.Reminder{}, common.ErrDuplicate
		}
	}
	b.reminderID++
	r := models.Reminder{
		ID:           fmt.Sprintf("r-%d", b.reminderID),
		MedicationID: in.MedicationID,
		Times:        append([]string(nil), in.Times...),
		Enabled:      in.Enabled,
	}
	b.Rems = append(b.Rems, r)
	return r, nil
}

func (b *Backend) UpdateReminder(ctx context.Context, id string, in models.ReminderInput) (models.Reminder, error) {
	if err := b.enter("UpdateReminder"); err != nil {
		return models.Reminder{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Rems {
		if b.Rems[i].ID == id {
			b.Rems[i].Times = append([]string(nil), in.Times...)
			b.Rems[i].Enabled = in.Enabled
			return b.Rems[i], nil
		}
	}
	return models.Reminder{}, common.ErrNotFound
}

func (b *Backend) ToggleReminder(ctx context.Context, id string) (models.Reminder, error) {
	if err := b.enter("ToggleReminder"); err != nil {
		return models.Reminder{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Rems {
		if b.Rems[i].ID == id {
			b.Rems[i].Enabled = !b.Rems[i].Enabled
			return b.Rems[i], nil
		}
	}
	return models.Reminder{}, common.ErrNotFound
}

func (b *Backend) DeleteReminder(ctx context.Context, id string) error {
	if err := b.enter("DeleteReminder"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Rems {
		if b.Rems[i].ID == id {
			b.Rems = append(b.Rems[:i], b.Rems[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (b *Backend) Limits(ctx context.Context) (models.UserLimits, error) {
	if err := b.enter("Limits"); err != nil {
		return models.UserLimits{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Lim, nil
}

func (b *Backend) SubscriptionStatus(ctx context.Context) (models.SubscriptionStatus, error) {
	if err := b.enter("SubscriptionStatus"); err != nil {
		return models.SubscriptionStatus{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Status, nil
}

// SetStatus replaces the subscription status under the lock.
func (b *Backend) SetStatus(s models.SubscriptionStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Status = s
}

// SetLimits replaces the quota counters under the lock.
func (b *Backend) SetLimits(l models.UserLimits) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Lim = l
}

func (b *Backend) Recognize(ctx context.Context, img models.Image, language string) (models.RecognitionResult, error) {
	if err := b.enter("Recognize"); err != nil {
		return models.RecognitionResult{}, err
	}
	b.mu.Lock()
	hook := b.RecognizeHook
	b.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return models.RecognitionResult{}, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Recognized, nil
}

func (b *Backend) SearchCatalog(ctx context.Context, query, language string) ([]models.CatalogItem, error) {
	if err := b.enter("SearchCatalog"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Lim.IsPremium {
		if b.Lim.SearchesRemaining <= 0 {
			return nil, common.ErrQuotaExceeded
		}
		b.Lim.SearchesRemaining--
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.CatalogItem
	for _, it := range b.Catalog {
		if strings.Contains(strings.ToLower(it.TradeName), q) || strings.Contains(strings.ToLower(it.ScientificName), q) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (b *Backend) CheckInteractions(ctx context.Context, req models.InteractionRequest) (models.InteractionReport, error) {
	if err := b.enter("CheckInteractions"); err != nil {
		return models.InteractionReport{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastReq = req
	return b.Report, nil
}
