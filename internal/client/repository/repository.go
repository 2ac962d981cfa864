// Package repository is the client-side read-through cache of the user's
// medications, reminders and quota limits. It is never the system of
// record: bus events and local mutations mark parts of it stale and the next
// read refetches from the backend.
package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// Backend is the part of client.Client the repository uses.
type Backend interface {
	ListMedications(ctx context.Context) ([]models.Medication, error)
	CreateMedication(ctx context.Context, m models.NewMedication) (models.Medication, error)
	DeleteMedication(ctx context.Context, id string) error
	SetArchived(ctx context.Context, id string, archived bool) error
	ListReminders(ctx context.Context) ([]models.Reminder, error)
	Limits(ctx context.Context) (models.UserLimits, error)
}

type cached[T any] struct {
	value  T
	loaded bool
	stale  bool
}

func (c *cached[T]) fresh() bool { return c.loaded && !c.stale }

type Repository struct {
	api Backend
	bus *bus.Bus
	log logging.Logger
	now func() time.Time

	mu          sync.Mutex
	meds        cached[[]models.Medication]
	reminders   cached[[]models.Reminder]
	limits      cached[models.UserLimits]
	fingerprint string

	subs []*bus.Subscription
}

// New builds a repository and subscribes it to the bus events that
// invalidate it. Close releases the subscriptions.
func New(api Backend, b *bus.Bus, log logging.Logger) *Repository {
	r := &Repository{api: api, bus: b, log: log, now: time.Now}
	r.subs = []*bus.Subscription{
		// the medication list itself is refreshed by the mutating call
		bus.On(b, func(bus.MedicationCreated) { r.invalidate(false, false, true) }),
		bus.On(b, func(bus.MedicationDeleted) { r.invalidate(false, true, true) }),
		bus.On(b, func(bus.MedicationArchived) { r.invalidate(false, true, false) }),
		bus.On(b, func(bus.ReminderCreated) { r.invalidate(false, true, false) }),
		bus.On(b, func(bus.ReminderUpdated) { r.invalidate(false, true, false) }),
		bus.On(b, func(bus.ReminderDeleted) { r.invalidate(false, true, false) }),
	}
	return r
}

func (r *Repository) Close() {
	for _, s := range r.subs {
		s.Unsubscribe()
	}
}

// Invalidate marks everything stale.
func (r *Repository) Invalidate() { r.invalidate(true, true, true) }

// InvalidateReminders forces the next reminder read to refetch; the
// reminder badge poll uses it to see changes made on other devices.
func (r *Repository) InvalidateReminders() { r.invalidate(false, true, false) }

func (r *Repository) invalidate(meds, reminders, limits bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if meds {
		r.meds.stale = true
	}
	if reminders {
		r.reminders.stale = true
	}
	if limits {
		r.limits.stale = true
	}
}

// Medications returns the full list, archived included.
func (r *Repository) Medications(ctx context.Context) ([]models.Medication, error) {
	r.mu.Lock()
	if r.meds.fresh() {
		out := cloneMeds(r.meds.value)
		r.mu.Unlock()
		return out, nil
	}
	r.mu.Unlock()

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneMeds(r.meds.value), nil
}

func (r *Repository) ActiveMedications(ctx context.Context) ([]models.Medication, error) {
	list, err := r.Medications(ctx)
	if err != nil {
		return nil, err
	}
	return models.ActiveOnly(list), nil
}

func (r *Repository) Medication(ctx context.Context, id string) (models.Medication, error) {
	list, err := r.Medications(ctx)
	if err != nil {
		return models.Medication{}, err
	}
	for _, m := range list {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Medication{}, fmt.Errorf("medication %s: %w", id, common.ErrNotFound)
}

// Refresh refetches the medication list and publishes MedicationsRefreshed
// when the active set changed.
func (r *Repository) Refresh(ctx context.Context) error {
	list, err := r.api.ListMedications(ctx)
	if err != nil {
		return fmt.Errorf("list medications: %w", err)
	}

	fp := fingerprint(list)
	r.mu.Lock()
	changed := !r.meds.loaded || fp != r.fingerprint
	r.meds = cached[[]models.Medication]{value: list, loaded: true}
	r.fingerprint = fp
	r.mu.Unlock()

	if changed {
		r.bus.Publish(bus.MedicationsRefreshed{})
	}
	return nil
}

// Create persists m and refreshes the list from the server rather than
// appending locally. A missing ID is generated client-side.
func (r *Repository) Create(ctx context.Context, m models.NewMedication) (models.Medication, error) {
	if strings.TrimSpace(m.Name) == "" {
		return models.Medication{}, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.StartDate == "" {
		m.StartDate = r.now().Format(time.DateOnly)
	}

	created, err := r.api.CreateMedication(ctx, m)
	if err != nil {
		return models.Medication{}, fmt.Errorf("create medication: %w", err)
	}
	r.log.Info(ctx, "medication created", "id", created.ID, "source", m.Source)

	r.invalidate(true, false, true)
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn(ctx, "refresh after create failed", "error", err)
	}
	r.bus.Publish(bus.MedicationCreated{ID: created.ID})
	return created, nil
}

// Delete removes a medication once the server confirmed it.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteMedication(ctx, id); err != nil {
		return fmt.Errorf("delete medication %s: %w", id, err)
	}

	r.mu.Lock()
	kept := r.meds.value[:0:0]
	for _, m := range r.meds.value {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	r.meds.value = kept
	r.fingerprint = fingerprint(kept)
	r.reminders.stale = true
	r.limits.stale = true
	r.mu.Unlock()

	r.log.Info(ctx, "medication deleted", "id", id)
	r.bus.Publish(bus.MedicationDeleted{ID: id})
	r.bus.Publish(bus.MedicationsRefreshed{})
	return nil
}

func (r *Repository) SetArchived(ctx context.Context, id string, archived bool) error {
	if err := r.api.SetArchived(ctx, id, archived); err != nil {
		return fmt.Errorf("archive medication %s: %w", id, err)
	}
	r.invalidate(true, true, false)
	if err := r.Refresh(ctx); err != nil {
		r.log.Warn(ctx, "refresh after archive failed", "error", err)
	}
	r.bus.Publish(bus.MedicationArchived{ID: id, Archived: archived})
	return nil
}

// Reminders returns reminders whose medication is known; orphans are
// never surfaced.
func (r *Repository) Reminders(ctx context.Context) ([]models.Reminder, error) {
	meds, err := r.Medications(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	fresh := r.reminders.fresh()
	list := r.reminders.value
	r.mu.Unlock()

	if !fresh {
		list, err = r.api.ListReminders(ctx)
		if err != nil {
			return nil, fmt.Errorf("list reminders: %w", err)
		}
		r.mu.Lock()
		r.reminders = cached[[]models.Reminder]{value: list, loaded: true}
		r.mu.Unlock()
	}

	known := make(map[string]bool, len(meds))
	for _, m := range meds {
		known[m.ID] = true
	}
	out := make([]models.Reminder, 0, len(list))
	for _, rem := range list {
		if known[rem.MedicationID] {
			rem.Times = append([]string(nil), rem.Times...)
			out = append(out, rem)
		}
	}
	return out, nil
}

// ReminderFor returns the reminder of a medication, or nil.
func (r *Repository) ReminderFor(ctx context.Context, medicationID string) (*models.Reminder, error) {
	list, err := r.Reminders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].MedicationID == medicationID {
			return &list[i], nil
		}
	}
	return nil, nil
}

// ActiveReminderCount counts enabled reminders of non-archived medications.
func (r *Repository) ActiveReminderCount(ctx context.Context) (int, error) {
	meds, err := r.ActiveMedications(ctx)
	if err != nil {
		return 0, err
	}
	rems, err := r.Reminders(ctx)
	if err != nil {
		return 0, err
	}
	active := make(map[string]bool, len(meds))
	for _, m := range meds {
		active[m.ID] = true
	}
	n := 0
	for _, rem := range rems {
		if rem.Enabled && active[rem.MedicationID] {
			n++
		}
	}
	return n, nil
}

// Limits returns the cached quota snapshot, refetching when stale.
func (r *Repository) Limits(ctx context.Context) (models.UserLimits, error) {
	r.mu.Lock()
	if r.limits.fresh() {
		l := r.limits.value
		r.mu.Unlock()
		return l, nil
	}
	r.mu.Unlock()

	l, err := r.api.Limits(ctx)
	if err != nil {
		return models.UserLimits{}, fmt.Errorf("fetch limits: %w", err)
	}
	r.mu.Lock()
	r.limits = cached[models.UserLimits]{value: l, loaded: true}
	r.mu.Unlock()
	return l, nil
}

// InvalidateLimits forces the next Limits call to refetch; used after a
// catalog search consumed quota.
func (r *Repository) InvalidateLimits() { r.invalidate(false, false, true) }

func fingerprint(list []models.Medication) string {
	keys := make([]string, 0, len(list))
	for _, m := range list {
		if m.Archived {
			continue
		}
		keys = append(keys, m.ID+"|"+strings.ToLower(m.InteractionKey()))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

func cloneMeds(in []models.Medication) []models.Medication {
	out := make([]models.Medication, len(in))
	for i, m := range in {
		m.Times = append([]string(nil), m.Times...)
		out[i] = m
	}
	return out
}
