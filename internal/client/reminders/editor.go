// Package reminders edits the dose times of one medication at a time. Every
// mutation is a direct backend round-trip; nothing is cached beyond the open
// editing session. Successful writes are announced on the bus so reminder
// counts elsewhere refresh.
package reminders

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/medkeeper/internal/client/bus"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

type Backend interface {
	CreateReminder(ctx context.Context, in models.ReminderInput) (models.Reminder, error)
	UpdateReminder(ctx context.Context, id string, in models.ReminderInput) (models.Reminder, error)
	ToggleReminder(ctx context.Context, id string) (models.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
}

// Lookup finds the existing reminder of a medication.
type Lookup interface {
	ReminderFor(ctx context.Context, medicationID string) (*models.Reminder, error)
}

type Editor struct {
	api    Backend
	lookup Lookup
	bus    bus.Publisher
	log    logging.Logger
}

func NewEditor(api Backend, lookup Lookup, pub bus.Publisher, log logging.Logger) *Editor {
	return &Editor{api: api, lookup: lookup, bus: pub, log: log}
}

// Session is an open editor for one medication. The slot list is ordered
// and never empty.
type Session struct {
	e   *Editor
	med models.Medication

	mu         sync.Mutex
	reminderID string
	times      []string
	enabled    bool
}

// Open loads the medication's reminder, or seeds default slots from its
// stored times and frequency.
func (e *Editor) Open(ctx context.Context, med models.Medication) (*Session, error) {
	if med.ID == "" {
		return nil, fmt.Errorf("%w: medication id is required", common.ErrValidation)
	}
	s := &Session{e: e, med: med, enabled: true}

	existing, err := e.lookup.ReminderFor(ctx, med.ID)
	if err != nil {
		return nil, fmt.Errorf("load reminder: %w", err)
	}
	if existing != nil {
		s.reminderID = existing.ID
		s.enabled = existing.Enabled
		s.times = normalizeAll(existing.Times)
	}
	if len(s.times) == 0 {
		s.times = normalizeAll(med.Times)
	}
	if len(s.times) == 0 {
		s.times = DefaultSlots(med.Frequency)
	}
	return s, nil
}

func (s *Session) Medication() models.Medication { return s.med }

func (s *Session) Times() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.times)
}

func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Exists reports whether the reminder has been saved on the server.
func (s *Session) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminderID != ""
}

func (s *Session) AddSlot(t string) error {
	slot, err := ParseSlot(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.times, slot) {
		return fmt.Errorf("%w: %s already scheduled", common.ErrValidation, slot)
	}
	s.times = append(s.times, slot)
	slices.Sort(s.times)
	return nil
}

// UpdateSlot replaces the slot at index i (0-based).
func (s *Session) UpdateSlot(i int, t string) error {
	slot, err := ParseSlot(t)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.times) {
		return fmt.Errorf("%w: no slot %d", common.ErrValidation, i+1)
	}
	if s.times[i] == slot {
		return nil
	}
	if slices.Contains(s.times, slot) {
		return fmt.Errorf("%w: %s already scheduled", common.ErrValidation, slot)
	}
	s.times[i] = slot
	slices.Sort(s.times)
	return nil
}

// RemoveSlot drops the slot at index i. Removing the last remaining slot
// leaves the list unchanged and returns common.ErrLastTimeSlot.
func (s *Session) RemoveSlot(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.times) {
		return fmt.Errorf("%w: no slot %d", common.ErrValidation, i+1)
	}
	if len(s.times) == 1 {
		return common.ErrLastTimeSlot
	}
	s.times = slices.Delete(s.times, i, i+1)
	return nil
}

// Save creates the reminder or updates the existing one.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	in := models.ReminderInput{MedicationID: s.med.ID, Times: slices.Clone(s.times), Enabled: s.enabled}
	id := s.reminderID
	s.mu.Unlock()

	var (
		saved models.Reminder
		err   error
		event bus.Event
	)
	if id == "" {
		saved, err = s.e.api.CreateReminder(ctx, in)
		event = bus.ReminderCreated{MedicationID: s.med.ID}
	} else {
		saved, err = s.e.api.UpdateReminder(ctx, id, in)
		event = bus.ReminderUpdated{MedicationID: s.med.ID}
	}
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}

	s.mu.Lock()
	if saved.ID != "" {
		s.reminderID = saved.ID
	}
	if t := normalizeAll(saved.Times); len(t) > 0 {
		s.times = t
	}
	s.mu.Unlock()

	s.e.log.Info(ctx, "reminder saved", "medication_id", s.med.ID, "times", in.Times)
	s.e.bus.Publish(event)
	return nil
}

// ToggleEnabled flips the enabled flag. For a reminder that is not saved
// yet it only changes what Save will send.
func (s *Session) ToggleEnabled(ctx context.Context) error {
	s.mu.Lock()
	id := s.reminderID
	if id == "" {
		s.enabled = !s.enabled
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	saved, err := s.e.api.ToggleReminder(ctx, id)
	if err != nil {
		return fmt.Errorf("toggle reminder: %w", err)
	}
	s.mu.Lock()
	s.enabled = saved.Enabled
	s.mu.Unlock()

	s.e.bus.Publish(bus.ReminderUpdated{MedicationID: s.med.ID})
	return nil
}

// Delete removes the saved reminder. confirm must be true.
func (s *Session) Delete(ctx context.Context, confirm bool) error {
	if !confirm {
		return common.ErrNotConfirmed
	}
	s.mu.Lock()
	id := s.reminderID
	s.mu.Unlock()
	if id == "" {
		return fmt.Errorf("reminder for %s: %w", s.med.ID, common.ErrNotFound)
	}

	if err := s.e.api.DeleteReminder(ctx, id); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	s.mu.Lock()
	s.reminderID = ""
	s.enabled = true
	s.mu.Unlock()

	s.e.log.Info(ctx, "reminder deleted", "medication_id", s.med.ID)
	s.e.bus.Publish(bus.ReminderDeleted{MedicationID: s.med.ID})
	return nil
}
