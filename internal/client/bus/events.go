package bus

// Event is a named, versioned signal.
type Event interface {
	Name() string
	Version() int
}

const (
	NameOpenAddMedication    = "open_add_medication"
	NameMedicationCreated    = "medication_created"
	NameMedicationDeleted    = "medication_deleted"
	NameMedicationArchived   = "medication_archived"
	NameReminderCreated      = "reminder_created"
	NameReminderUpdated      = "reminder_updated"
	NameReminderDeleted      = "reminder_deleted"
	NameMedicationsRefreshed = "medications_refreshed"
)

// OpenAddMedication asks the add-medication surface to open. Method is
// "search" or "scan". Nobody acknowledges it.
type OpenAddMedication struct{ Method string }

func (OpenAddMedication) Name() string { return NameOpenAddMedication }
func (OpenAddMedication) Version() int { return 1 }

type MedicationCreated struct{ ID string }

func (MedicationCreated) Name() string { return NameMedicationCreated }
func (MedicationCreated) Version() int { return 1 }

type MedicationDeleted struct{ ID string }

func (MedicationDeleted) Name() string { return NameMedicationDeleted }
func (MedicationDeleted) Version() int { return 1 }

type MedicationArchived struct {
	ID       string
	Archived bool
}

func (MedicationArchived) Name() string { return NameMedicationArchived }
func (MedicationArchived) Version() int { return 1 }

type ReminderCreated struct{ MedicationID string }

func (ReminderCreated) Name() string { return NameReminderCreated }
func (ReminderCreated) Version() int { return 1 }

type ReminderUpdated struct{ MedicationID string }

func (ReminderUpdated) Name() string { return NameReminderUpdated }
func (ReminderUpdated) Version() int { return 1 }

type ReminderDeleted struct{ MedicationID string }

func (ReminderDeleted) Name() string { return NameReminderDeleted }
func (ReminderDeleted) Version() int { return 1 }

// MedicationsRefreshed fires when the repository observed a change in the
// active medication list after a refetch.
type MedicationsRefreshed struct{}

func (MedicationsRefreshed) Name() string { return NameMedicationsRefreshed }
func (MedicationsRefreshed) Version() int { return 1 }
