package models

// Reminder holds the dose times of a single medication. A medication has at
// most one reminder.
type Reminder struct {
	ID           string   `json:"id"`
	MedicationID string   `json:"medication_id"`
	Times        []string `json:"times"`
	Enabled      bool     `json:"enabled"`
}

// ReminderInput is the body of POST /reminders and PATCH /reminders/{id}.
type ReminderInput struct {
	MedicationID string   `json:"medication_id"`
	Times        []string `json:"times"`
	Enabled      bool     `json:"enabled"`
}
