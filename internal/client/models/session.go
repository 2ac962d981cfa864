package models

import "time"

// Profile is the cached identity of the signed-in user.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Admin   bool   `json:"admin,omitempty"`
	Premium bool   `json:"premium,omitempty"`
}

// Add-medication methods.
const (
	MethodSearch = "search"
	MethodScan   = "scan"
)

// PendingActionOpenAdd is the only deferred intent today: open the
// add-medication flow.
const PendingActionOpenAdd = "open_add_medication"

// PendingAction is an intent captured while terms were not yet accepted,
// replayed once after acceptance.
type PendingAction struct {
	Kind      string    `json:"kind"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}
