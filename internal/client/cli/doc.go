// Package cli provides the interactive medkeeper command-line client.
//
// It wires configuration, the local session store, the backend client and
// the client core (repository, gate, capture, reminders, entitlement,
// interactions) behind a readline REPL. Views are independent bus
// subscribers: the dashboard, the reminder badge in the prompt and the
// add-medication trigger never call each other.
//
// Key features:
//   - Login / Logout with a bearer token
//   - Add medications by photo (scan) or by registry search
//   - Reminder editing in a nested prompt
//   - Drug interaction report rendered as markdown
//   - Subscription guard in front of every protected command
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
