// Package session is the persisted session store: the bearer token (sealed
// with AES-GCM under a key derived from the device secret), the cached user
// profile, device flags such as terms acceptance, and the pending action
// deferred by the terms gate. Everything lives in the SQLite session table.
//
// Logout clears the identity (token, profile, pending action) but keeps the
// device flags.
package session
