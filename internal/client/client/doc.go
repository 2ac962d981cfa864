// Package client talks to the medkeeper backend and bootstraps the local
// session database.
//
// # Overview
//
// The package provides:
//  1. The Client interface: medication and reminder CRUD, quota limits,
//     subscription status, image recognition, catalog search and drug
//     interaction analysis.
//  2. HTTPClient, a JSON-over-HTTP implementation that attaches the bearer
//     token from a TokenSource, bounds every call with a timeout and maps
//     HTTP statuses to the sentinel errors of package common.
//  3. InitDatabase and RunMigrations, which open the SQLite session
//     database and apply the embedded goose migrations.
//
// # Error Handling
//
// Failed responses are returned as *StatusError, which unwraps to a sentinel:
//
//	400, 422        common.ErrValidation
//	401             common.ErrUnauthorized (the unauthorized hook runs; no retry)
//	402, 403+quota  common.ErrQuotaExceeded
//	404             common.ErrNotFound
//	409             common.ErrDuplicate
//	429             common.ErrQuotaExceeded
//	5xx             common.ErrUnavailable
//
// Transport failures and timeouts also wrap common.ErrUnavailable.
package client
