// Package common contains shared constants and sentinel errors used across
// medkeeper components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer credential
// on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the session token in the Authorization header.
const BearerPrefix = "Bearer "

// DefaultFreeMedicationAllowance is the number of medications a non-premium
// user may add before the quota gate starts rejecting additions.
const DefaultFreeMedicationAllowance = 3

// ExpiryWarningHours is the remaining-time threshold under which an active
// subscription triggers a one-time warning.
const ExpiryWarningHours = 24

// Supported display languages.
const (
	LanguageEnglish = "en"
	LanguageArabic  = "ar"
)
