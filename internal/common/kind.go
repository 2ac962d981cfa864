package common

import "errors"

// Kind classifies an error for presentation: how loudly it must be surfaced
// and whether the user can simply retry.
type Kind int

const (
	KindNone Kind = iota
	// KindValidation is handled locally, no network call was made.
	KindValidation
	// KindPolicy is a quota or duplicate rejection surfaced as a prompt.
	KindPolicy
	// KindTransient is a timeout or 5xx; the user re-triggers the action.
	KindTransient
	// KindAuthoritative blocks the protected surface until resolved.
	KindAuthoritative
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindTransient:
		return "transient"
	case KindAuthoritative:
		return "authoritative"
	default:
		return "unknown"
	}
}

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindValidation, []error{ErrValidation, ErrInvalidTime, ErrInvalidImage, ErrNotConfirmed, ErrNotFound, ErrNothingToConfirm}},
	{KindPolicy, []error{ErrQuotaExceeded, ErrSearchQuotaExceeded, ErrDuplicate, ErrLastTimeSlot, ErrCaptureInProgress}},
	{KindTransient, []error{ErrUnavailable, ErrRecognitionFailed, ErrCameraUnavailable, ErrCaptureDiscarded, ErrCaptureCancelled}},
	{KindAuthoritative, []error{ErrUnauthorized, ErrTermsNotAccepted, ErrSubscriptionInactive, ErrLocalDataNotAvailable}},
}

// KindOf returns the taxonomy class of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindUnknown
}
