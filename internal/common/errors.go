package common

import "errors"

var (
	// input / validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidTime  = errors.New("invalid time slot, expected HH:MM")
	ErrInvalidImage = errors.New("unsupported image")
	ErrNotConfirmed = errors.New("action not confirmed")
	ErrNotFound     = errors.New("not found")

	// quota / policy errors
	ErrQuotaExceeded       = errors.New("free plan limit reached")
	ErrSearchQuotaExceeded = errors.New("catalog search limit reached")
	ErrDuplicate           = errors.New("medication already in your list")
	ErrLastTimeSlot        = errors.New("a reminder needs at least one time")

	// transient errors
	ErrUnavailable       = errors.New("server unavailable")
	ErrRecognitionFailed = errors.New("recognition failed")

	// authoritative rejections
	ErrUnauthorized          = errors.New("unauthorized")
	ErrTermsNotAccepted      = errors.New("terms not accepted")
	ErrSubscriptionInactive  = errors.New("subscription inactive")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")

	// capture pipeline flow control
	ErrCaptureInProgress = errors.New("capture already in progress")
	ErrCaptureDiscarded  = errors.New("capture surface closed, result discarded")
	ErrCameraUnavailable = errors.New("camera unavailable")
	ErrCaptureCancelled  = errors.New("capture cancelled")
	ErrNothingToConfirm  = errors.New("no recognition result awaiting confirmation")
)
