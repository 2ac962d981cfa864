// Package capture runs the add-by-photo flow:
//
//	idle -> awaiting-capture -> [capture-degraded] -> captured -> recognizing
//	     -> recognized | recognition-failed -> idle
//
// The quota gate is consulted before the camera is touched. A camera failure
// falls back to the gallery picker in the same run. Recognition runs under
// its own timeout and is not cancelled when the capture surface closes; its
// result is discarded instead. A confident result is enriched from the
// catalog, admitted by the gate and saved; a low-confidence one waits for
// Confirm or Dismiss. Results stay visible for a fixed window and then clear
// back to idle.
package capture
