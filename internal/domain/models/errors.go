package models

import "errors"

// Error taxonomy for the attendance workflow. Cutoff violations carry
// distinct sentinels so the presentation layer can show a specific
// "window closed" notice instead of a generic failure.
var (
	// ErrValidation wraps synchronously rejected input: bad date
	// format, food item not on today's menu, malformed name or phone.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports an absent user or record; no state change.
	ErrNotFound = errors.New("record not found")

	// ErrLedgerUnavailable reports a failed or unparseable remote
	// ledger interaction. Any local write made before the remote call
	// has already been compensated when this surfaces.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrSurveyClosed rejects survey responses at or after the 09:40
	// cutoff.
	ErrSurveyClosed = errors.New("survey window closed")

	// ErrSurveyNotOpen rejects cancellations before the 07:00 survey
	// opening.
	ErrSurveyNotOpen = errors.New("survey not open yet")

	// ErrCancelWindowClosed rejects cancellations at or after 10:00.
	ErrCancelWindowClosed = errors.New("cancellation window closed")

	// ErrNotAttending rejects a cancellation when the user is not on
	// the day's attendance list.
	ErrNotAttending = errors.New("not attending on this date")
)

// BatchResult reports the outcome of a broadcast or settlement pass.
// Per-user failures are counted here, never raised as fatal errors.
type BatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
