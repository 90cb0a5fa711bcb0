package booking

import (
	"fmt"
	"time"
)

// DefaultCancellationCutoff is the minimum lead time before the start date
// within which cancellation is disallowed.
const DefaultCancellationCutoff = 12 * time.Hour

// CanCancel mirrors the checks performed by Booking.Cancel so UI collaborators
// can pre-disable the action without duplicating the rule.
func CanCancel(b *Booking, cutoff time.Duration, now time.Time) bool {
	if b == nil || b.IsTerminal() {
		return false
	}
	return b.Range.Start.Sub(now.UTC()) >= cutoff
}

// CancellationMessage returns advisory policy text for the current booking state.
func CancellationMessage(b *Booking, cutoff time.Duration, now time.Time) string {
	if b == nil {
		return "Booking not found."
	}
	switch b.Status {
	case StatusCancelled:
		return "This booking has already been cancelled."
	case StatusCompleted:
		return "Completed bookings cannot be cancelled."
	}
	if b.Range.Start.Sub(now.UTC()) < cutoff {
		return fmt.Sprintf("Bookings cannot be cancelled less than %d hours before the start date.", int(cutoff.Hours()))
	}
	return "This booking can be cancelled free of charge."
}
