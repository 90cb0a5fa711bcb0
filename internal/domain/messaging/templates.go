package messaging

import "fmt"

// BookingUpdateText builds the canned system message for a booking status
// change. customMessage, when present, replaces the template entirely.
func BookingUpdateText(status, listingTitle, customMessage string) string {
	if customMessage != "" {
		return customMessage
	}
	switch status {
	case "pending":
		return fmt.Sprintf("New booking request for %q is awaiting your confirmation.", listingTitle)
	case "confirmed":
		return fmt.Sprintf("Your booking for %q has been confirmed by the host.", listingTitle)
	case "active":
		return fmt.Sprintf("Your booking for %q is now active.", listingTitle)
	case "completed":
		return fmt.Sprintf("Your booking for %q has been completed. Thanks for using storeshare!", listingTitle)
	case "cancelled":
		return fmt.Sprintf("The booking for %q has been cancelled.", listingTitle)
	case "paid":
		return fmt.Sprintf("Payment for the booking of %q has been received.", listingTitle)
	default:
		return fmt.Sprintf("The booking for %q was updated to %s.", listingTitle, status)
	}
}
