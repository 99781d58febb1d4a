package popup

import (
	"log"

	"colorsnap/src/notification"
)

// Show displays a fire-and-forget notice. The notification layer manages its
// own lifetime asynchronously; the caller never waits.
func Show(text string) error {
	log.Printf("Popup.Show called with %d characters: %q", len(text), truncateForLog(text, 50))
	notification.ShowPickResult(text)
	return nil
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
