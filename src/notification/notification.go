package notification

import (
	"log"
	"runtime"
)

// ShowPickResult displays a short-lived notice with the picked color.
func ShowPickResult(text string) {
	if len(text) > 200 {
		text = text[:200] + "..."
	}

	if runtime.GOOS == "windows" {
		go func() {
			if err := showWindowsPopup(text); err != nil {
				log.Printf("Failed to show notification: %v", err)
			}
		}()
		return
	}
	log.Printf("Pick result: %s", text)
}
