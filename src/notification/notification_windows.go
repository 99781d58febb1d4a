//go:build windows

package notification

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mbOK              = 0x00000000
	mbIconError       = 0x00000010
	mbIconInformation = 0x00000040
	mbSetForeground   = 0x00010000
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procMessageBox = user32.NewProc("MessageBoxW")
)

// ShowBlockingError shows a modal error dialog and returns when dismissed.
// Used only for fatal startup problems.
func ShowBlockingError(title, message string) {
	messageBox(title, message, mbOK|mbIconError|mbSetForeground)
}

// showWindowsPopup shows a transient informational box. It runs on a
// background goroutine; the pick flow never waits on it.
func showWindowsPopup(text string) error {
	messageBox("ColorSnap", text, mbOK|mbIconInformation|mbSetForeground)
	return nil
}

func messageBox(title, message string, flags uint32) {
	t, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return
	}
	m, err := windows.UTF16PtrFromString(message)
	if err != nil {
		return
	}
	_, _, _ = procMessageBox.Call(0,
		uintptr(unsafe.Pointer(m)),
		uintptr(unsafe.Pointer(t)),
		uintptr(flags))
}
