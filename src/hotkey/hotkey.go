package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	gohook "github.com/robotn/gohook"
)

// ErrRegistrationFailed reports that a hotkey combo could not be mapped to
// key codes and therefore can never fire. Callers fall back to the next
// candidate combo or to the manual trigger.
var ErrRegistrationFailed = errors.New("hotkey registration failed")

// Handlers receive global input events. All callbacks run on the hook
// goroutine and must not block.
type Handlers struct {
	OnPick   func() // the configured combo was pressed
	OnEscape func() // Escape key went down
	OnClick  func() // left mouse button went down
}

// cursorPos holds the last observed cursor position packed as two uint32s.
// The hook's mouse-move stream keeps it current; readers never touch the OS.
var cursorPos atomic.Uint64

var listenOnce sync.Once

// CursorPosition returns the last cursor position reported by the global
// input hook, in virtual-desktop coordinates.
func CursorPosition() (x, y int) {
	packed := cursorPos.Load()
	return int(int32(packed >> 32)), int(int32(packed & 0xFFFFFFFF))
}

func storeCursor(x, y int16) {
	cursorPos.Store(uint64(uint32(int32(x)))<<32 | uint64(uint32(int32(y))))
}

// Listen validates the combo, then starts the single global input hook and
// dispatches combo, Escape, click and cursor-move events. Only the first call
// starts the hook.
func Listen(hotkeyConfig string, h Handlers) error {
	keys := parseHotkey(hotkeyConfig)
	log.Printf("Parsed hotkey configuration: %v", keys)

	type keyState struct {
		name     string
		rawcodes []uint16
		pressed  bool
	}

	var keyStates []keyState
	for _, keyName := range keys {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			return fmt.Errorf("%w: cannot map key %q in combo %q", ErrRegistrationFailed, keyName, hotkeyConfig)
		}
		keyStates = append(keyStates, keyState{name: keyName, rawcodes: rawcodes})
	}
	if len(keyStates) == 0 {
		return fmt.Errorf("%w: empty combo %q", ErrRegistrationFailed, hotkeyConfig)
	}

	log.Printf("Hotkey listener configured for: %s", hotkeyConfig)

	escapeCodes := keyNameToRawcodes("escape")

	listenOnce.Do(func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("PANIC in hotkey goroutine: %v", r)
				}
			}()

			evChan := gohook.Start()
			if evChan == nil {
				log.Printf("ERROR: gohook.Start() returned nil channel")
				return
			}
			log.Printf("Global input hook started")

			var mu sync.Mutex
			matches := func(rawcodes []uint16, code uint16) bool {
				for _, rc := range rawcodes {
					if rc == code {
						return true
					}
				}
				return false
			}

			for ev := range evChan {
				switch ev.Kind {
				case gohook.MouseMove, gohook.MouseDrag:
					storeCursor(ev.X, ev.Y)

				case gohook.MouseDown:
					storeCursor(ev.X, ev.Y)
					// button 1 is the left/primary button in libuiohook
					if ev.Button == 1 && h.OnClick != nil {
						h.OnClick()
					}

				case gohook.KeyDown:
					if matches(escapeCodes, ev.Rawcode) {
						if h.OnEscape != nil {
							h.OnEscape()
						}
						continue
					}

					mu.Lock()
					for i := range keyStates {
						if matches(keyStates[i].rawcodes, ev.Rawcode) {
							keyStates[i].pressed = true
						}
					}
					allPressed := true
					for i := range keyStates {
						if !keyStates[i].pressed {
							allPressed = false
							break
						}
					}
					if allPressed {
						log.Printf("Hotkey combination detected: %s", hotkeyConfig)
						for i := range keyStates {
							keyStates[i].pressed = false
						}
						mu.Unlock()
						if h.OnPick != nil {
							h.OnPick()
						}
						continue
					}
					mu.Unlock()

				case gohook.KeyUp:
					mu.Lock()
					for i := range keyStates {
						if matches(keyStates[i].rawcodes, ev.Rawcode) {
							keyStates[i].pressed = false
						}
					}
					mu.Unlock()
				}
			}
			log.Printf("Event channel closed")
		}()
	})

	return nil
}

// parseHotkey converts a combo like "Win+Shift+C" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

// keyNameToRawcodes maps a key name to its Windows virtual key code rawcodes.
// Modifiers return both left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33}
	case "pagedown", "pgdn":
		return []uint16{34}
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	}

	// Letters and digits share their ASCII uppercase codes (VK_A..VK_Z, VK_0..VK_9)
	if len(keyName) == 1 {
		c := keyName[0]
		if c >= 'a' && c <= 'z' {
			return []uint16{uint16(c - 'a' + 'A')}
		}
		if c >= '0' && c <= '9' {
			return []uint16{uint16(c)}
		}
	}

	// Function keys F1..F24 occupy the contiguous VK range 112..135
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
