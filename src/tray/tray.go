package tray

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/getlantern/systray"
)

// Config wires tray menu actions back into the event loop. Callbacks run on
// the systray goroutine and must not block.
type Config struct {
	Title          string
	Tooltip        string
	HotkeyLabel    string // display label of the active pick shortcut, may be empty
	OnPick         func()
	OnClearHistory func()
	OnExit         func()
}

type Tray struct {
	cfg Config
}

var ready atomic.Bool

func New(cfg Config) (*Tray, error) {
	return &Tray{cfg: cfg}, nil
}

// Run blocks on the systray loop. Call from a dedicated goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Destroy tears the tray down.
func (t *Tray) Destroy() {
	systray.Quit()
}

// UpdateTooltip replaces the tray tooltip once the tray is up.
func UpdateTooltip(tooltip string) {
	if !ready.Load() {
		return
	}
	systray.SetTooltip(tooltip)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes())
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)
	ready.Store(true)

	pickLabel := "Pick Color"
	if t.cfg.HotkeyLabel != "" {
		pickLabel = fmt.Sprintf("Pick Color (%s)", t.cfg.HotkeyLabel)
	}
	mPick := systray.AddMenuItem(pickLabel, "Start pick mode")
	mClear := systray.AddMenuItem("Clear History", "Delete all saved colors")
	mQuit := systray.AddMenuItem("Quit", "Exit ColorSnap")

	go func() {
		for {
			select {
			case <-mPick.ClickedCh:
				log.Printf("tray: pick requested")
				if t.cfg.OnPick != nil {
					t.cfg.OnPick()
				}
			case <-mClear.ClickedCh:
				log.Printf("tray: clear history requested")
				if t.cfg.OnClearHistory != nil {
					t.cfg.OnClearHistory()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
			}
		}
	}()
}

func (t *Tray) onExit() {
	ready.Store(false)
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}
