package eventloop

import (
	"context"
	"fmt"
	"log"
	"sync"

	"colorsnap/src/clipboard"
	"colorsnap/src/config"
	"colorsnap/src/history"
	"colorsnap/src/hotkey"
	"colorsnap/src/messages"
	"colorsnap/src/picker"
	"colorsnap/src/popup"
	"colorsnap/src/singleinstance"
	"colorsnap/src/tray"
)

// Loop is the single-threaded coordinator between the global hotkey, the
// pick-mode engine, the history store and delegated pick-once clients.
type Loop struct {
	engine *picker.Engine
	store  *history.Store
	srv    singleinstance.Server

	armCh chan struct{}

	// pending is the delivery target of the in-flight pick session, nil when
	// the session was started locally (hotkey/tray).
	pending resultTarget

	defaultTooltip string
	hotkeyLabel    string

	mu          sync.Mutex
	lastPreview messages.ZoomPreviewData
	hasPreview  bool
}

// resultTarget receives the outcome of one pick session.
type resultTarget interface {
	OnSuccess(color messages.ColorInfo) error
	OnProcessError(err error)
	OnDeliveryError(err error)
	Close()
}

// clipboardResultTarget serves local picks: the color lands on the clipboard.
type clipboardResultTarget struct{}

func (clipboardResultTarget) OnSuccess(color messages.ColorInfo) error {
	if err := clipboard.Write(color.Hex); err != nil {
		return err
	}
	_ = popup.Show(fmt.Sprintf("Picked %s — copied", color.Hex))
	return nil
}

func (clipboardResultTarget) OnProcessError(err error) {
	_ = popup.Show("Pick cancelled: " + err.Error())
}

func (clipboardResultTarget) OnDeliveryError(err error) {
	_ = popup.Show("Clipboard error")
}

func (clipboardResultTarget) Close() {}

// delegatedResultTarget serves pick-once clients over the resident socket.
type delegatedResultTarget struct {
	conn           singleinstance.Conn
	outputToStdout bool
}

func (t delegatedResultTarget) OnSuccess(color messages.ColorInfo) error {
	if t.outputToStdout {
		return t.conn.RespondSuccess(color.Hex)
	}
	if err := clipboard.Write(color.Hex); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return t.conn.RespondSuccess("")
}

func (t delegatedResultTarget) OnProcessError(err error) {
	_ = t.conn.RespondError(err.Error())
}

func (t delegatedResultTarget) OnDeliveryError(err error) {
	_ = t.conn.RespondError(err.Error())
}

func (t delegatedResultTarget) Close() {
	_ = t.conn.Close()
}

// New creates the coordinator around an engine and a store.
func New(cfg *config.Config, engine *picker.Engine, store *history.Store) *Loop {
	tooltip := "ColorSnap"
	if cfg != nil && cfg.Hotkey != "" {
		tooltip = fmt.Sprintf("ColorSnap - Press %s to pick a color", cfg.Hotkey)
	}
	return &Loop{
		engine:         engine,
		store:          store,
		armCh:          make(chan struct{}, 4),
		defaultTooltip: tooltip,
	}
}

// HotkeyLabel returns the display label of the shortcut that actually
// registered, for the tray and the boundary.
func (l *Loop) HotkeyLabel() string { return l.hotkeyLabel }

// LatestPreview returns the most recent live-preview frame, if any. Slow
// readers simply observe older frames; the tick loop is never held back.
func (l *Loop) LatestPreview() (messages.ZoomPreviewData, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPreview, l.hasPreview
}

// RequestPick arms the engine for a local clipboard pick (tray menu, manual
// trigger). Safe to call from any goroutine.
func (l *Loop) RequestPick() {
	select {
	case l.armCh <- struct{}{}:
	default:
	}
}

// StartHotkey registers the configured combo, falling back through the
// candidate list when the combo cannot be mapped. On total failure pick mode
// stays reachable from the tray menu; the failure is reported once.
func (l *Loop) StartHotkey(combo string) {
	handlers := hotkey.Handlers{
		OnPick: func() {
			// Second press while sampling confirms; otherwise arm
			if !l.engine.Confirm() {
				l.RequestPick()
			}
		},
		OnEscape: func() { l.engine.Cancel() },
		OnClick:  func() { l.engine.Confirm() },
	}

	for _, candidate := range candidateCombos(combo) {
		if err := hotkey.Listen(candidate, handlers); err != nil {
			log.Printf("eventloop: shortcut %s unavailable: %v, trying next", candidate, err)
			continue
		}
		log.Printf("eventloop: pick shortcut registered: %s", candidate)
		l.hotkeyLabel = candidate
		return
	}
	log.Printf("eventloop: no pick shortcut could be registered; use the tray menu to pick colors")
	_ = popup.Show("No pick shortcut available - use the tray menu")
}

// candidateCombos returns the configured combo followed by the fallbacks.
func candidateCombos(configured string) []string {
	candidates := []string{
		"Win+Shift+C",
		"Ctrl+Shift+C",
		"Win+Shift+P",
		"Ctrl+Alt+C",
		"Win+Alt+C",
	}
	if configured == "" {
		return candidates
	}
	out := []string{configured}
	for _, c := range candidates {
		if c != configured {
			out = append(out, c)
		}
	}
	return out
}

// Run starts the singleinstance server and processes events until ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	l.srv = singleinstance.NewServer()
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
	}

	// Accept loop in background to avoid blocking event handling
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			reqCh <- conn
		}
	}()

	tray.UpdateTooltip(l.defaultTooltip)

	for {
		select {
		case <-ctx.Done():
			l.failPending(ctx.Err())
			_ = l.srv.Close()
			return ctx.Err()
		case <-l.armCh:
			l.startLocalPick()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(conn)
		case ev := <-l.engine.Events():
			l.handleEngineEvent(ev)
		}
	}
}

func (l *Loop) startLocalPick() {
	if !l.engine.Arm() {
		log.Printf("eventloop: pick already in progress, ignoring")
		return
	}
	if l.pending != nil {
		l.pending.Close()
	}
	l.pending = clipboardResultTarget{}
}

func (l *Loop) handleConn(conn singleinstance.Conn) {
	target := delegatedResultTarget{conn: conn, outputToStdout: conn.Request().OutputToStdout}
	if !l.engine.Arm() {
		target.OnProcessError(fmt.Errorf("busy, please retry"))
		target.Close()
		return
	}
	l.pending = target
}

func (l *Loop) handleEngineEvent(ev messages.Message) {
	switch m := ev.(type) {
	case messages.PickModeStarted:
		log.Printf("eventloop: pick mode started")
		tray.UpdateTooltip("ColorSnap: picking — Esc to cancel")

	case messages.PreviewUpdated:
		l.mu.Lock()
		l.lastPreview = m.Preview
		l.hasPreview = true
		l.mu.Unlock()

	case messages.CaptureFailed:
		log.Printf("eventloop: transient capture failure: %v", m.Err)

	case messages.ColorPicked:
		l.handleResult(m.Color)

	case messages.PickModeStopped:
		if m.Err != nil {
			log.Printf("eventloop: pick cancelled by engine: %v", m.Err)
		} else {
			log.Printf("eventloop: pick cancelled")
		}
		l.finishSession(m.Err)
	}
}

func (l *Loop) handleResult(color messages.ColorInfo) {
	log.Printf("eventloop: picked %s at (%d,%d)", color.Hex, color.X, color.Y)

	// Record first: a clipboard hiccup must not lose the pick. Persistence
	// failures are surfaced and leave the store at its last durable snapshot.
	if _, err := l.store.Add(color); err != nil {
		log.Printf("eventloop: failed to record pick: %v", err)
		_ = popup.Show("Could not save to history: " + err.Error())
	}

	target := l.takePending()
	if err := target.OnSuccess(color); err != nil {
		log.Printf("eventloop: delivery error: %v", err)
		target.OnDeliveryError(err)
	}
	target.Close()
	tray.UpdateTooltip(l.defaultTooltip)
}

func (l *Loop) finishSession(err error) {
	target := l.takePending()
	if err != nil {
		target.OnProcessError(err)
	} else if dt, ok := target.(delegatedResultTarget); ok {
		dt.OnProcessError(fmt.Errorf("pick cancelled"))
	}
	target.Close()
	tray.UpdateTooltip(l.defaultTooltip)
}

func (l *Loop) failPending(err error) {
	if l.pending == nil {
		return
	}
	l.pending.OnProcessError(err)
	l.pending.Close()
	l.pending = nil
}

func (l *Loop) takePending() resultTarget {
	t := l.pending
	l.pending = nil
	if t == nil {
		t = clipboardResultTarget{}
	}
	return t
}
