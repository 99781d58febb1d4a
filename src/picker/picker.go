package picker

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"colorsnap/src/messages"
	"colorsnap/src/sampler"
)

// State is the engine's lifecycle position. There is exactly one authoritative
// state, guarded by compare-and-swap so two hotkey deliveries can never
// double-arm the engine.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateSampling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateArmed:
		return "Armed"
	case StateSampling:
		return "Sampling"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// maxConsecutiveFailures is how many capture failures in a row force a
// cancel. Transient failures (screen lock transitions) are retried; sustained
// failure indicates a real problem.
const maxConsecutiveFailures = 3

type CursorFunc func() (x, y int)

type MapFunc func(x, y int) messages.ScreenPoint

type SampleFunc func(pt messages.ScreenPoint) (messages.ColorInfo, error)

type RenderFunc func(pt messages.ScreenPoint) (messages.ZoomPreviewData, error)

type Config struct {
	Cursor   CursorFunc
	Map      MapFunc
	Sample   SampleFunc
	Render   RenderFunc
	Interval time.Duration
}

// Engine owns the arm/sample/confirm/cancel lifecycle. All collaborators are
// injected functions; the engine itself never touches the OS directly.
type Engine struct {
	cfg     Config
	state   atomic.Int32
	events  chan messages.Message
	confirm chan struct{}
	cancel  chan struct{}
}

func New(cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 33 * time.Millisecond
	}
	if cfg.Map == nil {
		cfg.Map = func(x, y int) messages.ScreenPoint { return messages.ScreenPoint{X: x, Y: y} }
	}
	return &Engine{
		cfg:     cfg,
		events:  make(chan messages.Message, 16),
		confirm: make(chan struct{}, 1),
		cancel:  make(chan struct{}, 1),
	}
}

// Events is the one-way channel to the UI boundary. Preview frames are sent
// at-most-once per tick and dropped when the buffer is full; lifecycle events
// and the confirm result are never dropped.
func (e *Engine) Events() <-chan messages.Message { return e.events }

func (e *Engine) State() State { return State(e.state.Load()) }

// Arm transitions Idle→Armed and starts the sampling loop. Arming while
// already Armed or Sampling is a no-op; a second concurrent loop can never
// start. Reports whether this call armed the engine.
func (e *Engine) Arm() bool {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateArmed)) {
		log.Printf("picker: Arm ignored, state=%v", e.State())
		return false
	}
	// Discard signals left over from a previous session
	drain(e.confirm)
	drain(e.cancel)

	// Fire-and-forget: the host UI is told to step aside, the loop starts
	// regardless of whether it acknowledges
	e.send(messages.PickModeStarted{})
	go e.run()
	return true
}

// Confirm requests the final authoritative sample. Recognized only while
// Sampling; the loop observes it at the top of its next iteration.
func (e *Engine) Confirm() bool {
	if e.State() != StateSampling {
		return false
	}
	signal(e.confirm)
	return true
}

// Cancel discards the current pick session without a result. Recognized only
// while Sampling.
func (e *Engine) Cancel() bool {
	if e.State() != StateSampling {
		return false
	}
	signal(e.cancel)
	return true
}

func (e *Engine) run() {
	e.state.Store(int32(StateSampling))
	defer e.state.Store(int32(StateIdle))

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		// Cancel and confirm are checked first so a signal raised during a
		// slow capture is observed before the next capture starts
		select {
		case <-e.cancel:
			log.Printf("picker: cancelled")
			e.send(messages.PickModeStopped{})
			return
		case <-e.confirm:
			e.finishConfirm()
			return
		case <-ticker.C:
		}

		pt := e.cfg.Map(e.cfg.Cursor())
		frame, err := e.cfg.Render(pt)
		if err != nil {
			failures++
			log.Printf("picker: tick capture failed (%d consecutive): %v", failures, err)
			if failures >= maxConsecutiveFailures {
				e.send(messages.PickModeStopped{Err: fmt.Errorf("sustained capture failure: %w", err)})
				return
			}
			if errors.Is(err, sampler.ErrCaptureUnavailable) {
				e.trySend(messages.CaptureFailed{Err: err})
			}
			continue
		}
		failures = 0
		e.trySend(messages.PreviewUpdated{Preview: frame})
	}
}

// finishConfirm takes one final radius-0 sample at the current cursor
// position. This is the authoritative read; live-preview samples are only
// advisory.
func (e *Engine) finishConfirm() {
	pt := e.cfg.Map(e.cfg.Cursor())
	color, err := e.cfg.Sample(pt)
	if err != nil {
		log.Printf("picker: confirm sample failed: %v", err)
		e.send(messages.PickModeStopped{Err: err})
		return
	}
	log.Printf("picker: confirmed %s at (%d,%d)", color.Hex, color.X, color.Y)
	e.send(messages.ColorPicked{Color: color})
}

// send delivers lifecycle events and results; it blocks rather than drop.
func (e *Engine) send(m messages.Message) {
	e.events <- m
}

// trySend delivers per-tick data with drop semantics: a consumer that cannot
// keep up loses frames, never stalls the loop.
func (e *Engine) trySend(m messages.Message) {
	select {
	case e.events <- m:
	default:
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
