package picker

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"colorsnap/src/messages"
	"colorsnap/src/sampler"
)

func testConfig(renders *atomic.Int32, renderErr func(call int32) error) Config {
	return Config{
		Cursor: func() (int, int) { return 10, 20 },
		Map: func(x, y int) messages.ScreenPoint {
			return messages.ScreenPoint{X: x, Y: y}
		},
		Sample: func(pt messages.ScreenPoint) (messages.ColorInfo, error) {
			return messages.ColorInfo{Hex: "#FF0000", RGB: [3]uint8{255, 0, 0}, X: pt.X, Y: pt.Y}, nil
		},
		Render: func(pt messages.ScreenPoint) (messages.ZoomPreviewData, error) {
			call := renders.Add(1)
			if renderErr != nil {
				if err := renderErr(call); err != nil {
					return messages.ZoomPreviewData{}, err
				}
			}
			return messages.ZoomPreviewData{
				CenterColor: messages.ColorInfo{Hex: "#FF0000", RGB: [3]uint8{255, 0, 0}, X: pt.X, Y: pt.Y},
				Width:       150,
				Height:      150,
			}, nil
		},
		Interval: 2 * time.Millisecond,
	}
}

func waitForState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("engine never reached state %v, stuck at %v", want, e.State())
}

// nextEvent pulls events until one of the wanted types arrives, skipping
// preview frames and transient capture notices.
func nextEvent(t *testing.T, e *Engine) messages.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-e.Events():
			switch ev.(type) {
			case messages.PreviewUpdated, messages.CaptureFailed:
				continue
			default:
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for engine event")
			return nil
		}
	}
}

func TestArmIsIdempotent(t *testing.T) {
	var renders atomic.Int32
	e := New(testConfig(&renders, nil))

	if !e.Arm() {
		t.Fatalf("first Arm should succeed")
	}
	waitForState(t, e, StateSampling)

	if e.Arm() {
		t.Errorf("Arm while Sampling must be a no-op")
	}
	if e.Arm() {
		t.Errorf("repeated Arm while Sampling must be a no-op")
	}

	e.Cancel()
	waitForState(t, e, StateIdle)
}

func TestConfirmEmitsAuthoritativeResult(t *testing.T) {
	var renders atomic.Int32
	e := New(testConfig(&renders, nil))

	if !e.Arm() {
		t.Fatalf("Arm failed")
	}
	if ev := nextEvent(t, e); ev.Type() != messages.TypePickModeStarted {
		t.Fatalf("expected PickModeStarted, got %s", ev.Type())
	}
	waitForState(t, e, StateSampling)

	if !e.Confirm() {
		t.Fatalf("Confirm while Sampling should be accepted")
	}

	ev := nextEvent(t, e)
	picked, ok := ev.(messages.ColorPicked)
	if !ok {
		t.Fatalf("expected ColorPicked, got %s", ev.Type())
	}
	if picked.Color.Hex != "#FF0000" {
		t.Errorf("expected #FF0000, got %s", picked.Color.Hex)
	}
	if picked.Color.RGB != [3]uint8{255, 0, 0} {
		t.Errorf("unexpected rgb: %v", picked.Color.RGB)
	}
	if picked.Color.X != 10 || picked.Color.Y != 20 {
		t.Errorf("unexpected coordinates: (%d,%d)", picked.Color.X, picked.Color.Y)
	}

	waitForState(t, e, StateIdle)
}

func TestCancelEmitsNoResult(t *testing.T) {
	var renders atomic.Int32
	e := New(testConfig(&renders, nil))

	if !e.Arm() {
		t.Fatalf("Arm failed")
	}
	if ev := nextEvent(t, e); ev.Type() != messages.TypePickModeStarted {
		t.Fatalf("expected PickModeStarted, got %s", ev.Type())
	}
	waitForState(t, e, StateSampling)

	if !e.Cancel() {
		t.Fatalf("Cancel while Sampling should be accepted")
	}

	ev := nextEvent(t, e)
	stopped, ok := ev.(messages.PickModeStopped)
	if !ok {
		t.Fatalf("expected PickModeStopped, got %s", ev.Type())
	}
	if stopped.Err != nil {
		t.Errorf("user cancel should carry no error, got %v", stopped.Err)
	}
	waitForState(t, e, StateIdle)

	// No result may arrive after the cancel
	select {
	case ev := <-e.Events():
		if _, isPick := ev.(messages.ColorPicked); isPick {
			t.Errorf("cancelled session must not emit ColorPicked")
		}
	case <-time.After(20 * time.Millisecond):
	}
}

func TestConfirmOutsideSamplingRejected(t *testing.T) {
	var renders atomic.Int32
	e := New(testConfig(&renders, nil))

	if e.Confirm() {
		t.Errorf("Confirm while Idle must be rejected")
	}
	if e.Cancel() {
		t.Errorf("Cancel while Idle must be rejected")
	}
}

func TestSustainedCaptureFailureCancels(t *testing.T) {
	var renders atomic.Int32
	failAlways := func(int32) error {
		return fmt.Errorf("%w: secure desktop", sampler.ErrCaptureUnavailable)
	}
	e := New(testConfig(&renders, failAlways))

	if !e.Arm() {
		t.Fatalf("Arm failed")
	}
	if ev := nextEvent(t, e); ev.Type() != messages.TypePickModeStarted {
		t.Fatalf("expected PickModeStarted, got %s", ev.Type())
	}

	ev := nextEvent(t, e)
	stopped, ok := ev.(messages.PickModeStopped)
	if !ok {
		t.Fatalf("expected PickModeStopped, got %s", ev.Type())
	}
	if stopped.Err == nil {
		t.Fatalf("sustained failure must report an error")
	}
	if !errors.Is(stopped.Err, sampler.ErrCaptureUnavailable) {
		t.Errorf("error should wrap ErrCaptureUnavailable, got %v", stopped.Err)
	}
	if got := renders.Load(); got != maxConsecutiveFailures {
		t.Errorf("expected exactly %d capture attempts, got %d", maxConsecutiveFailures, got)
	}
	waitForState(t, e, StateIdle)
}

func TestTransientCaptureFailureRetries(t *testing.T) {
	var renders atomic.Int32
	failFirstTwo := func(call int32) error {
		if call <= 2 {
			return fmt.Errorf("%w: transient", sampler.ErrCaptureUnavailable)
		}
		return nil
	}
	e := New(testConfig(&renders, failFirstTwo))

	if !e.Arm() {
		t.Fatalf("Arm failed")
	}
	waitForState(t, e, StateSampling)

	// Wait until a successful tick resets the failure count
	deadline := time.Now().Add(2 * time.Second)
	for renders.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if e.State() != StateSampling {
		t.Fatalf("two transient failures must not cancel pick mode, state=%v", e.State())
	}

	e.Cancel()
	waitForState(t, e, StateIdle)
}

func TestRearmAfterCompletedSession(t *testing.T) {
	var renders atomic.Int32
	e := New(testConfig(&renders, nil))

	for i := 0; i < 3; i++ {
		if !e.Arm() {
			t.Fatalf("Arm #%d failed", i+1)
		}
		if ev := nextEvent(t, e); ev.Type() != messages.TypePickModeStarted {
			t.Fatalf("expected PickModeStarted, got %s", ev.Type())
		}
		waitForState(t, e, StateSampling)
		e.Confirm()
		if ev := nextEvent(t, e); ev.Type() != messages.TypeColorPicked {
			t.Fatalf("expected ColorPicked, got %s", ev.Type())
		}
		waitForState(t, e, StateIdle)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateArmed, "Armed"},
		{StateSampling, "Sampling"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
