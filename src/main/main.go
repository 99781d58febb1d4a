package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"colorsnap/src/clipboard"
	"colorsnap/src/config"
	"colorsnap/src/eventloop"
	"colorsnap/src/history"
	"colorsnap/src/hotkey"
	"colorsnap/src/logutil"
	"colorsnap/src/mapper"
	"colorsnap/src/messages"
	"colorsnap/src/notification"
	"colorsnap/src/picker"
	"colorsnap/src/preview"
	"colorsnap/src/sampler"
	"colorsnap/src/singleinstance"
	"colorsnap/src/tray"
)

// normalizeFlagDashes maps GNU-style --pick-once[(-std)] to Go's -pick-once[(-std)]
func normalizeFlagDashes() {
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch {
		case strings.HasPrefix(arg, "--pick-once"):
			os.Args[i] = arg[1:]
		}
	}
}

func main() {
	// Ensure DPI awareness before querying any display metrics
	enableDPIAwareness()

	// Keep the main goroutine on its own OS thread away from the hook thread
	runtime.LockOSThread()

	pickOnce := flag.Bool("pick-once", false, "Pick one color, copy hex to clipboard, and exit")
	pickOnceStd := flag.Bool("pick-once-std", false, "Pick one color, print hex to stdout, and exit")
	normalizeFlagDashes()
	flag.Parse()

	if *pickOnce || *pickOnceStd {
		// Load .env early so COLORSNAP_PORT_* are applied before delegation scan
		cfg, _ := config.Load()
		logutil.Setup(cfg.EnableFileLogging)

		stdout := *pickOnceStd
		ctx := context.Background()
		client := singleinstance.NewClient()

		delegated, hex, err := client.TryPickOnce(ctx, stdout)
		if err != nil {
			log.Printf("Delegation error: %v; falling back to standalone", err)
			runPickOnce(cfg, stdout)
			return
		}
		if delegated {
			log.Printf("Delegated to resident")
			if stdout {
				fmt.Print(hex)
			}
			return
		}
		log.Printf("No resident detected, running standalone")
		runPickOnce(cfg, stdout)
		return
	}

	// Load .env early so COLORSNAP_PORT_* are available for pre-flight
	_, _ = config.Load()
	// ---------- SINGLE-INSTANCE PRE-FLIGHT ----------
	startPort, _ := singleinstance.GetPortRangeForDebug()
	addr := fmt.Sprintf("127.0.0.1:%d", startPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy -> resident already exists", startPort)
		fmt.Printf("ColorSnap is already running on port %d\n", startPort)
		os.Exit(1)
	}
	// We claimed the port; release it so the event loop can re-bind.
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free -> we are the resident", startPort)
	// ------------------------------------------------

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logutil.Setup(cfg.EnableFileLogging)

	sampler.Init()
	if err := clipboard.Init(); err != nil {
		fatal(fmt.Sprintf("Failed to initialize clipboard: %v", err))
	}

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		fatal(fmt.Sprintf("Failed to open color history: %v", err))
	}

	log.Printf("ColorSnap initialized")
	for _, d := range mapper.Displays() {
		log.Printf("Display %d: %v (scale %.2f)", d.Index, d.Bounds, d.Scale)
	}
	log.Printf("Hotkey: %s", cfg.Hotkey)
	log.Printf("History: %s (%d entries)", store.Path(), store.Len())
	log.Printf("Tick rate: %d Hz, preview radius %d, scale %d", cfg.TickRateHz, cfg.PreviewRadius, cfg.PreviewScale)

	engine := newEngine(cfg)
	loop := eventloop.New(cfg, engine, store)
	loop.StartHotkey(cfg.Hotkey)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hotkeyLabel := loop.HotkeyLabel()
	tooltip := "ColorSnap"
	if hotkeyLabel != "" {
		tooltip = fmt.Sprintf("ColorSnap - %s to pick a color", hotkeyLabel)
	}
	trayIcon, _ := tray.New(tray.Config{
		Title:       "ColorSnap",
		Tooltip:     tooltip,
		HotkeyLabel: hotkeyLabel,
		OnPick:      loop.RequestPick,
		OnClearHistory: func() {
			if err := store.Clear(); err != nil {
				log.Printf("Failed to clear history: %v", err)
			}
		},
		OnExit: func() { cancel() },
	})
	go trayIcon.Run()
	defer trayIcon.Destroy()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("event loop stopped: %v", err)
	}
}

// fatal reports a startup failure. The resident runs without a console on
// Windows, so the message also goes to a blocking dialog.
func fatal(msg string) {
	log.Print(msg)
	notification.ShowBlockingError("ColorSnap", msg)
	os.Exit(1)
}

// newEngine wires the engine to the real cursor, mapper, sampler and renderer.
func newEngine(cfg *config.Config) *picker.Engine {
	renderer := preview.New(cfg.PreviewRadius, cfg.PreviewScale)
	return picker.New(picker.Config{
		Cursor: hotkey.CursorPosition,
		Map: func(x, y int) messages.ScreenPoint {
			return mapper.ToSamplerSpace(x, y, mapper.Displays())
		},
		Sample:   sampler.Sample,
		Render:   renderer.Render,
		Interval: time.Second / time.Duration(cfg.TickRateHz),
	})
}

// runPickOnce performs a single standalone pick and exits.
func runPickOnce(cfg *config.Config, outputToStdout bool) {
	if err := clipboard.Init(); err != nil && !outputToStdout {
		fmt.Fprintf(os.Stderr, "Failed to initialize clipboard: %v\n", err)
		os.Exit(1)
	}

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open color history: %v\n", err)
		os.Exit(1)
	}

	engine := newEngine(cfg)
	if err := hotkey.Listen(cfg.Hotkey, hotkey.Handlers{
		OnPick:   func() { engine.Confirm() },
		OnEscape: func() { engine.Cancel() },
		OnClick:  func() { engine.Confirm() },
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register input hook: %v\n", err)
		os.Exit(1)
	}

	if !engine.Arm() {
		fmt.Fprintf(os.Stderr, "Failed to arm pick mode\n")
		os.Exit(1)
	}
	log.Printf("Pick mode armed: click or press %s to confirm, Esc to cancel", cfg.Hotkey)

	for ev := range engine.Events() {
		switch m := ev.(type) {
		case messages.ColorPicked:
			if _, err := store.Add(m.Color); err != nil {
				log.Printf("Failed to record pick: %v", err)
			}
			if outputToStdout {
				fmt.Print(m.Color.Hex)
			} else {
				if err := clipboard.Write(m.Color.Hex); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to write clipboard: %v\n", err)
					os.Exit(1)
				}
				log.Printf("Copied %s to clipboard", m.Color.Hex)
			}
			os.Exit(0)
		case messages.PickModeStopped:
			if m.Err != nil {
				fmt.Fprintf(os.Stderr, "Pick failed: %v\n", m.Err)
				os.Exit(1)
			}
			fmt.Fprintln(os.Stderr, "Pick cancelled")
			os.Exit(1)
		}
	}
}
