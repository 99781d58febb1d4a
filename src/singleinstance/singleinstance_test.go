package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// freePort grabs an ephemeral port so tests never collide with a real
// resident instance on the default range.
func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot allocate test port: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()
	return port
}

func startTestServer(t *testing.T) (Server, int, context.Context) {
	t.Helper()
	port := freePort(t)
	t.Setenv("COLORSNAP_PORT_START", strconv.Itoa(port))
	t.Setenv("COLORSNAP_PORT_END", strconv.Itoa(port))

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, port, ctx
}

func TestServerAnswersPing(t *testing.T) {
	_, port, _ := startTestServer(t)

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("PING\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "PONG\n" {
		t.Errorf("got %q, want PONG", line)
	}
}

func TestServerRejectsUnknownRequest(t *testing.T) {
	_, port, _ := startTestServer(t)

	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("BOGUS\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	status, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if status != "ERROR\n" {
		t.Errorf("got status %q, want ERROR", status)
	}
}

func TestPickOnceDelegatedStdout(t *testing.T) {
	srv, _, ctx := startTestServer(t)

	type result struct {
		delegated bool
		hex       string
		err       error
	}
	done := make(chan result, 1)
	go func() {
		d, hex, err := NewClient().TryPickOnce(context.Background(), true)
		done <- result{d, hex, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !conn.Request().OutputToStdout {
		t.Errorf("stdout request should carry OutputToStdout")
	}
	if err := conn.RespondSuccess("#AABBCC"); err != nil {
		t.Fatalf("RespondSuccess: %v", err)
	}
	conn.Close()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("TryPickOnce: %v", r.err)
		}
		if !r.delegated {
			t.Errorf("expected delegation to the resident")
		}
		if r.hex != "#AABBCC" {
			t.Errorf("hex = %q, want #AABBCC", r.hex)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("client never completed")
	}
}

func TestPickOnceDelegatedClipboardMode(t *testing.T) {
	srv, _, ctx := startTestServer(t)

	done := make(chan string, 1)
	go func() {
		_, hex, _ := NewClient().TryPickOnce(context.Background(), false)
		done <- hex
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if conn.Request().OutputToStdout {
		t.Errorf("clipboard request must not carry OutputToStdout")
	}
	// Clipboard mode: resident keeps the hex, body stays empty
	if err := conn.RespondSuccess(""); err != nil {
		t.Fatalf("RespondSuccess: %v", err)
	}
	conn.Close()

	select {
	case hex := <-done:
		if hex != "" {
			t.Errorf("clipboard-mode response body should be empty, got %q", hex)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("client never completed")
	}
}

func TestPickOnceErrorResponse(t *testing.T) {
	srv, _, ctx := startTestServer(t)

	done := make(chan error, 1)
	go func() {
		_, _, err := NewClient().TryPickOnce(context.Background(), true)
		done <- err
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if err := conn.RespondError("pick cancelled"); err != nil {
		t.Fatalf("RespondError: %v", err)
	}
	conn.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected error from ERROR response")
		}
		if !strings.Contains(err.Error(), "pick cancelled") {
			t.Errorf("error %q should carry the server message", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("client never completed")
	}
}

func TestPickOnceNoResident(t *testing.T) {
	port := freePort(t)
	t.Setenv("COLORSNAP_PORT_START", strconv.Itoa(port))
	t.Setenv("COLORSNAP_PORT_END", strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	delegated, hex, err := NewClient().TryPickOnce(ctx, true)
	if err != nil {
		t.Fatalf("absent resident must not error, got %v", err)
	}
	if delegated {
		t.Errorf("nothing is listening; delegation is impossible")
	}
	if hex != "" {
		t.Errorf("unexpected hex %q", hex)
	}
}

func TestSecondServerCannotBind(t *testing.T) {
	_, _, _ = startTestServer(t)

	second := NewServer()
	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Fatalf("second server on the same port should fail to bind")
	}
}

func TestDetectResidentPort(t *testing.T) {
	_, port, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, found := DetectResidentPort(ctx)
	if !found {
		t.Fatalf("resident is running but was not detected")
	}
	if got != port {
		t.Errorf("detected port %d, want %d", got, port)
	}
}

func TestDetectResidentPortAbsent(t *testing.T) {
	port := freePort(t)
	t.Setenv("COLORSNAP_PORT_START", strconv.Itoa(port))
	t.Setenv("COLORSNAP_PORT_END", strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, found := DetectResidentPort(ctx); found {
		t.Errorf("nothing is listening; detection should fail")
	}

	cancelled, cancel2 := context.WithCancel(context.Background())
	cancel2()
	if _, found := DetectResidentPort(cancelled); found {
		t.Errorf("cancelled context should stop the scan")
	}
}

func TestServerCloseUnblocksNext(t *testing.T) {
	srv, _, ctx := startTestServer(t)

	done := make(chan error, 1)
	go func() {
		_, err := srv.Next(ctx)
		done <- err
	}()

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-done:
		if err == nil {
			t.Errorf("Next after Close should report the closed server")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Next never unblocked after Close")
	}

	// Repeated Close must stay safe even while clients race the shutdown
	if err := srv.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestGetPortRange(t *testing.T) {
	tests := []struct {
		name               string
		start, end         string
		wantStart, wantEnd int
	}{
		{"defaults", "", "", defaultPortStart, defaultPortEnd},
		{"explicit", "50000", "50010", 50000, 50010},
		{"clamp low", "80", "2000", 1024, 2000},
		{"clamp high", "65000", "70000", 65000, 65535},
		{"swapped", "50010", "50000", 50000, 50010},
		{"garbage", "abc", "def", defaultPortStart, defaultPortEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("COLORSNAP_PORT_START", tt.start)
			t.Setenv("COLORSNAP_PORT_END", tt.end)
			start, end := getPortRange()
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("getPortRange() = (%d,%d), want (%d,%d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
