package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const probeTimeout = 300 * time.Millisecond

// DetectResidentPort scans the configured loopback range for a running
// ColorSnap resident and reports the port that answered the handshake.
// Cancellation is observed between port probes.
func DetectResidentPort(ctx context.Context) (int, bool) {
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		select {
		case <-ctx.Done():
			return 0, false
		default:
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if pingResident(addr, residentProbeTimeout(ctx)) {
			return port, true
		}
	}
	return 0, false
}

// residentProbeTimeout caps one probe so a short context never stretches a
// single dial to the full deadline.
func residentProbeTimeout(ctx context.Context) time.Duration {
	timeout := probeTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	return timeout
}

// pingResident performs the PING/PONG handshake against one candidate port.
// Only a ColorSnap resident answers PONG; anything else listening on the port
// fails the handshake and is skipped.
func pingResident(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
