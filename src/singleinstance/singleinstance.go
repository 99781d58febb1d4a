package singleinstance

// This file defines the API for single-instance ownership and pick-once delegation.

import (
	"context"
)

// Server owns the loopback TCP endpoint and answers pick-once requests.
type Server interface {
	// Start begins listening on the start port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends success with the picked hex string.
	RespondSuccess(hex string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request represents a single pick-once client request.
type Request struct {
	// OutputToStdout means the client wants the hex string back; otherwise
	// the resident copies it to the clipboard and responds empty.
	OutputToStdout bool
}

// Client attempts to delegate a pick-once invocation to a resident server.
type Client interface {
	// TryPickOnce scans the configured TCP range, performs handshake, and
	// delegates to the resident. If no resident is found, returns
	// delegated=false, err=nil.
	TryPickOnce(ctx context.Context, outputToStdout bool) (delegated bool, hex string, err error)
}

// NewServer returns the TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns the TCP implementation.
func NewClient() Client { return newTcpClient() }
