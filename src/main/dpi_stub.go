//go:build !windows

package main

// enableDPIAwareness is a no-op outside Windows; X11 and CGDisplay report
// device pixels already.
func enableDPIAwareness() {}
