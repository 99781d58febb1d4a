//go:build !windows

package mapper

// displayScale reports 1.0 on platforms where the capture layer already
// works in device pixels (X11, macOS CGDisplay).
func displayScale(index int) float64 {
	return 1.0
}
