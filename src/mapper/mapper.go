package mapper

import (
	"image"
	"math"

	"github.com/kbinani/screenshot"

	"colorsnap/src/messages"
)

// Display describes one monitor of the virtual desktop. Bounds is the
// device-pixel rectangle in virtual-desktop coordinates. Scale is the
// per-monitor DPI scale factor, reported for diagnostics only: the process
// declares per-monitor DPI awareness at startup, so hook cursor positions and
// capture rectangles are both already device pixels and no scale arithmetic
// belongs in the mapping.
type Display struct {
	Index  int
	Bounds image.Rectangle
	Scale  float64
}

// Displays enumerates the active monitors with their current geometry.
func Displays() []Display {
	n := screenshot.NumActiveDisplays()
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Display{
			Index:  i,
			Bounds: screenshot.GetDisplayBounds(i),
			Scale:  displayScale(i),
		})
	}
	return out
}

// ToSamplerSpace converts a raw cursor position to the device-pixel
// ScreenPoint the sampler consumes. Cursor and display bounds share the same
// device-pixel space, so mapping is display attribution plus clamp. Positions
// that fall outside every display (briefly possible during monitor topology
// changes) clamp to the nearest display; mapping never fails.
func ToSamplerSpace(x, y int, displays []Display) messages.ScreenPoint {
	if len(displays) == 0 {
		return messages.ScreenPoint{X: x, Y: y}
	}

	d := displayAt(x, y, displays)
	return messages.ScreenPoint{
		X:       clamp(x, d.Bounds.Min.X, d.Bounds.Max.X-1),
		Y:       clamp(y, d.Bounds.Min.Y, d.Bounds.Max.Y-1),
		Display: d.Index,
	}
}

// displayAt picks the display whose bounds contain (x, y), falling back to
// the display with the smallest clamp distance.
func displayAt(x, y int, displays []Display) Display {
	for _, d := range displays {
		if image.Pt(x, y).In(d.Bounds) {
			return d
		}
	}

	best := displays[0]
	bestDist := math.MaxFloat64
	for _, d := range displays {
		dx := float64(clamp(x, d.Bounds.Min.X, d.Bounds.Max.X-1) - x)
		dy := float64(clamp(y, d.Bounds.Min.Y, d.Bounds.Max.Y-1) - y)
		if dist := dx*dx + dy*dy; dist < bestDist {
			bestDist = dist
			best = d
		}
	}
	return best
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
