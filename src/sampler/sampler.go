package sampler

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"colorsnap/src/messages"
)

// ErrCaptureUnavailable reports that the display subsystem denied the capture
// (secure desktop, locked session, missing permission). Callers must get a
// distinguishable error here, never a default black pixel.
var ErrCaptureUnavailable = errors.New("screen capture unavailable")

func Init() {
	// Initialize sampler package if needed
}

// Block is one captured pixel neighborhood. Img holds zero-based pixels; Rect
// records the absolute device-pixel rectangle the capture covered, which may
// be smaller than requested near display edges.
type Block struct {
	Img  *image.RGBA
	Rect image.Rectangle
}

// ColorAt reads the pixel at absolute device coordinates (x, y).
// ok is false when the point lies outside the captured rect.
func (b Block) ColorAt(x, y int) (r, g, bl uint8, ok bool) {
	if b.Img == nil || !image.Pt(x, y).In(b.Rect) {
		return 0, 0, 0, false
	}
	c := b.Img.RGBAAt(x-b.Rect.Min.X, y-b.Rect.Min.Y)
	return c.R, c.G, c.B, true
}

// Sample reads the single composited pixel under pt at call time.
// This is the authoritative radius-0 read used at confirm.
func Sample(pt messages.ScreenPoint) (messages.ColorInfo, error) {
	blk, err := CaptureBlock(pt, 0)
	if err != nil {
		return messages.ColorInfo{}, err
	}
	r, g, b, ok := blk.ColorAt(pt.X, pt.Y)
	if !ok {
		return messages.ColorInfo{}, fmt.Errorf("%w: point (%d,%d) outside captured rect", ErrCaptureUnavailable, pt.X, pt.Y)
	}
	return messages.ColorInfo{
		Hex: HexString(r, g, b),
		RGB: [3]uint8{r, g, b},
		X:   pt.X,
		Y:   pt.Y,
	}, nil
}

// CaptureBlock captures the (2*radius+1)² neighborhood centered on pt,
// clamped to the bounds of the display the point falls on. Each call acquires
// and releases its own capture resource; nothing is cached between calls.
func CaptureBlock(pt messages.ScreenPoint, radius int) (Block, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return Block{}, fmt.Errorf("%w: no active displays", ErrCaptureUnavailable)
	}
	display := pt.Display
	if display < 0 || display >= n {
		display = 0
	}
	bounds := screenshot.GetDisplayBounds(display)

	want := image.Rect(pt.X-radius, pt.Y-radius, pt.X+radius+1, pt.Y+radius+1)
	rect := want.Intersect(bounds)
	if rect.Empty() {
		return Block{}, fmt.Errorf("%w: point (%d,%d) outside display %d bounds %v", ErrCaptureUnavailable, pt.X, pt.Y, display, bounds)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return Block{Img: img, Rect: rect}, nil
}

// HexString returns the canonical uppercase 6-digit hex encoding of an RGB triple.
func HexString(r, g, b uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", r, g, b)
}
