package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// iconBytes renders the tray icon at runtime: a 16x16 eyedropper swatch split
// into primary-color quadrants with a dark border.
func iconBytes() []byte {
	const size = 16
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	quads := [4]color.RGBA{
		{R: 231, G: 76, B: 60, A: 255},  // red
		{R: 46, G: 204, B: 113, A: 255}, // green
		{R: 52, G: 152, B: 219, A: 255}, // blue
		{R: 241, G: 196, B: 15, A: 255}, // yellow
	}
	border := color.RGBA{R: 40, G: 40, B: 40, A: 255}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x == 0 || y == 0 || x == size-1 || y == size-1 {
				img.SetRGBA(x, y, border)
				continue
			}
			q := 0
			if x >= size/2 {
				q++
			}
			if y >= size/2 {
				q += 2
			}
			img.SetRGBA(x, y, quads[q])
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
