package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"colorsnap/src/messages"
	"colorsnap/src/sampler"
)

// BlockFunc captures a pixel neighborhood. Injectable for tests.
type BlockFunc func(pt messages.ScreenPoint, radius int) (sampler.Block, error)

// Renderer builds magnified live-preview frames. The crop is (2*Radius+1)²
// raw pixels upsampled by Scale with nearest-neighbor so every preview cell
// carries an exact screen color, never a blend.
type Renderer struct {
	Radius int
	Scale  int
	Block  BlockFunc
}

func New(radius, scale int) *Renderer {
	return &Renderer{
		Radius: radius,
		Scale:  scale,
		Block:  sampler.CaptureBlock,
	}
}

// Render captures the neighborhood around pt and encodes one preview frame.
// One capture per call; the returned frame is ephemeral and owned by the caller.
func (r *Renderer) Render(pt messages.ScreenPoint) (messages.ZoomPreviewData, error) {
	blk, err := r.Block(pt, r.Radius)
	if err != nil {
		return messages.ZoomPreviewData{}, err
	}

	cr, cg, cb, ok := blk.ColorAt(pt.X, pt.Y)
	if !ok {
		return messages.ZoomPreviewData{}, fmt.Errorf("%w: center pixel missing from captured block", sampler.ErrCaptureUnavailable)
	}

	img := magnify(blk, r.Scale)
	drawCenterMarker(img, blk, pt, r.Scale)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return messages.ZoomPreviewData{}, fmt.Errorf("failed to encode preview PNG: %v", err)
	}

	return messages.ZoomPreviewData{
		ImageData: base64.StdEncoding.EncodeToString(buf.Bytes()),
		CenterColor: messages.ColorInfo{
			Hex: sampler.HexString(cr, cg, cb),
			RGB: [3]uint8{cr, cg, cb},
			X:   pt.X,
			Y:   pt.Y,
		},
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
	}, nil
}

// magnify upsamples the block with nearest-neighbor: each source pixel
// becomes an exact scale×scale cell.
func magnify(blk sampler.Block, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	w := blk.Rect.Dx() * scale
	h := blk.Rect.Dy() * scale
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		sy := y / scale
		for x := 0; x < w; x++ {
			out.SetRGBA(x, y, blk.Img.RGBAAt(x/scale, sy))
		}
	}
	return out
}

// drawCenterMarker outlines the cell of the true center pixel. A black ring
// inside a white ring stays visible on any background.
func drawCenterMarker(img *image.RGBA, blk sampler.Block, pt messages.ScreenPoint, scale int) {
	if scale < 1 {
		scale = 1
	}
	cx := (pt.X - blk.Rect.Min.X) * scale
	cy := (pt.Y - blk.Rect.Min.Y) * scale
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}

	drawRectOutline(img, image.Rect(cx-1, cy-1, cx+scale+1, cy+scale+1), white)
	drawRectOutline(img, image.Rect(cx, cy, cx+scale, cy+scale), black)
}

func drawRectOutline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		setIfInside(img, x, r.Min.Y, c)
		setIfInside(img, x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setIfInside(img, r.Min.X, y, c)
		setIfInside(img, r.Max.X-1, y, c)
	}
}

func setIfInside(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Rect) {
		img.SetRGBA(x, y, c)
	}
}
