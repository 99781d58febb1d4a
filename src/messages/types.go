package messages

// Message is the base interface for events delivered across the engine/UI boundary
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypePickModeStarted = "PickModeStarted"
	TypePickModeStopped = "PickModeStopped"
	TypePreviewUpdated  = "PreviewUpdated"
	TypeColorPicked     = "ColorPicked"
	TypeCaptureFailed   = "CaptureFailed"
)

// ScreenPoint is a device-pixel coordinate in sampler space. Display is the
// index of the monitor the point falls on.
type ScreenPoint struct {
	X       int
	Y       int
	Display int
}

// ColorInfo is one sampled color. Hex is always the canonical uppercase
// 6-digit encoding of RGB (e.g. "#FF0000"). X/Y are the sampled device-pixel
// coordinates.
type ColorInfo struct {
	Hex string   `json:"hex"`
	RGB [3]uint8 `json:"rgb"`
	X   int      `json:"x"`
	Y   int      `json:"y"`
}

// ColorEntry is one persisted history record. Timestamp is Unix milliseconds
// at capture time. Label is optional user text and never affects ordering.
type ColorEntry struct {
	ID        string   `json:"id"`
	Hex       string   `json:"hex"`
	RGB       [3]uint8 `json:"rgb"`
	Timestamp int64    `json:"timestamp"`
	Label     string   `json:"label,omitempty"`
}

// ZoomPreviewData is one magnified live-preview frame. ImageData is a
// base64-encoded PNG; Width/Height are the encoded raster dimensions.
type ZoomPreviewData struct {
	ImageData   string    `json:"image_data"`
	CenterColor ColorInfo `json:"center_color"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
}

// PickModeStarted - emitted when the engine arms and begins sampling.
// The host UI should step out of the way; the loop does not wait for it.
type PickModeStarted struct{}

func (m PickModeStarted) Type() string { return TypePickModeStarted }

// PickModeStopped - emitted when pick mode ends without a result.
// Err is non-nil when the engine cancelled itself (sustained capture failure).
type PickModeStopped struct {
	Err error
}

func (m PickModeStopped) Type() string { return TypePickModeStopped }

// PreviewUpdated - emitted once per tick while sampling. Delivery is
// fire-and-forget; slow consumers see dropped frames, never a stalled loop.
type PreviewUpdated struct {
	Preview ZoomPreviewData
}

func (m PreviewUpdated) Type() string { return TypePreviewUpdated }

// ColorPicked - emitted exactly once per successful confirm with the
// authoritative sample.
type ColorPicked struct {
	Color ColorInfo
}

func (m ColorPicked) Type() string { return TypeColorPicked }

// CaptureFailed - emitted when a tick could not capture. Informational;
// the engine retries until the failure is sustained.
type CaptureFailed struct {
	Err error
}

func (m CaptureFailed) Type() string { return TypeCaptureFailed }
