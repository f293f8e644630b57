package overlay

// Overlay elements live in percentage-of-container coordinates so a
// composition renders the same on any screen. The canvas aspect ratio is
// fixed at 9:16; pixel positions exist only at render time.

const (
	// Canvas aspect ratio (width:height).
	AspectW = 9
	AspectH = 16

	// Anchor positions are clamped to [0, 90] percent on both axes so a
	// center-anchored element can never drift fully off-canvas.
	MinPercent = 0.0
	MaxPercent = 90.0

	MaxTextLen  = 200
	MinFontSize = 12
	MaxFontSize = 60

	MinRotation = -180.0
	MaxRotation = 180.0

	DefaultFontSize    = 24
	DefaultFontFamily  = "Arial"
	DefaultTextColor   = "#FFFFFF"
	DefaultStickerSize = 40
)

type BackgroundKind string

const (
	BackgroundMedia    BackgroundKind = "media"
	BackgroundColor    BackgroundKind = "color"
	BackgroundGradient BackgroundKind = "gradient"
)

// Background is the bottom layer of a composition. A media background carries
// a URL and media type; color and gradient backgrounds carry a CSS value.
type Background struct {
	Kind      BackgroundKind `json:"kind"`
	URL       string         `json:"url,omitempty"`
	MediaType string         `json:"media_type,omitempty"`
	Value     string         `json:"value,omitempty"`
}

type TextElement struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   int     `json:"font_size"`
	Color      string  `json:"color"`
	FontFamily string  `json:"font_family"`
	Bold       bool    `json:"bold"`
	Italic     bool    `json:"italic"`
	Alignment  string  `json:"alignment"`
	Rotation   float64 `json:"rotation"`
}

type Sticker struct {
	ID       string  `json:"id"`
	Content  string  `json:"content"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     int     `json:"size"`
	Rotation float64 `json:"rotation"`
}

// Stroke is one freehand polyline. Keeping strokes as data instead of a
// flattened bitmap allows undo-last-stroke and resolution-independent
// re-render; flattening happens only at export.
type Stroke struct {
	Points     []Point `json:"points"`
	BrushSize  int     `json:"brush_size"`
	BrushColor string  `json:"brush_color"`
}

// Point is a single stroke sample in percentage coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClampPercent forces a coordinate into the valid anchor range.
func ClampPercent(v float64) float64 {
	if v < MinPercent {
		return MinPercent
	}
	if v > MaxPercent {
		return MaxPercent
	}
	return v
}

// ClampFontSize forces a font size into the supported range.
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// ClampRotation forces a rotation into [-180, 180] degrees.
func ClampRotation(deg float64) float64 {
	if deg < MinRotation {
		return MinRotation
	}
	if deg > MaxRotation {
		return MaxRotation
	}
	return deg
}
