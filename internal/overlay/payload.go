package overlay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The text_overlay column has carried three shapes over the product's life:
//
//	v0: a plain caption string
//	v1: a {"elements": [...], "stickers": [...]} blob with no version tag
//	v2: the current tagged form, adding strokes
//
// Decode accepts any of them and normalizes to the current in-memory shape.
// Encode only ever writes v2.

const PayloadVersion = 2

// Payload is the full overlay content of one composition.
type Payload struct {
	Version  int           `json:"version"`
	Elements []TextElement `json:"elements"`
	Stickers []Sticker     `json:"stickers"`
	Strokes  []Stroke      `json:"strokes,omitempty"`
}

// IsEmpty reports whether the payload carries no visible content.
func (p Payload) IsEmpty() bool {
	return len(p.Elements) == 0 && len(p.Stickers) == 0 && len(p.Strokes) == 0
}

// Encode serializes the payload as the current version.
func Encode(p Payload) (string, error) {
	p.Version = PayloadVersion
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode overlay payload: %w", err)
	}
	return string(data), nil
}

// Decode parses any historical overlay encoding. An empty input yields an
// empty payload. Malformed input returns an error; callers render the story
// with zero overlays rather than failing the whole playback sequence.
func Decode(raw string) (Payload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Payload{Version: PayloadVersion}, nil
	}

	// Anything that doesn't look like a JSON object is a v0 legacy caption.
	if !strings.HasPrefix(trimmed, "{") {
		return captionPayload(trimmed), nil
	}

	var p Payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return Payload{}, fmt.Errorf("decode overlay payload: %w", err)
	}

	switch p.Version {
	case 0:
		// v1 blobs carry no version tag. A tagless object with neither
		// elements nor stickers is not a known shape.
		if p.Elements == nil && p.Stickers == nil {
			return Payload{}, fmt.Errorf("decode overlay payload: unrecognized shape")
		}
		convertPixelStickers(&p)
	case 1:
		convertPixelStickers(&p)
	case PayloadVersion:
	default:
		return Payload{}, fmt.Errorf("decode overlay payload: unsupported version %d", p.Version)
	}

	p.Version = PayloadVersion
	normalize(&p)
	return p, nil
}

// captionPayload lifts a legacy plain-string caption into a single centered
// text element with the composer's default style.
func captionPayload(caption string) Payload {
	return Payload{
		Version: PayloadVersion,
		Elements: []TextElement{{
			ID:         "caption",
			Text:       caption,
			X:          50,
			Y:          50,
			FontSize:   DefaultFontSize,
			Color:      DefaultTextColor,
			FontFamily: DefaultFontFamily,
			Alignment:  "center",
		}},
	}
}

// One v1 composer revision wrote sticker positions in absolute pixels against
// a 360x640 canvas. Coordinates beyond the percentage range are mapped back
// to percent so old records keep their placement.
const (
	refCanvasW = 360.0
	refCanvasH = 640.0
)

func convertPixelStickers(p *Payload) {
	for i := range p.Stickers {
		s := &p.Stickers[i]
		if s.X > 100 || s.Y > 100 {
			s.X = s.X / refCanvasW * 100
			s.Y = s.Y / refCanvasH * 100
		}
	}
}

// normalize clamps positions and styles from older writers into the current
// valid ranges.
func normalize(p *Payload) {
	for i := range p.Elements {
		e := &p.Elements[i]
		e.X = ClampPercent(e.X)
		e.Y = ClampPercent(e.Y)
		e.FontSize = ClampFontSize(e.FontSize)
		e.Rotation = ClampRotation(e.Rotation)
		if e.FontFamily == "" {
			e.FontFamily = DefaultFontFamily
		}
		if e.Color == "" {
			e.Color = DefaultTextColor
		}
	}
	for i := range p.Stickers {
		s := &p.Stickers[i]
		s.X = ClampPercent(s.X)
		s.Y = ClampPercent(s.Y)
		s.Rotation = ClampRotation(s.Rotation)
		if s.Size <= 0 {
			s.Size = DefaultStickerSize
		}
	}
}
