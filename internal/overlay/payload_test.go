package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmpty(t *testing.T) {
	p, err := Decode("")
	require.NoError(t, err)
	assert.Equal(t, PayloadVersion, p.Version)
	assert.True(t, p.IsEmpty())
}

func TestDecodeLegacyCaption(t *testing.T) {
	p, err := Decode("Fresh pasta tonight!")
	require.NoError(t, err)

	require.Len(t, p.Elements, 1)
	el := p.Elements[0]
	assert.Equal(t, "caption", el.ID)
	assert.Equal(t, "Fresh pasta tonight!", el.Text)
	assert.Equal(t, 50.0, el.X)
	assert.Equal(t, 50.0, el.Y)
	assert.Equal(t, DefaultFontSize, el.FontSize)
	assert.Equal(t, DefaultTextColor, el.Color)
	assert.Empty(t, p.Stickers)
}

func TestDecodeUntaggedBlob(t *testing.T) {
	raw := `{"elements":[{"id":"a","text":"hi","x":120,"y":30,"font_size":8}],` +
		`"stickers":[{"id":"s","content":"🔥","x":180,"y":320}]}`

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, PayloadVersion, p.Version)

	require.Len(t, p.Elements, 1)
	el := p.Elements[0]
	assert.Equal(t, MaxPercent, el.X)
	assert.Equal(t, 30.0, el.Y)
	assert.Equal(t, MinFontSize, el.FontSize)
	assert.Equal(t, DefaultFontFamily, el.FontFamily)

	// Pixel coordinates against the 360x640 reference canvas map back to
	// percent.
	require.Len(t, p.Stickers, 1)
	st := p.Stickers[0]
	assert.Equal(t, 50.0, st.X)
	assert.Equal(t, 50.0, st.Y)
	assert.Equal(t, DefaultStickerSize, st.Size)
}

func TestDecodeUntaggedBlobStickersOnly(t *testing.T) {
	p, err := Decode(`{"stickers":[{"id":"s","content":"⭐","x":10,"y":20,"size":32}]}`)
	require.NoError(t, err)
	require.Len(t, p.Stickers, 1)
	assert.Equal(t, 10.0, p.Stickers[0].X)
	assert.Equal(t, 32, p.Stickers[0].Size)
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	in := Payload{
		Elements: []TextElement{{
			ID: "e1", Text: "Dinner is served", X: 40, Y: 60,
			FontSize: 32, Color: "#FFD700", FontFamily: "Georgia",
			Bold: true, Alignment: "left", Rotation: -15,
		}},
		Stickers: []Sticker{{ID: "s1", Content: "🍕", X: 70, Y: 20, Size: 48, Rotation: 30}},
		Strokes: []Stroke{{
			Points:     []Point{{X: 10, Y: 10}, {X: 20, Y: 25}},
			BrushSize:  8,
			BrushColor: "#FFFFFF",
		}},
	}

	encoded, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, PayloadVersion, out.Version)
	assert.Equal(t, in.Elements, out.Elements)
	assert.Equal(t, in.Stickers, out.Stickers)
	assert.Equal(t, in.Strokes, out.Strokes)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(`{"elements": [truncated`)
	assert.Error(t, err)
}

func TestDecodeUnrecognizedObject(t *testing.T) {
	_, err := Decode(`{"caption":"hello"}`)
	assert.Error(t, err)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	_, err := Decode(`{"version":7,"elements":[]}`)
	assert.Error(t, err)
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, ClampPercent(-5))
	assert.Equal(t, 45.5, ClampPercent(45.5))
	assert.Equal(t, MaxPercent, ClampPercent(101))
}
