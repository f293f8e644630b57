package composer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/starlow12/recipe/internal/overlay"
	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

// Size limits for selected media. Videos get a tighter budget than images.
const (
	MaxMediaSize = 50 * 1024 * 1024
	MaxVideoSize = 10 * 1024 * 1024
)

var (
	ErrEmptyStory      = errors.New("story needs media, text or a linked recipe")
	ErrMediaType       = errors.New("media must be an image or a video")
	ErrMediaTooLarge   = fmt.Errorf("media must be smaller than %dMB", MaxMediaSize/(1024*1024))
	ErrVideoTooLarge   = fmt.Errorf("videos must be smaller than %dMB", MaxVideoSize/(1024*1024))
	ErrPublishInFlight = errors.New("a publish is already in progress")
)

// Uploader pushes story media to object storage and returns a public URL.
type Uploader interface {
	UploadStoryMedia(ctx context.Context, authorID, fileName, contentType string, size int64, r io.Reader) (string, error)
}

// Creator persists the finished composition.
type Creator interface {
	CreateStory(authorID, mediaURL string, mediaType types.MediaType, overlayPayload, recipeID string, expiresAt time.Time) (string, error)
}

type elementKind int

const (
	kindText elementKind = iota
	kindSticker
)

// dragState lives only between a pointer-down on an element and the matching
// pointer-up; EndDrag clears it unconditionally.
type dragState struct {
	id   string
	kind elementKind
	// Grab-point offset from the element anchor, in percent, so moves
	// preserve where the user grabbed rather than snapping the anchor to
	// the pointer.
	offsetX float64
	offsetY float64
	canvasW float64
	canvasH float64
}

type media struct {
	fileName    string
	contentType string
	size        int64
	data        []byte
	mediaType   types.MediaType
	preview     string
}

// Composer accumulates one story composition in memory until Publish hands
// it to the collaborators. It is safe for a single authoring session; the
// publish guard is the only concurrent entry point.
type Composer struct {
	authorID string
	uploader Uploader
	creator  Creator

	media      *media
	background overlay.Background
	elements   []overlay.TextElement
	stickers   []overlay.Sticker
	strokes    []overlay.Stroke
	recipe     *recipes.Recipe

	brushSize  int
	brushColor string

	selectedID string
	drag       *dragState

	mu         sync.Mutex
	publishing bool

	now  func() time.Time
	rand *rand.Rand
}

func New(authorID string, uploader Uploader, creator Creator) *Composer {
	return &Composer{
		authorID:   authorID,
		uploader:   uploader,
		creator:    creator,
		background: overlay.Background{Kind: overlay.BackgroundColor, Value: "#FF6B35"},
		brushSize:  8,
		brushColor: "#FFFFFF",
		now:        time.Now,
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectMedia validates and stages an image or video file, producing an
// inline data-URL preview without touching the network. Rejection leaves
// prior state untouched.
func (c *Composer) SelectMedia(fileName, contentType string, data []byte) error {
	var mt types.MediaType
	switch {
	case strings.HasPrefix(contentType, "image/"):
		mt = types.MediaImage
	case strings.HasPrefix(contentType, "video/"):
		mt = types.MediaVideo
	default:
		return ErrMediaType
	}

	size := int64(len(data))
	if size > MaxMediaSize {
		return ErrMediaTooLarge
	}
	if mt == types.MediaVideo && size > MaxVideoSize {
		return ErrVideoTooLarge
	}

	c.media = &media{
		fileName:    fileName,
		contentType: contentType,
		size:        size,
		data:        data,
		mediaType:   mt,
		preview:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
	return nil
}

// ClearMedia resets the staged media. Overlay elements are unaffected.
func (c *Composer) ClearMedia() {
	c.media = nil
}

// MediaPreview returns the staged preview, or "" when no media is selected.
func (c *Composer) MediaPreview() string {
	if c.media == nil {
		return ""
	}
	return c.media.preview
}

// AddTextElement creates a text element from a draft string and selects it.
// Empty or whitespace drafts are a no-op.
func (c *Composer) AddTextElement(draft string) *overlay.TextElement {
	text := strings.TrimSpace(draft)
	if text == "" {
		return nil
	}
	if len(text) > overlay.MaxTextLen {
		text = text[:overlay.MaxTextLen]
	}

	el := overlay.TextElement{
		ID:         newElementID(),
		Text:       text,
		X:          50,
		Y:          50,
		FontSize:   overlay.DefaultFontSize,
		Color:      overlay.DefaultTextColor,
		FontFamily: overlay.DefaultFontFamily,
		Alignment:  "center",
	}
	c.elements = append(c.elements, el)
	c.selectedID = el.ID
	return &c.elements[len(c.elements)-1]
}

// TextUpdate carries the style-panel fields that can change on a selected
// element. Nil fields are left as they are.
type TextUpdate struct {
	Text       *string
	X, Y       *float64
	FontSize   *int
	Color      *string
	FontFamily *string
	Bold       *bool
	Italic     *bool
	Alignment  *string
	Rotation   *float64
}

// UpdateTextElement merges an update into the matching element. Unknown IDs
// are ignored.
func (c *Composer) UpdateTextElement(id string, upd TextUpdate) {
	el := c.findElement(id)
	if el == nil {
		return
	}
	if upd.Text != nil {
		if text := strings.TrimSpace(*upd.Text); text != "" {
			if len(text) > overlay.MaxTextLen {
				text = text[:overlay.MaxTextLen]
			}
			el.Text = text
		}
	}
	if upd.X != nil {
		el.X = overlay.ClampPercent(*upd.X)
	}
	if upd.Y != nil {
		el.Y = overlay.ClampPercent(*upd.Y)
	}
	if upd.FontSize != nil {
		el.FontSize = overlay.ClampFontSize(*upd.FontSize)
	}
	if upd.Color != nil {
		el.Color = *upd.Color
	}
	if upd.FontFamily != nil {
		el.FontFamily = *upd.FontFamily
	}
	if upd.Bold != nil {
		el.Bold = *upd.Bold
	}
	if upd.Italic != nil {
		el.Italic = *upd.Italic
	}
	if upd.Alignment != nil {
		el.Alignment = *upd.Alignment
	}
	if upd.Rotation != nil {
		el.Rotation = overlay.ClampRotation(*upd.Rotation)
	}
}

// DeleteTextElement removes an element and clears the selection if it was
// the selected one.
func (c *Composer) DeleteTextElement(id string) {
	for i := range c.elements {
		if c.elements[i].ID == id {
			c.elements = append(c.elements[:i], c.elements[i+1:]...)
			if c.selectedID == id {
				c.selectedID = ""
			}
			return
		}
	}
}

// AddSticker places a glyph at a randomized position within the central
// region of the canvas, away from the edges.
func (c *Composer) AddSticker(glyph string) *overlay.Sticker {
	if glyph == "" {
		return nil
	}
	st := overlay.Sticker{
		ID:      newElementID(),
		Content: glyph,
		X:       30 + c.rand.Float64()*40,
		Y:       30 + c.rand.Float64()*40,
		Size:    overlay.DefaultStickerSize,
	}
	c.stickers = append(c.stickers, st)
	return &c.stickers[len(c.stickers)-1]
}

// DeleteSticker removes a sticker by ID. Sticker deletion is not coupled to
// selection; the UI triggers it with a distinct gesture.
func (c *Composer) DeleteSticker(id string) {
	for i := range c.stickers {
		if c.stickers[i].ID == id {
			c.stickers = append(c.stickers[:i], c.stickers[i+1:]...)
			return
		}
	}
}

// Select marks an element or sticker as the target of style mutations.
func (c *Composer) Select(id string) {
	c.selectedID = id
}

// Selected returns the ID of the currently selected element, if any.
func (c *Composer) Selected() string {
	return c.selectedID
}

// BeginDrag records the pointer-to-anchor offset for an element so that
// subsequent moves keep the grab point under the pointer.
func (c *Composer) BeginDrag(id string, pointerX, pointerY, canvasW, canvasH float64) {
	if canvasW <= 0 || canvasH <= 0 {
		return
	}
	px := pointerX / canvasW * 100
	py := pointerY / canvasH * 100

	if el := c.findElement(id); el != nil {
		c.drag = &dragState{id: id, kind: kindText, offsetX: px - el.X, offsetY: py - el.Y, canvasW: canvasW, canvasH: canvasH}
		c.selectedID = id
		return
	}
	if st := c.findSticker(id); st != nil {
		c.drag = &dragState{id: id, kind: kindSticker, offsetX: px - st.X, offsetY: py - st.Y, canvasW: canvasW, canvasH: canvasH}
	}
}

// OnDrag recomputes the dragged element's position from the current pointer
// location. The position is derived purely from the pointer and the stored
// offset, so repeating the same event is idempotent.
func (c *Composer) OnDrag(pointerX, pointerY float64) {
	if c.drag == nil {
		return
	}
	x := overlay.ClampPercent(pointerX/c.drag.canvasW*100 - c.drag.offsetX)
	y := overlay.ClampPercent(pointerY/c.drag.canvasH*100 - c.drag.offsetY)

	switch c.drag.kind {
	case kindText:
		if el := c.findElement(c.drag.id); el != nil {
			el.X, el.Y = x, y
		}
	case kindSticker:
		if st := c.findSticker(c.drag.id); st != nil {
			st.X, st.Y = x, y
		}
	}
}

// EndDrag clears the drag state. Called on pointer-up and pointer-leave.
func (c *Composer) EndDrag() {
	c.drag = nil
}

// SetBackground sets the fallback layer beneath media. Staged media is not
// cleared; the background only shows when no media is selected.
func (c *Composer) SetBackground(kind overlay.BackgroundKind, value string) {
	if kind != overlay.BackgroundColor && kind != overlay.BackgroundGradient {
		return
	}
	c.background = overlay.Background{Kind: kind, Value: value}
}

// SetBrush adjusts the drawing-layer brush for subsequent strokes.
func (c *Composer) SetBrush(size int, color string) {
	if size > 0 {
		c.brushSize = size
	}
	if color != "" {
		c.brushColor = color
	}
}

// DrawStroke appends a freehand stroke using the current brush. Strokes with
// fewer than two points are ignored.
func (c *Composer) DrawStroke(points []overlay.Point) {
	if len(points) < 2 {
		return
	}
	clamped := make([]overlay.Point, len(points))
	for i, pt := range points {
		clamped[i] = overlay.Point{X: overlay.ClampPercent(pt.X), Y: overlay.ClampPercent(pt.Y)}
	}
	c.strokes = append(c.strokes, overlay.Stroke{
		Points:     clamped,
		BrushSize:  c.brushSize,
		BrushColor: c.brushColor,
	})
}

// UndoStroke removes the most recent stroke.
func (c *Composer) UndoStroke() {
	if len(c.strokes) > 0 {
		c.strokes = c.strokes[:len(c.strokes)-1]
	}
}

// ClearDrawing wipes the drawing layer.
func (c *Composer) ClearDrawing() {
	c.strokes = nil
}

// LoadPayload restores a composed overlay state, e.g. a draft composed on
// the client. Positions and styles are clamped into valid ranges.
func (c *Composer) LoadPayload(p overlay.Payload) {
	encoded, err := overlay.Encode(p)
	if err != nil {
		return
	}
	normalized, err := overlay.Decode(encoded)
	if err != nil {
		return
	}
	c.elements = normalized.Elements
	c.stickers = normalized.Stickers
	c.strokes = normalized.Strokes
	c.selectedID = ""
	c.drag = nil
}

// SelectRecipe attaches a recipe to the composition.
func (c *Composer) SelectRecipe(r recipes.Recipe) {
	c.recipe = &r
}

// RemoveRecipe detaches the linked recipe.
func (c *Composer) RemoveRecipe() {
	c.recipe = nil
}

// Elements returns the current text elements.
func (c *Composer) Elements() []overlay.TextElement {
	return c.elements
}

// Stickers returns the current stickers.
func (c *Composer) Stickers() []overlay.Sticker {
	return c.stickers
}

// Strokes returns the drawing layer.
func (c *Composer) Strokes() []overlay.Stroke {
	return c.strokes
}

// Publish uploads staged media, encodes the overlay collections and creates
// the story record. Validation failures and collaborator errors leave the
// composition intact so the user can retry; only one publish may be in
// flight at a time.
func (c *Composer) Publish(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.publishing {
		c.mu.Unlock()
		return "", ErrPublishInFlight
	}
	c.publishing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.publishing = false
		c.mu.Unlock()
	}()

	payload := overlay.Payload{
		Elements: c.elements,
		Stickers: c.stickers,
		Strokes:  c.strokes,
	}
	if c.media == nil && payload.IsEmpty() && c.recipe == nil {
		return "", ErrEmptyStory
	}

	mediaURL := placeholderMediaURL(c.background)
	mediaType := types.MediaImage
	if c.media != nil {
		url, err := c.uploader.UploadStoryMedia(ctx, c.authorID, c.media.fileName, c.media.contentType,
			c.media.size, bytes.NewReader(c.media.data))
		if err != nil {
			return "", fmt.Errorf("upload story media: %w", err)
		}
		mediaURL = url
		mediaType = c.media.mediaType
	}

	encoded, err := overlay.Encode(payload)
	if err != nil {
		return "", err
	}

	recipeID := ""
	if c.recipe != nil {
		recipeID = c.recipe.ID
	}

	expiresAt := c.now().Add(types.StoryTTL)
	storyID, err := c.creator.CreateStory(c.authorID, mediaURL, mediaType, encoded, recipeID, expiresAt)
	if err != nil {
		return "", fmt.Errorf("create story: %w", err)
	}
	return storyID, nil
}

// placeholderMediaURL renders the background layer as an inline SVG for
// stories published without media.
func placeholderMediaURL(bg overlay.Background) string {
	color := bg.Value
	if color == "" || bg.Kind == overlay.BackgroundMedia {
		color = "#FF6B35"
	}
	return fmt.Sprintf(`data:image/svg+xml,<svg xmlns="http://www.w3.org/2000/svg" width="360" height="640"><rect width="360" height="640" fill="%s"/></svg>`, color)
}

func (c *Composer) findElement(id string) *overlay.TextElement {
	for i := range c.elements {
		if c.elements[i].ID == id {
			return &c.elements[i]
		}
	}
	return nil
}

func (c *Composer) findSticker(id string) *overlay.Sticker {
	for i := range c.stickers {
		if c.stickers[i].ID == id {
			return &c.stickers[i]
		}
	}
	return nil
}

func newElementID() string {
	return uuid.New().String()
}
