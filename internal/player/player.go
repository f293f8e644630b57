package player

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starlow12/recipe/internal/overlay"
	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

// Playback durations. Videos use a fixed proxy interval rather than the
// decoded media length; progress is a pacing indicator, not a frame clock.
const (
	ImageDuration = 5 * time.Second
	VideoDuration = 10 * time.Second
	PollInterval  = 100 * time.Millisecond
)

var ErrNoActiveStories = errors.New("no active stories")

type State string

const (
	StateLoading  State = "loading"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateEmpty    State = "empty"
	StateFinished State = "finished"
)

// Lister fetches an author's non-expired stories in creation order.
type Lister interface {
	ListActiveStoriesByAuthor(authorID string, asOf time.Time) ([]types.Story, error)
}

// RecipeGetter resolves a linked recipe for the playback summary card.
type RecipeGetter interface {
	GetRecipeByID(id string) (recipes.Recipe, error)
}

// Item is one story prepared for playback: decoded overlays and, when the
// story links a recipe, its summary card.
type Item struct {
	Story   types.Story
	Overlay overlay.Payload
	Recipe  *recipes.Card
}

// Options tunes playback. Zero fields fall back to the package defaults;
// OnFinish fires once when the sequence completes.
type Options struct {
	ImageDuration time.Duration
	VideoDuration time.Duration
	Poll          time.Duration
	OnFinish      func()
}

func (o Options) withDefaults() Options {
	if o.ImageDuration <= 0 {
		o.ImageDuration = ImageDuration
	}
	if o.VideoDuration <= 0 {
		o.VideoDuration = VideoDuration
	}
	if o.Poll <= 0 {
		o.Poll = PollInterval
	}
	return o
}

// Player replays one author's active stories with timed auto-advance. Every
// timer callback is tagged with a generation; index changes, pause toggles
// and Close bump the generation so a stale callback can never fire into the
// current item's state.
type Player struct {
	mu    sync.Mutex
	items []Item
	state State
	index int

	progress  float64
	elapsed   time.Duration
	startedAt time.Time

	gen    uint64
	timer  *time.Timer
	closed bool

	opts Options
	now  func() time.Time
}

// Load fetches and prepares an author's reel.
func Load(lister Lister, rg RecipeGetter, authorID string, opts Options) (*Player, error) {
	stories, err := lister.ListActiveStoriesByAuthor(authorID, time.Now())
	if err != nil {
		return nil, err
	}
	return New(Prepare(stories, rg), opts), nil
}

// Prepare turns fetched stories into playback items. A story whose overlay
// payload fails to decode plays with zero overlays; one bad record never
// takes down the sequence.
func Prepare(stories []types.Story, rg RecipeGetter) []Item {
	items := make([]Item, 0, len(stories))
	for _, s := range stories {
		item := Item{Story: s}
		payload, err := overlay.Decode(s.Overlay)
		if err != nil {
			slog.Warn("dropping unreadable overlay payload",
				slog.String("story_id", s.ID), slog.String("error", err.Error()))
			payload = overlay.Payload{Version: overlay.PayloadVersion}
		}
		item.Overlay = payload

		if s.RecipeID != "" && rg != nil {
			if r, err := rg.GetRecipeByID(s.RecipeID); err == nil {
				card := r.Card()
				item.Recipe = &card
			}
		}
		items = append(items, item)
	}
	return items
}

// Duration returns the playback interval for a story.
func Duration(s types.Story) time.Duration {
	if s.MediaType == types.MediaVideo {
		return VideoDuration
	}
	return ImageDuration
}

// New builds a player over prepared items. Playback starts on Start.
func New(items []Item, opts Options) *Player {
	return &Player{
		items: items,
		state: StateLoading,
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

// Start begins playback at index 0. An empty reel lands in the terminal
// Empty state and returns ErrNoActiveStories.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateLoading {
		return nil
	}
	if len(p.items) == 0 {
		p.state = StateEmpty
		return ErrNoActiveStories
	}
	p.state = StatePlaying
	p.index = 0
	p.resetItemLocked()
	p.playLocked()
	return nil
}

// Next advances to the following story, or finishes the sequence at the end.
func (p *Player) Next() {
	p.mu.Lock()
	finish := p.advanceLocked()
	p.mu.Unlock()
	if finish {
		p.finish()
	}
}

// Prev returns to the previous story. No-op at index 0.
func (p *Player) Prev() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if (p.state != StatePlaying && p.state != StatePaused) || p.index == 0 {
		return
	}
	p.stopLocked()
	p.index--
	p.resetItemLocked()
	p.state = StatePlaying
	p.playLocked()
}

// Pause suspends the timers. Progress is frozen, not reset.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return
	}
	p.elapsed += p.now().Sub(p.startedAt)
	p.stopLocked()
	p.state = StatePaused
}

// Resume continues playback from the frozen progress point.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return
	}
	p.state = StatePlaying
	p.playLocked()
}

// TogglePause flips between Playing and Paused.
func (p *Player) TogglePause() {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	switch state {
	case StatePlaying:
		p.Pause()
	case StatePaused:
		p.Resume()
	}
}

// Close tears the player down. No timer fires after Close returns.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.stopLocked()
}

// State returns the current viewer state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the item under playback and its index.
func (p *Player) Current() (Item, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return Item{}, 0
	}
	return p.items[p.index], p.index
}

// Progress returns the current item's elapsed fraction in [0, 1].
func (p *Player) Progress() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress
}

// Segments returns one fill fraction per story: full before the current
// index, partial at it, empty after.
func (p *Player) Segments() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	segs := make([]float64, len(p.items))
	for i := range segs {
		switch {
		case i < p.index || p.state == StateFinished:
			segs[i] = 1
		case i == p.index:
			segs[i] = p.progress
		}
	}
	return segs
}

// advanceLocked moves to the next item; the caller fires OnFinish outside
// the lock when it returns true.
func (p *Player) advanceLocked() bool {
	if p.state != StatePlaying && p.state != StatePaused {
		return false
	}
	p.stopLocked()
	if p.index+1 < len(p.items) {
		p.index++
		p.resetItemLocked()
		p.state = StatePlaying
		p.playLocked()
		return false
	}
	p.progress = 1
	p.state = StateFinished
	return true
}

func (p *Player) finish() {
	if p.opts.OnFinish != nil {
		p.opts.OnFinish()
	}
}

func (p *Player) resetItemLocked() {
	p.progress = 0
	p.elapsed = 0
}

// stopLocked invalidates all scheduled callbacks for the current run.
func (p *Player) stopLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// playLocked schedules the auto-advance timer and the progress poller for
// the remainder of the current item.
func (p *Player) playLocked() {
	if p.closed {
		return
	}
	p.startedAt = p.now()
	gen := p.gen
	duration := p.itemDurationLocked()
	remaining := duration - p.elapsed
	if remaining < 0 {
		remaining = 0
	}

	p.timer = time.AfterFunc(remaining, func() {
		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			return
		}
		finish := p.advanceLocked()
		p.mu.Unlock()
		if finish {
			p.finish()
		}
	})

	go p.pollProgress(gen, duration)
}

// pollProgress updates the progress fraction on a fixed interval instead of
// continuously, bounding how often observers re-render.
func (p *Player) pollProgress(gen uint64, duration time.Duration) {
	ticker := time.NewTicker(p.opts.Poll)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			return
		}
		frac := float64(p.elapsed+p.now().Sub(p.startedAt)) / float64(duration)
		if frac > 1 {
			frac = 1
		}
		p.progress = frac
		p.mu.Unlock()
	}
}

func (p *Player) itemDurationLocked() time.Duration {
	if p.items[p.index].Story.MediaType == types.MediaVideo {
		return p.opts.VideoDuration
	}
	return p.opts.ImageDuration
}
