package player

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

type fakeRecipes struct {
	byID map[string]recipes.Recipe
}

func (f *fakeRecipes) GetRecipeByID(id string) (recipes.Recipe, error) {
	r, ok := f.byID[id]
	if !ok {
		return recipes.Recipe{}, errors.New("not found")
	}
	return r, nil
}

func testStory(id string, mt types.MediaType, overlayRaw string) types.Story {
	return types.Story{
		ID:        id,
		AuthorID:  "author-1",
		MediaURL:  "http://minio.local/stories/" + id + ".jpg",
		MediaType: mt,
		Overlay:   overlayRaw,
	}
}

func shortOpts(onFinish func()) Options {
	return Options{
		ImageDuration: 40 * time.Millisecond,
		VideoDuration: 80 * time.Millisecond,
		Poll:          5 * time.Millisecond,
		OnFinish:      onFinish,
	}
}

func TestStartEmptyReel(t *testing.T) {
	p := New(nil, Options{})

	err := p.Start()
	assert.ErrorIs(t, err, ErrNoActiveStories)
	assert.Equal(t, StateEmpty, p.State())
}

func TestAutoAdvanceThroughSequence(t *testing.T) {
	finished := make(chan struct{})
	items := Prepare([]types.Story{
		testStory("s1", types.MediaImage, ""),
		testStory("s2", types.MediaVideo, ""),
	}, nil)

	p := New(items, shortOpts(func() { close(finished) }))
	defer p.Close()

	require.NoError(t, p.Start())
	assert.Equal(t, StatePlaying, p.State())
	_, idx := p.Current()
	assert.Equal(t, 0, idx)

	// Image plays for its interval, then the video, then the sequence
	// finishes.
	require.Eventually(t, func() bool {
		_, idx := p.Current()
		return idx == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("sequence never finished")
	}
	assert.Equal(t, StateFinished, p.State())

	for _, seg := range p.Segments() {
		assert.Equal(t, 1.0, seg)
	}
}

func TestManualNavigation(t *testing.T) {
	finishCount := 0
	items := Prepare([]types.Story{
		testStory("s1", types.MediaImage, ""),
		testStory("s2", types.MediaImage, ""),
	}, nil)

	p := New(items, Options{
		ImageDuration: time.Hour,
		OnFinish:      func() { finishCount++ },
	})
	defer p.Close()

	require.NoError(t, p.Start())

	// Prev at index 0 is a no-op.
	p.Prev()
	_, idx := p.Current()
	assert.Equal(t, 0, idx)

	p.Next()
	_, idx = p.Current()
	assert.Equal(t, 1, idx)

	p.Prev()
	_, idx = p.Current()
	assert.Equal(t, 0, idx)

	p.Next()
	p.Next()
	assert.Equal(t, StateFinished, p.State())
	assert.Equal(t, 1, finishCount)

	// Navigation after finish is inert.
	p.Next()
	assert.Equal(t, 1, finishCount)
}

func TestPauseFreezesProgress(t *testing.T) {
	items := Prepare([]types.Story{testStory("s1", types.MediaImage, "")}, nil)

	p := New(items, Options{ImageDuration: time.Hour, Poll: 5 * time.Millisecond})
	defer p.Close()

	require.NoError(t, p.Start())
	time.Sleep(30 * time.Millisecond)

	p.Pause()
	assert.Equal(t, StatePaused, p.State())

	frozen := p.Progress()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, frozen, p.Progress())

	p.Resume()
	assert.Equal(t, StatePlaying, p.State())

	p.TogglePause()
	assert.Equal(t, StatePaused, p.State())
	p.TogglePause()
	assert.Equal(t, StatePlaying, p.State())
}

func TestCloseStopsScheduledAdvance(t *testing.T) {
	finished := make(chan struct{})
	items := Prepare([]types.Story{testStory("s1", types.MediaImage, "")}, nil)

	p := New(items, shortOpts(func() { close(finished) }))
	require.NoError(t, p.Start())
	p.Close()

	select {
	case <-finished:
		t.Fatal("timer fired after Close")
	case <-time.After(150 * time.Millisecond):
	}

	_, idx := p.Current()
	assert.Equal(t, 0, idx)
}

func TestPrevInvalidatesPendingTimer(t *testing.T) {
	items := Prepare([]types.Story{
		testStory("s1", types.MediaImage, ""),
		testStory("s2", types.MediaImage, ""),
	}, nil)

	p := New(items, Options{ImageDuration: 50 * time.Millisecond, Poll: 5 * time.Millisecond})
	defer p.Close()

	require.NoError(t, p.Start())
	p.Next()

	// Going back restarts the first story's timer from zero; the advance
	// scheduled before Prev must not skip ahead.
	p.Prev()
	time.Sleep(20 * time.Millisecond)
	_, idx := p.Current()
	assert.Equal(t, 0, idx)
}

func TestPrepareIsolatesBadPayload(t *testing.T) {
	stories := []types.Story{
		testStory("s1", types.MediaImage, "plain caption"),
		testStory("s2", types.MediaImage, `{"elements": [broken`),
		testStory("s3", types.MediaImage, `{"version":2,"elements":[{"id":"e","text":"ok","x":10,"y":10,"font_size":24}],"stickers":[]}`),
	}

	items := Prepare(stories, nil)
	require.Len(t, items, 3)

	assert.Len(t, items[0].Overlay.Elements, 1)
	assert.True(t, items[1].Overlay.IsEmpty())
	assert.Len(t, items[2].Overlay.Elements, 1)
}

func TestPrepareResolvesRecipeCards(t *testing.T) {
	rg := &fakeRecipes{byID: map[string]recipes.Recipe{
		"7": {ID: "7", AuthorID: "author-1", Title: "Pho", ImageURL: "http://img/pho.jpg"},
	}}

	linked := testStory("s1", types.MediaImage, "")
	linked.RecipeID = "7"
	missing := testStory("s2", types.MediaImage, "")
	missing.RecipeID = "404"

	items := Prepare([]types.Story{linked, missing}, rg)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].Recipe)
	assert.Equal(t, "Pho", items[0].Recipe.Title)
	assert.Nil(t, items[1].Recipe)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, ImageDuration, Duration(testStory("s1", types.MediaImage, "")))
	assert.Equal(t, VideoDuration, Duration(testStory("s2", types.MediaVideo, "")))
}
