package types

import "time"

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// StoryTTL is how long a story stays visible after creation. The expiry is
// fixed at creation time and never recomputed.
const StoryTTL = 24 * time.Hour

type Story struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	MediaURL   string    `json:"media_url"`
	MediaType  MediaType `json:"media_type"`
	Overlay    string    `json:"text_overlay"`
	RecipeID   string    `json:"recipe_id,omitempty"`
	ViewsCount int       `json:"views_count"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Active reports whether the story is still eligible for playback.
func (s Story) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// FilterActive drops expired stories from a fetched list. Storage queries
// already filter on expires_at, but cached reels can hold entries that
// expired after they were cached, so read paths re-apply the filter.
func FilterActive(stories []Story, now time.Time) []Story {
	active := make([]Story, 0, len(stories))
	for _, s := range stories {
		if s.Active(now) {
			active = append(active, s)
		}
	}
	return active
}

// StoryReel is one author's active stories in playback order, as served to
// the story tray.
type StoryReel struct {
	AuthorID string  `json:"author_id"`
	Username string  `json:"username"`
	Stories  []Story `json:"stories"`
}
