package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoryActiveBoundary(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Story{ID: "s1", CreatedAt: created, ExpiresAt: created.Add(StoryTTL)}

	assert.True(t, s.Active(created))
	assert.True(t, s.Active(created.Add(StoryTTL-time.Second)))

	// Expiry is exclusive: at exactly expires_at the story is gone.
	assert.False(t, s.Active(created.Add(StoryTTL)))
	assert.False(t, s.Active(created.Add(StoryTTL+time.Second)))
}

func TestFilterActive(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stories := []Story{
		{ID: "fresh", ExpiresAt: now.Add(time.Hour)},
		{ID: "expired", ExpiresAt: now.Add(-time.Minute)},
		{ID: "edge", ExpiresAt: now},
	}

	active := FilterActive(stories, now)
	assert.Len(t, active, 1)
	assert.Equal(t, "fresh", active[0].ID)
}
