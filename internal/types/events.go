package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventStoryPublished EventType = "story.published"
	EventStoryViewed    EventType = "story.viewed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// StoryPublishedEvent tells followers a new story landed in their tray
type StoryPublishedEvent struct {
	StoryID     string    `json:"story_id"`
	AuthorID    string    `json:"author_id"`
	MediaType   MediaType `json:"media_type"`
	PublishedAt string    `json:"published_at"`
}

// StoryViewedEvent tells the author that someone watched their story
type StoryViewedEvent struct {
	StoryID  string `json:"story_id"`
	ViewerID string `json:"viewer_id"`
	ViewedAt string `json:"viewed_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
