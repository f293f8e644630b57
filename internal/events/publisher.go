package events

import (
	"time"

	"github.com/starlow12/recipe/internal/types"
)

// Publisher interface for publishing story events
type Publisher interface {
	PublishStoryPublished(storyID, authorID string, mediaType types.MediaType, followerIDs []string) error
	PublishStoryViewed(storyID, viewerID, authorID string) error
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	BroadcastToUsers(userIDs []string, event *types.Event)
	IsUserConnected(userID string) bool
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishStoryPublished notifies the author's followers that a new story
// landed in their tray.
func (p *EventPublisher) PublishStoryPublished(storyID, authorID string, mediaType types.MediaType, followerIDs []string) error {
	if len(followerIDs) == 0 {
		return nil
	}

	eventData := &types.StoryPublishedEvent{
		StoryID:     storyID,
		AuthorID:    authorID,
		MediaType:   mediaType,
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	}

	event := types.NewEvent(types.EventStoryPublished, eventData)
	p.hub.BroadcastToUsers(followerIDs, event)

	return nil
}

// PublishStoryViewed notifies the author that someone watched their story
func (p *EventPublisher) PublishStoryViewed(storyID, viewerID, authorID string) error {
	// Authors don't get notified about their own views
	if viewerID == authorID {
		return nil
	}

	if !p.hub.IsUserConnected(authorID) {
		return nil
	}

	eventData := &types.StoryViewedEvent{
		StoryID:  storyID,
		ViewerID: viewerID,
		ViewedAt: time.Now().UTC().Format(time.RFC3339),
	}

	event := types.NewEvent(types.EventStoryViewed, eventData)
	p.hub.BroadcastToUser(authorID, event)

	return nil
}
