package storage

import (
	"time"

	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

type Storage interface {
	// Stories
	CreateStory(authorID, mediaURL string, mediaType types.MediaType, overlayPayload, recipeID string, expiresAt time.Time) (string, error)
	ListActiveStoriesByAuthor(authorID string, asOf time.Time) ([]types.Story, error)
	ListReelsForFollower(userID string, asOf time.Time) ([]types.StoryReel, error)
	GetStoryByID(storyID string) (types.Story, error)
	RecordStoryView(storyID, viewerID string) error
	SoftDeleteExpiredStories() (int, error)

	// Users & follows
	CreateUser(username, email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (string, string, error)
	FollowUser(followerID, followedID string) error
	UnfollowUser(followerID, followedID string) error
	GetUserFollowers(userID string) ([]string, error)

	// Recipes (read-only, for the attach flow and playback card)
	ListRecentRecipesByAuthor(authorID string, limit int) ([]recipes.Recipe, error)
	GetRecipeByID(recipeID string) (recipes.Recipe, error)
}
