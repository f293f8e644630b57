package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/starlow12/recipe/internal/storage"
	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

// CacheService wraps storage with Redis caching. It implements
// storage.Storage so callers don't know whether a read was cached.
type CacheService struct {
	storage storage.Storage
	redis   *redis.Client
}

func NewCacheService(storage storage.Storage, redisClient *redis.Client) *CacheService {
	return &CacheService{
		storage: storage,
		redis:   redisClient,
	}
}

// Cache key patterns
const (
	ReelKey          = "reel:author:%s"    // reel:author:authorID
	TrayKey          = "tray:user:%s"      // tray:user:userID
	RecipeKey        = "recipe:%s"         // recipe:recipeID
	RecentRecipesKey = "recipes:recent:%s" // recipes:recent:authorID
)

// Cache durations. Reels and trays stay hot only briefly so a new story
// shows up quickly even if an invalidation is missed.
const (
	ReelCacheDuration          = 30 * time.Second
	TrayCacheDuration          = 45 * time.Second
	RecipeCacheDuration        = 10 * time.Minute
	RecentRecipesCacheDuration = 2 * time.Minute
)

// ListActiveStoriesByAuthor serves the player's reel from cache when it can.
// Cached reels are re-filtered against asOf since entries may have expired
// after being cached.
func (c *CacheService) ListActiveStoriesByAuthor(authorID string, asOf time.Time) ([]types.Story, error) {
	ctx := context.Background()
	key := fmt.Sprintf(ReelKey, authorID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var stories []types.Story
		if err := json.Unmarshal([]byte(cached), &stories); err == nil {
			return types.FilterActive(stories, asOf), nil
		}
	}

	stories, err := c.storage.ListActiveStoriesByAuthor(authorID, asOf)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(stories)
	c.redis.Set(ctx, key, data, ReelCacheDuration)

	return stories, nil
}

// ListReelsForFollower serves the story tray from cache when it can, with
// the same expiry re-filter as the reel path.
func (c *CacheService) ListReelsForFollower(userID string, asOf time.Time) ([]types.StoryReel, error) {
	ctx := context.Background()
	key := fmt.Sprintf(TrayKey, userID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var reels []types.StoryReel
		if err := json.Unmarshal([]byte(cached), &reels); err == nil {
			return filterReels(reels, asOf), nil
		}
	}

	reels, err := c.storage.ListReelsForFollower(userID, asOf)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(reels)
	c.redis.Set(ctx, key, data, TrayCacheDuration)

	return reels, nil
}

func filterReels(reels []types.StoryReel, asOf time.Time) []types.StoryReel {
	out := make([]types.StoryReel, 0, len(reels))
	for _, reel := range reels {
		reel.Stories = types.FilterActive(reel.Stories, asOf)
		if len(reel.Stories) > 0 {
			out = append(out, reel)
		}
	}
	return out
}

// CreateStory writes through and invalidates the author's reel plus the
// trays of everyone following them.
func (c *CacheService) CreateStory(authorID, mediaURL string, mediaType types.MediaType, overlayPayload, recipeID string, expiresAt time.Time) (string, error) {
	storyID, err := c.storage.CreateStory(authorID, mediaURL, mediaType, overlayPayload, recipeID, expiresAt)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	c.redis.Del(ctx, fmt.Sprintf(ReelKey, authorID))

	followers, _ := c.storage.GetUserFollowers(authorID)
	c.invalidateTrays(ctx, followers)

	return storyID, nil
}

func (c *CacheService) invalidateTrays(ctx context.Context, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, userID := range userIDs {
		keys[i] = fmt.Sprintf(TrayKey, userID)
	}
	c.redis.Del(ctx, keys...)
}

// GetRecipeByID caches individual recipes; they change rarely and the
// player resolves one per linked story.
func (c *CacheService) GetRecipeByID(recipeID string) (recipes.Recipe, error) {
	ctx := context.Background()
	key := fmt.Sprintf(RecipeKey, recipeID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var r recipes.Recipe
		if err := json.Unmarshal([]byte(cached), &r); err == nil {
			return r, nil
		}
	}

	r, err := c.storage.GetRecipeByID(recipeID)
	if err != nil {
		return r, err
	}

	data, _ := json.Marshal(r)
	c.redis.Set(ctx, key, data, RecipeCacheDuration)

	return r, nil
}

// ListRecentRecipesByAuthor caches the attach sheet's recipe list.
func (c *CacheService) ListRecentRecipesByAuthor(authorID string, limit int) ([]recipes.Recipe, error) {
	ctx := context.Background()
	key := fmt.Sprintf(RecentRecipesKey, authorID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var list []recipes.Recipe
		if err := json.Unmarshal([]byte(cached), &list); err == nil {
			if len(list) > limit {
				list = list[:limit]
			}
			return list, nil
		}
	}

	list, err := c.storage.ListRecentRecipesByAuthor(authorID, limit)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(list)
	c.redis.Set(ctx, key, data, RecentRecipesCacheDuration)

	return list, nil
}

// FollowUser invalidates the follower's tray since its contents change.
func (c *CacheService) FollowUser(followerID, followedID string) error {
	if err := c.storage.FollowUser(followerID, followedID); err != nil {
		return err
	}
	c.redis.Del(context.Background(), fmt.Sprintf(TrayKey, followerID))
	return nil
}

func (c *CacheService) UnfollowUser(followerID, followedID string) error {
	if err := c.storage.UnfollowUser(followerID, followedID); err != nil {
		return err
	}
	c.redis.Del(context.Background(), fmt.Sprintf(TrayKey, followerID))
	return nil
}

// Pass-throughs for the rest of the storage.Storage surface.

func (c *CacheService) GetStoryByID(storyID string) (types.Story, error) {
	return c.storage.GetStoryByID(storyID)
}

func (c *CacheService) RecordStoryView(storyID, viewerID string) error {
	return c.storage.RecordStoryView(storyID, viewerID)
}

func (c *CacheService) SoftDeleteExpiredStories() (int, error) {
	return c.storage.SoftDeleteExpiredStories()
}

func (c *CacheService) CreateUser(username, email, hashedPassword string) (string, error) {
	return c.storage.CreateUser(username, email, hashedPassword)
}

func (c *CacheService) GetUserByEmail(email string) (string, string, error) {
	return c.storage.GetUserByEmail(email)
}

func (c *CacheService) GetUserFollowers(userID string) ([]string, error) {
	return c.storage.GetUserFollowers(userID)
}
