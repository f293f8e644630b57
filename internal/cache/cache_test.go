package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

// fakeStorage counts hits so tests can tell cache serves from Redis.
type fakeStorage struct {
	listCalls   int
	trayCalls   int
	recipeCalls int

	stories   []types.Story
	reels     []types.StoryReel
	followers []string
	recipe    recipes.Recipe
}

func (f *fakeStorage) CreateStory(authorID, mediaURL string, mediaType types.MediaType, overlayPayload, recipeID string, expiresAt time.Time) (string, error) {
	return "story-1", nil
}

func (f *fakeStorage) ListActiveStoriesByAuthor(authorID string, asOf time.Time) ([]types.Story, error) {
	f.listCalls++
	return types.FilterActive(f.stories, asOf), nil
}

func (f *fakeStorage) ListReelsForFollower(userID string, asOf time.Time) ([]types.StoryReel, error) {
	f.trayCalls++
	return f.reels, nil
}

func (f *fakeStorage) GetStoryByID(storyID string) (types.Story, error) {
	return types.Story{ID: storyID}, nil
}

func (f *fakeStorage) RecordStoryView(storyID, viewerID string) error { return nil }

func (f *fakeStorage) SoftDeleteExpiredStories() (int, error) { return 0, nil }

func (f *fakeStorage) CreateUser(username, email, hashedPassword string) (string, error) {
	return "user-1", nil
}

func (f *fakeStorage) GetUserByEmail(email string) (string, string, error) {
	return "user-1", "", nil
}

func (f *fakeStorage) FollowUser(followerID, followedID string) error   { return nil }
func (f *fakeStorage) UnfollowUser(followerID, followedID string) error { return nil }

func (f *fakeStorage) GetUserFollowers(userID string) ([]string, error) {
	return f.followers, nil
}

func (f *fakeStorage) ListRecentRecipesByAuthor(authorID string, limit int) ([]recipes.Recipe, error) {
	f.recipeCalls++
	list := []recipes.Recipe{f.recipe}
	if limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeStorage) GetRecipeByID(recipeID string) (recipes.Recipe, error) {
	f.recipeCalls++
	return f.recipe, nil
}

func setupCache(t *testing.T, fs *fakeStorage) (*CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheService(fs, client), mr
}

func TestReelCacheHit(t *testing.T) {
	now := time.Now()
	fs := &fakeStorage{stories: []types.Story{
		{ID: "s1", AuthorID: "a1", ExpiresAt: now.Add(time.Hour)},
	}}
	c, _ := setupCache(t, fs)

	first, err := c.ListActiveStoriesByAuthor("a1", now)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, fs.listCalls)

	second, err := c.ListActiveStoriesByAuthor("a1", now)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, fs.listCalls)
}

func TestReelCacheRefiltersExpired(t *testing.T) {
	now := time.Now()
	fs := &fakeStorage{stories: []types.Story{
		{ID: "old", AuthorID: "a1", ExpiresAt: now.Add(time.Minute)},
		{ID: "new", AuthorID: "a1", ExpiresAt: now.Add(time.Hour)},
	}}
	c, _ := setupCache(t, fs)

	first, err := c.ListActiveStoriesByAuthor("a1", now)
	require.NoError(t, err)
	require.Len(t, first, 2)

	// The cached reel still holds both stories, but one expires before the
	// second read. The cache must not serve it.
	later, err := c.ListActiveStoriesByAuthor("a1", now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "new", later[0].ID)
	assert.Equal(t, 1, fs.listCalls)
}

func TestCreateStoryInvalidatesReelAndTrays(t *testing.T) {
	now := time.Now()
	fs := &fakeStorage{
		stories:   []types.Story{{ID: "s1", AuthorID: "a1", ExpiresAt: now.Add(time.Hour)}},
		followers: []string{"f1", "f2"},
	}
	c, mr := setupCache(t, fs)

	_, err := c.ListActiveStoriesByAuthor("a1", now)
	require.NoError(t, err)
	_, err = c.ListReelsForFollower("f1", now)
	require.NoError(t, err)
	require.True(t, mr.Exists("reel:author:a1"))
	require.True(t, mr.Exists("tray:user:f1"))

	_, err = c.CreateStory("a1", "http://m/1.jpg", types.MediaImage, "", "", now.Add(types.StoryTTL))
	require.NoError(t, err)

	assert.False(t, mr.Exists("reel:author:a1"))
	assert.False(t, mr.Exists("tray:user:f1"))
}

func TestFollowInvalidatesTray(t *testing.T) {
	now := time.Now()
	fs := &fakeStorage{}
	c, mr := setupCache(t, fs)

	_, err := c.ListReelsForFollower("f1", now)
	require.NoError(t, err)
	require.True(t, mr.Exists("tray:user:f1"))

	require.NoError(t, c.FollowUser("f1", "a1"))
	assert.False(t, mr.Exists("tray:user:f1"))
}

func TestRecentRecipesCacheTruncates(t *testing.T) {
	fs := &fakeStorage{recipe: recipes.Recipe{ID: "r1", AuthorID: "a1", Title: "Ramen"}}
	c, _ := setupCache(t, fs)

	list, err := c.ListRecentRecipesByAuthor("a1", 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, fs.recipeCalls)

	// A smaller limit is served from the cached list.
	list, err = c.ListRecentRecipesByAuthor("a1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, fs.recipeCalls)
}
