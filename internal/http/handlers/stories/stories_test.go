package stories

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starlow12/recipe/internal/http/middleware"
	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

type fakeStore struct {
	stories     map[string]types.Story
	reelStories []types.Story
	views       map[string]map[string]bool
	created     []types.Story
	recipe      recipes.Recipe
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stories: make(map[string]types.Story),
		views:   make(map[string]map[string]bool),
	}
}

func (f *fakeStore) CreateStory(authorID, mediaURL string, mediaType types.MediaType, overlayPayload, recipeID string, expiresAt time.Time) (string, error) {
	s := types.Story{
		ID:        "story-1",
		AuthorID:  authorID,
		MediaURL:  mediaURL,
		MediaType: mediaType,
		Overlay:   overlayPayload,
		RecipeID:  recipeID,
		ExpiresAt: expiresAt,
	}
	f.created = append(f.created, s)
	f.stories[s.ID] = s
	return s.ID, nil
}

func (f *fakeStore) ListActiveStoriesByAuthor(authorID string, asOf time.Time) ([]types.Story, error) {
	return f.reelStories, nil
}

func (f *fakeStore) ListReelsForFollower(userID string, asOf time.Time) ([]types.StoryReel, error) {
	return nil, nil
}

func (f *fakeStore) GetStoryByID(storyID string) (types.Story, error) {
	s, ok := f.stories[storyID]
	if !ok {
		return types.Story{}, sql.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) RecordStoryView(storyID, viewerID string) error {
	if f.views[storyID] == nil {
		f.views[storyID] = make(map[string]bool)
	}
	f.views[storyID][viewerID] = true
	return nil
}

func (f *fakeStore) SoftDeleteExpiredStories() (int, error) { return 0, nil }

func (f *fakeStore) CreateUser(username, email, hashedPassword string) (string, error) {
	return "user-1", nil
}

func (f *fakeStore) GetUserByEmail(email string) (string, string, error) {
	return "user-1", "", nil
}

func (f *fakeStore) FollowUser(followerID, followedID string) error   { return nil }
func (f *fakeStore) UnfollowUser(followerID, followedID string) error { return nil }

func (f *fakeStore) GetUserFollowers(userID string) ([]string, error) { return nil, nil }

func (f *fakeStore) ListRecentRecipesByAuthor(authorID string, limit int) ([]recipes.Recipe, error) {
	return []recipes.Recipe{f.recipe}, nil
}

func (f *fakeStore) GetRecipeByID(recipeID string) (recipes.Recipe, error) {
	if f.recipe.ID != recipeID {
		return recipes.Recipe{}, sql.ErrNoRows
	}
	return f.recipe, nil
}

type fakeUploader struct {
	calls int
}

func (f *fakeUploader) UploadStoryMedia(ctx context.Context, authorID, fileName, contentType string, size int64, r io.Reader) (string, error) {
	f.calls++
	return "http://minio.local/stories/story-1.jpg", nil
}

func authedRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "author-1")
	return req.WithContext(ctx)
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestPostStoryTextOnly(t *testing.T) {
	store := newFakeStore()
	up := &fakeUploader{}

	body, contentType := multipartBody(t, map[string]string{
		"overlay":          `{"version":2,"elements":[{"id":"e1","text":"dinner!","x":50,"y":50,"font_size":24}],"stickers":[]}`,
		"background_kind":  "color",
		"background_value": "#22AA55",
	})

	req := authedRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	PostStory(store, up, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	created := store.created[0]
	assert.Equal(t, "author-1", created.AuthorID)
	assert.Zero(t, up.calls)
	assert.Contains(t, created.MediaURL, "data:image/svg+xml")
	assert.Contains(t, created.MediaURL, "#22AA55")
	assert.Contains(t, created.Overlay, "dinner!")

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "story-1", resp["id"])
}

func TestPostStoryEmptyComposition(t *testing.T) {
	store := newFakeStore()

	body, contentType := multipartBody(t, map[string]string{"overlay": ""})
	req := authedRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	PostStory(store, &fakeUploader{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, store.created)
}

func TestPostStoryRejectsForeignRecipe(t *testing.T) {
	store := newFakeStore()
	store.recipe = recipes.Recipe{ID: "7", AuthorID: "someone-else", Title: "Pho"}

	body, contentType := multipartBody(t, map[string]string{"recipe_id": "7"})
	req := authedRequest(http.MethodPost, "/stories", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	PostStory(store, &fakeUploader{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, store.created)
}

func TestAuthorReel(t *testing.T) {
	store := newFakeStore()
	store.reelStories = []types.Story{
		{ID: "s1", AuthorID: "a1", MediaType: types.MediaImage, Overlay: "old caption"},
		{ID: "s2", AuthorID: "a1", MediaType: types.MediaVideo, Overlay: ""},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stories/{user_id}", AuthorReel(store))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories/a1", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Story      types.Story `json:"story"`
			DurationMS int64       `json:"duration_ms"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(5000), resp.Data[0].DurationMS)
	assert.Equal(t, int64(10000), resp.Data[1].DurationMS)
}

func TestAuthorReelEmpty(t *testing.T) {
	store := newFakeStore()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stories/{user_id}", AuthorReel(store))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewStory(t *testing.T) {
	store := newFakeStore()
	store.stories["s1"] = types.Story{ID: "s1", AuthorID: "a1"}

	mux := http.NewServeMux()
	mux.Handle("POST /stories/{id}/view", ViewStory(store, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodPost, "/stories/s1/view", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.views["s1"]["author-1"])
}

func TestViewStoryNotFound(t *testing.T) {
	store := newFakeStore()

	mux := http.NewServeMux()
	mux.Handle("POST /stories/{id}/view", ViewStory(store, nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(http.MethodPost, "/stories/missing/view", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
