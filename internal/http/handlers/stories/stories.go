package stories

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/starlow12/recipe/internal/composer"
	"github.com/starlow12/recipe/internal/events"
	"github.com/starlow12/recipe/internal/http/middleware"
	"github.com/starlow12/recipe/internal/overlay"
	"github.com/starlow12/recipe/internal/player"
	"github.com/starlow12/recipe/internal/storage"
	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
	"github.com/starlow12/recipe/internal/utils/response"
)

// Read at most the configured media budget plus a little slack; anything
// bigger fails size validation anyway.
const maxUploadBytes = composer.MaxMediaSize + 1<<20

// ReelItem is one prepared story in the reel response: decoded overlays,
// resolved recipe card and the playback interval the client should use.
type ReelItem struct {
	Story      types.Story     `json:"story"`
	Overlay    overlay.Payload `json:"overlay"`
	Recipe     *recipes.Card   `json:"recipe,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

// PostStory publishes a new story composed on the client
// @Summary Publish a story
// @Description Publish a story from a multipart composition: optional media file, overlay payload, background and linked recipe
// @Tags stories
// @Accept multipart/form-data
// @Produce json
// @Param media formData file false "Story media (image or video)"
// @Param overlay formData string false "Overlay payload JSON"
// @Param background_kind formData string false "Background kind (color or gradient)"
// @Param background_value formData string false "Background value"
// @Param recipe_id formData string false "Linked recipe ID"
// @Success 201 {object} map[string]string "Story created successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /stories [post]
func PostStory(store storage.Storage, uploader composer.Uploader, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid multipart form")))
			return
		}

		c := composer.New(userID, uploader, store)

		if file, header, err := r.FormFile("media"); err == nil {
			data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			file.Close()
			if readErr != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("failed to read media")))
				return
			}
			if err := c.SelectMedia(header.Filename, header.Header.Get("Content-Type"), data); err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
				return
			}
		}

		if raw := r.FormValue("overlay"); raw != "" {
			payload, err := overlay.Decode(raw)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("invalid overlay payload")))
				return
			}
			c.LoadPayload(payload)
		}

		if kind := r.FormValue("background_kind"); kind != "" {
			c.SetBackground(overlay.BackgroundKind(kind), r.FormValue("background_value"))
		}

		if recipeID := r.FormValue("recipe_id"); recipeID != "" {
			recipe, err := store.GetRecipeByID(recipeID)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("linked recipe not found")))
				return
			}
			if recipe.AuthorID != userID {
				response.WriteJSON(w, http.StatusForbidden, response.GeneralError(errors.New("can only link your own recipes")))
				return
			}
			c.SelectRecipe(recipe)
		}

		storyID, err := c.Publish(r.Context())
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, composer.ErrEmptyStory) {
				status = http.StatusBadRequest
			}
			response.WriteJSON(w, status, response.GeneralError(err))
			return
		}
		slog.Info("Story published", slog.String("story_id", storyID), slog.String("author_id", userID))

		if publisher != nil {
			if story, err := store.GetStoryByID(storyID); err == nil {
				followers, _ := store.GetUserFollowers(userID)
				publisher.PublishStoryPublished(storyID, userID, story.MediaType, followers)
			}
		}

		response.WriteJSON(w, http.StatusCreated, map[string]string{"id": storyID})
	}
}

// AuthorReel returns an author's active stories prepared for playback
// @Summary Get an author's story reel
// @Description Get the author's non-expired stories in creation order, with decoded overlays and playback durations
// @Tags stories
// @Produce json
// @Param user_id path string true "Author user ID"
// @Success 200 {object} response.Response "Reel retrieved successfully"
// @Failure 404 {object} response.Response "No active stories"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /stories/{user_id} [get]
func AuthorReel(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorID := r.PathValue("user_id")
		if authorID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("user ID is required")))
			return
		}

		stories, err := store.ListActiveStoriesByAuthor(authorID, time.Now())
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		if len(stories) == 0 {
			response.WriteJSON(w, http.StatusNotFound, response.GeneralError(player.ErrNoActiveStories))
			return
		}

		items := player.Prepare(stories, store)
		reel := make([]ReelItem, len(items))
		for i, item := range items {
			reel[i] = ReelItem{
				Story:      item.Story,
				Overlay:    item.Overlay,
				Recipe:     item.Recipe,
				DurationMS: player.Duration(item.Story).Milliseconds(),
			}
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Reel fetched successfully", reel))
	}
}

// Tray returns active story reels for everyone the user follows
// @Summary Get the story tray
// @Tags stories
// @Security BearerAuth
// @Success 200 {object} response.Response "Tray retrieved successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /feed [get]
func Tray(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		reels, err := store.ListReelsForFollower(userID, time.Now())
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Tray fetched successfully", reels))
	}
}

// ViewStory records a story view
// @Summary Record a story view
// @Description Record that a user has viewed a story (idempotent - one view per user)
// @Tags stories
// @Param id path string true "Story ID"
// @Success 200 {object} response.Response "View recorded successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 404 {object} response.Response "Story not found"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /stories/{id}/view [post]
func ViewStory(store storage.Storage, publisher events.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		storyID := r.PathValue("id")
		if storyID == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("story ID is required")))
			return
		}

		story, err := store.GetStoryByID(storyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.WriteJSON(w, http.StatusNotFound, response.GeneralError(errors.New("story not found")))
				return
			}
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		if err := store.RecordStoryView(storyID, userID); err != nil {
			slog.Error("Failed to record story view", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		if publisher != nil {
			publisher.PublishStoryViewed(storyID, userID, story.AuthorID)
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("View recorded successfully", nil))
	}
}
