package recipes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starlow12/recipe/internal/http/middleware"
	"github.com/starlow12/recipe/internal/storage"
	"github.com/starlow12/recipe/internal/types/recipes"
	"github.com/starlow12/recipe/internal/utils/response"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// RecentRecipes lists the caller's recent recipes for the attach sheet
// @Summary List recent recipes
// @Description List the authenticated user's most recent recipes, newest first, for linking to a story
// @Tags recipes
// @Produce json
// @Param limit query int false "Maximum number of recipes (default 20, max 50)"
// @Success 200 {object} response.Response "Recipes retrieved successfully"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /recipes/recent [get]
func RecentRecipes(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > maxLimit {
			limit = maxLimit
		}

		list, err := store.ListRecentRecipesByAuthor(userID, limit)
		if err != nil {
			slog.Error("Failed to list recent recipes", slog.String("error", err.Error()), slog.String("user_id", userID))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to list recipes")))
			return
		}

		cards := make([]recipes.Card, len(list))
		for i, recipe := range list {
			cards[i] = recipe.Card()
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Recipes fetched successfully", cards))
	}
}
