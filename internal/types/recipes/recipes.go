package recipes

import "time"

// Recipe is the subset of a recipe record the stories flow needs: enough to
// pick one from the attach sheet and to render the playback summary card.
type Recipe struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Card is the fixed-position summary overlay shown during playback when a
// story links a recipe.
type Card struct {
	RecipeID string `json:"recipe_id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	Category string `json:"category"`
}

func (r Recipe) Card() Card {
	return Card{
		RecipeID: r.ID,
		Title:    r.Title,
		ImageURL: r.ImageURL,
		Category: r.Category,
	}
}
