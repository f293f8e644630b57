package postgres

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/starlow12/recipe/internal/config"
	"github.com/starlow12/recipe/internal/types"
	"github.com/starlow12/recipe/internal/types/recipes"
)

type Postgres struct {
	Db *sql.DB
}

func NewPostgres(cfg *config.Config) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.PGSQL.Host, cfg.PGSQL.Port, cfg.PGSQL.User, cfg.PGSQL.Password, cfg.PGSQL.DBName, cfg.PGSQL.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	pg := &Postgres{Db: db}
	if err := pg.CreateTables(); err != nil {
		log.Fatal("Failed to create tables:", err)
	}

	return pg, nil
}

func (p *Postgres) CreateTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(30) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password TEXT NOT NULL,
			avatar_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS recipes (
			id SERIAL PRIMARY KEY,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(255) NOT NULL,
			image_url TEXT,
			category VARCHAR(100),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS stories (
			id SERIAL PRIMARY KEY,
			author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			media_url TEXT NOT NULL,
			media_type VARCHAR(10) NOT NULL CHECK (media_type IN ('image', 'video')),
			text_overlay TEXT,
			recipe_id INTEGER REFERENCES recipes(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_stories_author_active
			ON stories (author_id, created_at) WHERE deleted_at IS NULL;`,
		`
		CREATE TABLE IF NOT EXISTS story_views (
			story_id INTEGER NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			viewer_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			viewed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (story_id, viewer_id)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS follows (
			follower_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			followed_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (follower_id, followed_id)
		);
		`,
	}

	for _, q := range queries {
		if _, err := p.Db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

func (p *Postgres) CreateStory(authorID, mediaURL string, mediaType types.MediaType, overlayPayload, recipeID string, expiresAt time.Time) (string, error) {
	var storyID int
	query := `
	INSERT INTO stories (author_id, media_url, media_type, text_overlay, recipe_id, expires_at)
	VALUES ($1, $2, $3, $4, NULLIF($5, '')::integer, $6)
	RETURNING id
	`

	err := p.Db.QueryRow(query, authorID, mediaURL, mediaType, overlayPayload, recipeID, expiresAt).Scan(&storyID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", storyID), nil
}

// ListActiveStoriesByAuthor returns the author's non-expired stories in
// creation order, the exact sequence the player replays.
func (p *Postgres) ListActiveStoriesByAuthor(authorID string, asOf time.Time) ([]types.Story, error) {
	query := `
	SELECT s.id, s.author_id, s.media_url, s.media_type, COALESCE(s.text_overlay, ''),
		COALESCE(s.recipe_id::text, ''), s.created_at, s.expires_at,
		(SELECT COUNT(*) FROM story_views sv WHERE sv.story_id = s.id)
	FROM stories s
	WHERE s.author_id = $1::integer
		AND s.deleted_at IS NULL
		AND s.expires_at > $2
	ORDER BY s.created_at ASC
	`

	rows, err := p.Db.Query(query, authorID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStories(rows)
}

// ListReelsForFollower returns one reel per followed author who has active
// stories, for the story tray.
func (p *Postgres) ListReelsForFollower(userID string, asOf time.Time) ([]types.StoryReel, error) {
	query := `
	SELECT s.id, s.author_id, s.media_url, s.media_type, COALESCE(s.text_overlay, ''),
		COALESCE(s.recipe_id::text, ''), s.created_at, s.expires_at,
		(SELECT COUNT(*) FROM story_views sv WHERE sv.story_id = s.id),
		u.username
	FROM stories s
	JOIN follows f ON f.followed_id = s.author_id
	JOIN users u ON u.id = s.author_id
	WHERE f.follower_id = $1::integer
		AND s.deleted_at IS NULL
		AND s.expires_at > $2
	ORDER BY s.author_id, s.created_at ASC
	`

	rows, err := p.Db.Query(query, userID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reels []types.StoryReel
	for rows.Next() {
		var s types.Story
		var username string
		if err := rows.Scan(&s.ID, &s.AuthorID, &s.MediaURL, &s.MediaType, &s.Overlay,
			&s.RecipeID, &s.CreatedAt, &s.ExpiresAt, &s.ViewsCount, &username); err != nil {
			return nil, err
		}
		if n := len(reels); n > 0 && reels[n-1].AuthorID == s.AuthorID {
			reels[n-1].Stories = append(reels[n-1].Stories, s)
			continue
		}
		reels = append(reels, types.StoryReel{AuthorID: s.AuthorID, Username: username, Stories: []types.Story{s}})
	}
	return reels, rows.Err()
}

func (p *Postgres) GetStoryByID(storyID string) (types.Story, error) {
	query := `
	SELECT s.id, s.author_id, s.media_url, s.media_type, COALESCE(s.text_overlay, ''),
		COALESCE(s.recipe_id::text, ''), s.created_at, s.expires_at,
		(SELECT COUNT(*) FROM story_views sv WHERE sv.story_id = s.id)
	FROM stories s
	WHERE s.id = $1::integer AND s.deleted_at IS NULL
	`

	var s types.Story
	err := p.Db.QueryRow(query, storyID).Scan(&s.ID, &s.AuthorID, &s.MediaURL, &s.MediaType,
		&s.Overlay, &s.RecipeID, &s.CreatedAt, &s.ExpiresAt, &s.ViewsCount)
	return s, err
}

// RecordStoryView is idempotent: one view per viewer per story.
func (p *Postgres) RecordStoryView(storyID, viewerID string) error {
	query := `
	INSERT INTO story_views (story_id, viewer_id)
	VALUES ($1::integer, $2::integer)
	ON CONFLICT (story_id, viewer_id) DO NOTHING
	`

	_, err := p.Db.Exec(query, storyID, viewerID)
	return err
}

// SoftDeleteExpiredStories marks expired stories as deleted. Read queries
// filter on expires_at regardless, so the worker is housekeeping, not the
// expiry mechanism.
func (p *Postgres) SoftDeleteExpiredStories() (int, error) {
	query := `
	UPDATE stories
	SET deleted_at = CURRENT_TIMESTAMP
	WHERE expires_at <= CURRENT_TIMESTAMP AND deleted_at IS NULL
	`

	res, err := p.Db.Exec(query)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

func (p *Postgres) CreateUser(username, email, hashedPassword string) (string, error) {
	var userID int
	query := `
	INSERT INTO users (username, email, password)
	VALUES ($1, $2, $3)
	RETURNING id
	`

	err := p.Db.QueryRow(query, username, email, hashedPassword).Scan(&userID)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", userID), nil
}

func (p *Postgres) GetUserByEmail(email string) (string, string, error) {
	var userID int
	var hashedPassword string
	query := `SELECT id, password FROM users WHERE email = $1`

	err := p.Db.QueryRow(query, email).Scan(&userID, &hashedPassword)
	if err != nil {
		return "", "", err
	}

	return fmt.Sprintf("%d", userID), hashedPassword, nil
}

func (p *Postgres) FollowUser(followerID, followedID string) error {
	query := `
	INSERT INTO follows (follower_id, followed_id)
	VALUES ($1::integer, $2::integer)
	ON CONFLICT (follower_id, followed_id) DO NOTHING
	`

	_, err := p.Db.Exec(query, followerID, followedID)
	return err
}

func (p *Postgres) UnfollowUser(followerID, followedID string) error {
	query := `DELETE FROM follows WHERE follower_id = $1::integer AND followed_id = $2::integer`

	_, err := p.Db.Exec(query, followerID, followedID)
	return err
}

func (p *Postgres) GetUserFollowers(userID string) ([]string, error) {
	query := `SELECT follower_id FROM follows WHERE followed_id = $1::integer`

	rows, err := p.Db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var followers []string
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		followers = append(followers, fmt.Sprintf("%d", id))
	}
	return followers, rows.Err()
}

func (p *Postgres) ListRecentRecipesByAuthor(authorID string, limit int) ([]recipes.Recipe, error) {
	query := `
	SELECT id, author_id, title, COALESCE(image_url, ''), COALESCE(category, ''), created_at
	FROM recipes
	WHERE author_id = $1::integer
	ORDER BY created_at DESC
	LIMIT $2
	`

	rows, err := p.Db.Query(query, authorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []recipes.Recipe
	for rows.Next() {
		var r recipes.Recipe
		if err := rows.Scan(&r.ID, &r.AuthorID, &r.Title, &r.ImageURL, &r.Category, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (p *Postgres) GetRecipeByID(recipeID string) (recipes.Recipe, error) {
	query := `
	SELECT id, author_id, title, COALESCE(image_url, ''), COALESCE(category, ''), created_at
	FROM recipes
	WHERE id = $1::integer
	`

	var r recipes.Recipe
	err := p.Db.QueryRow(query, recipeID).Scan(&r.ID, &r.AuthorID, &r.Title, &r.ImageURL, &r.Category, &r.CreatedAt)
	return r, err
}

func scanStories(rows *sql.Rows) ([]types.Story, error) {
	var stories []types.Story
	for rows.Next() {
		var s types.Story
		if err := rows.Scan(&s.ID, &s.AuthorID, &s.MediaURL, &s.MediaType, &s.Overlay,
			&s.RecipeID, &s.CreatedAt, &s.ExpiresAt, &s.ViewsCount); err != nil {
			return nil, err
		}
		stories = append(stories, s)
	}
	return stories, rows.Err()
}
