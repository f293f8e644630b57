package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/starlow12/recipe/docs"
	"github.com/starlow12/recipe/internal/cache"
	"github.com/starlow12/recipe/internal/config"
	"github.com/starlow12/recipe/internal/events"
	"github.com/starlow12/recipe/internal/http/handlers/recipes"
	"github.com/starlow12/recipe/internal/http/handlers/stories"
	"github.com/starlow12/recipe/internal/http/handlers/users"
	wsHandler "github.com/starlow12/recipe/internal/http/handlers/websocket"
	"github.com/starlow12/recipe/internal/http/middleware"
	"github.com/starlow12/recipe/internal/services/media"
	"github.com/starlow12/recipe/internal/storage/postgres"
	"github.com/starlow12/recipe/internal/websocket"
)

// @title Recipe Stories API
// @version 1.0
// @description Ephemeral recipe stories service: publish, view and replay 24-hour stories.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	// database setup
	pg, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// redis setup
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis")

	store := cache.NewCacheService(pg, redisClient)

	// media storage setup
	mediaService, err := media.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize media service:", err)
	}
	slog.Info("Connected to MinIO")

	// websocket hub for story events
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewEventPublisher(hub)

	rateLimits := middleware.NewRateLimitConfig(redisClient)
	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	// setup router
	router := http.NewServeMux()

	router.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Recipe Stories API"))
	})

	router.HandleFunc("POST /signup", users.SignUp(store))
	router.HandleFunc("POST /login", users.Login(store, cfg.JWTSecret))

	router.Handle("POST /stories", auth(rateLimits.RateLimitedHandler("stories", stories.PostStory(store, mediaService, publisher))))
	router.HandleFunc("GET /stories/{user_id}", stories.AuthorReel(store))
	router.Handle("POST /stories/{id}/view", auth(rateLimits.RateLimitedHandler("views", stories.ViewStory(store, publisher))))
	router.Handle("GET /feed", auth(stories.Tray(store)))

	router.Handle("GET /recipes/recent", auth(recipes.RecentRecipes(store)))

	router.Handle("POST /follow/{user_id}", auth(users.FollowUser(store)))
	router.Handle("DELETE /follow/{user_id}", auth(users.UnfollowUser(store)))

	router.HandleFunc("GET /ws", wsHandler.WebSocketHandler(hub, cfg.JWTSecret))

	router.HandleFunc("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
