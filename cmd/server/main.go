// @title           Video Story Backend API
// @version         1.0.0
// @description     Backend API for building multi-segment AI generated video stories. Segments are generated one at a time with Veo, chained through continuity frames, and stitched into a single final video.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"video-story-backend/internal/config"
	"video-story-backend/internal/database"
	"video-story-backend/internal/gemini"
	"video-story-backend/internal/handlers"
	"video-story-backend/internal/media"
	"video-story-backend/internal/middleware"
	"video-story-backend/internal/services"
	"video-story-backend/internal/supabase"
	"video-story-backend/internal/veo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Run migrations before anything touches the schema
	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer migrator.Close()
	if err := migrator.Run(); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migrations completed successfully")

	// External service clients
	veoClient := veo.NewClient(cfg.VeoAPIBaseURL, cfg.VeoAPIKey)

	geminiClient, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer geminiClient.Close()

	supabaseClient, err := supabase.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	storageClient, err := supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize storage client: %v", err)
	}

	realtimeClient := supabase.NewRealtimeClient(supabaseClient.Supabase)

	dbClient := supabase.NewDatabaseClient(migrator.DB())

	processor := media.NewProcessor(cfg.FFmpegPath, cfg.FFprobePath)
	if !processor.IsAvailable(context.Background()) {
		log.Printf("Warning: ffmpeg not found at %q; frame extraction and stitching will fail", cfg.FFmpegPath)
	}

	storyService := services.NewStoryService(dbClient, storageClient, veoClient, processor, geminiClient, realtimeClient, cfg)
	defer storyService.StopPolling()

	// Pick up operations that were mid-flight when the server last stopped
	if err := storyService.ResumePolling(); err != nil {
		log.Printf("Warning: failed to resume polling: %v", err)
	}

	storiesHandler := handlers.NewStoriesHandler(storyService)
	segmentsHandler := handlers.NewSegmentsHandler(storyService)
	operationsHandler := handlers.NewOperationsHandler(storyService)
	stitchHandler := handlers.NewStitchHandler(storyService)
	plansHandler := handlers.NewPlansHandler(storyService)

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))

	// Story routes
	api.POST("/stories", storiesHandler.CreateStory)
	api.GET("/stories", storiesHandler.ListStories)
	api.GET("/stories/:story_id", storiesHandler.GetStory)
	api.DELETE("/stories/:story_id", storiesHandler.DeleteStory)
	api.GET("/stories/:story_id/stats", storiesHandler.GetStoryStats)

	// Segment generation
	api.POST("/stories/:story_id/segments", segmentsHandler.AddSegment)
	api.DELETE("/segments/:segment_id", segmentsHandler.DeleteSegment)

	// Operation polling
	api.GET("/operations/:operation_id", operationsHandler.GetOperationStatus)

	// Stitching
	api.POST("/stories/:story_id/stitch", stitchHandler.StitchStory)

	// Story planning
	api.POST("/story-plans", plansHandler.ExpandStory)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
