package main

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nivram710/snapline/backend/internal/router"
	"github.com/nivram710/snapline/backend/pkg/config"
	"github.com/nivram710/snapline/backend/pkg/firebase"
	"github.com/nivram710/snapline/backend/pkg/logger"
	"github.com/nivram710/snapline/backend/validators"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env == "development")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		zlog.Fatalw("failed to initialize databases", "error", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase
	ctx := context.Background()
	credentialsPath := cfg.FirebaseCredentialsPath
	if credentialsPath == "" {
		credentialsPath = "./firebase_credentials.json"
	}
	firebaseApp, err := firebase.InitFirebase(ctx, credentialsPath)
	if err != nil {
		zlog.Fatalw("failed to initialize firebase", "error", err)
	}

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	deps, err := router.SetupRoutes(e, cfg, db, firebaseApp.AuthClient, zlog)
	if err != nil {
		zlog.Fatalw("failed to set up routes", "error", err)
	}
	if deps.Kafka != nil {
		defer deps.Kafka.Close()
	}

	// Validator
	e.Validator = validators.NewValidator()

	// Background sweep flips expired stories to inactive
	go sweepStories(ctx, deps, cfg.StorySweepInterval, zlog)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}

func sweepStories(ctx context.Context, deps *router.Deps, interval time.Duration, zlog *zap.SugaredLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := deps.StoryService.SweepExpired(ctx); err != nil {
				zlog.Errorw("story sweep failed", "error", err)
			}
		}
	}
}
