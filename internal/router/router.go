package router

import (
	"context"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/nivram710/snapline/backend/internal/events"
	"github.com/nivram710/snapline/backend/internal/gateway"
	"github.com/nivram710/snapline/backend/internal/handlers"
	"github.com/nivram710/snapline/backend/internal/middleware"
	"github.com/nivram710/snapline/backend/internal/models"
	"github.com/nivram710/snapline/backend/internal/repositories"
	"github.com/nivram710/snapline/backend/internal/services"
	"github.com/nivram710/snapline/backend/pkg/config"
	"go.uber.org/zap"
)

// Deps holds the long-lived components main needs after route setup.
type Deps struct {
	StoryService *services.StoryService
	Kafka        *events.KafkaPublisher
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, db *config.DB, firebaseAuthClient *auth.Client, log *zap.SugaredLogger) (*Deps, error) {
	// AutoMigrate PostgreSQL models
	if err := db.Postgres.AutoMigrate(
		&models.User{},
		&models.Notification{},
	); err != nil {
		return nil, err
	}
	log.Infow("postgres auto-migrations completed")

	mongoDB := db.Mongo.Database("snapline")
	if err := repositories.EnsureConversationIndexes(context.Background(), mongoDB); err != nil {
		return nil, err
	}

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	conversationRepo := repositories.NewConversationRepository(mongoDB)
	messageRepo := repositories.NewMessageRepository(mongoDB)
	storyRepo := repositories.NewStoryRepository(mongoDB, cfg.StoryTTL)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)

	// --- Realtime gateway and event fan-out ---
	var presence *gateway.Presence
	if db.Redis != nil {
		presence = gateway.NewPresence(db.Redis, "snapline")
	}
	hub := gateway.NewHub(presence, log)

	publishers := []events.Publisher{hub}
	var kafkaPublisher *events.KafkaPublisher
	if cfg.KafkaBrokers != "" {
		kafkaPublisher = events.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopicEvents)
		publishers = append(publishers, kafkaPublisher)
		log.Infow("kafka event publisher enabled", "topic", cfg.KafkaTopicEvents)
	}
	fanout := &events.Fanout{Publishers: publishers, Log: log}

	// --- Services ---
	notificationService := services.NewNotificationService(notificationRepo, fanout, cfg.NotifDedupWindow, log)
	chatService := services.NewChatService(conversationRepo, messageRepo, notificationService, fanout, log)
	storyService := services.NewStoryService(storyRepo, notificationService, log)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	api.GET("/users/search", userHandler.SearchUsers)

	// Conversation and message routes
	conversationHandler := handlers.NewConversationHandler(chatService)
	conversationHandler.RegisterConversationRoutes(api)
	messageHandler := handlers.NewMessageHandler(chatService)
	messageHandler.RegisterMessageRoutes(api)

	// Story routes
	storyHandler := handlers.NewStoryHandler(storyService, userRepo)
	storyHandler.RegisterStoryRoutes(api)

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationService, notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)

	// Realtime routes
	wsHandler := handlers.NewWSHandler(hub, presence)
	wsHandler.RegisterWSRoutes(api)

	log.Infow("all routes configured")
	return &Deps{StoryService: storyService, Kafka: kafkaPublisher}, nil
}
