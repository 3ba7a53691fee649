package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"techlight-support/config"
	"techlight-support/internal/handler"
	"techlight-support/internal/middleware"
	redisx "techlight-support/internal/redis"
	"techlight-support/internal/repository"
	"techlight-support/internal/services"
	"techlight-support/internal/storage"
	ws "techlight-support/internal/websocket"
	"techlight-support/pkg/database"
	"techlight-support/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	l := logger.New(cfg.AppMode)
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Database
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := redisx.NewClient(redisx.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	publisher := redisx.NewPublisher(redisClient)
	subscriber := redisx.NewSubscriber(redisClient)
	presence := redisx.NewPresenceStore(redisClient, 0)

	conversationRepo := repository.NewConversationRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)

	// S3 archival is optional; without a bucket, closed conversations
	// simply keep their transcript in Postgres only.
	var archiver services.TranscriptArchiver
	if cfg.S3Bucket != "" {
		store, err := storage.NewClient(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to init S3 storage: %v", err)
		}
		archiver = services.NewArchiveService(store)
	}

	locks := services.NewConversationLocks()
	authService := services.NewAuthService(cfg.JWTSecret)
	conversationService := services.NewConversationService(conversationRepo, messageRepo, publisher, archiver, locks, l)
	messageService := services.NewMessageService(conversationRepo, messageRepo, publisher, locks, l)
	typingService := services.NewTypingService(conversationRepo, publisher, presence, l)

	hub := ws.NewHub()
	go hub.Run(ctx)

	bridge := ws.NewRedisBridge(subscriber, hub)
	go func() {
		if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
			l.Errorf("redis bridge stopped: %v", err)
		}
	}()

	wsHandler := ws.NewHandler(authService, hub, ws.NewRoomAuthorizer(conversationRepo), typingService, presence, l)
	conversationHandler := handler.NewConversationHandler(conversationService)
	messageHandler := handler.NewMessageHandler(messageService)
	presenceHandler := handler.NewPresenceHandler(presence)

	if cfg.AppMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))

	r.GET("/healthz", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(hctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", wsHandler.Connect)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(authService))
	{
		api.POST("/conversations", conversationHandler.Create)
		api.GET("/conversations", conversationHandler.List)
		api.GET("/conversations/:id", conversationHandler.GetByID)
		api.PATCH("/conversations/:id", conversationHandler.UpdateStatus)
		api.POST("/conversations/:id/claim", conversationHandler.Claim)
		api.POST("/conversations/:id/release", conversationHandler.Release)
		api.GET("/conversations/:id/messages", messageHandler.List)
		api.POST("/messages", messageHandler.Send)
		api.GET("/presence/staff", presenceHandler.OnlineStaff)
	}

	log.Printf("Starting server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
