package main

import (
	"context"
	"fmt"
	"log"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/config"
	"campus-chat-be/internal/database"
	"campus-chat-be/internal/http/handlers"
	"campus-chat-be/internal/http/middleware"
	"campus-chat-be/internal/models"
	"campus-chat-be/internal/presence"
	"campus-chat-be/internal/push"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DBDSN == "" || cfg.JWTSecret == "" {
		log.Fatal("DB_DSN and JWT_SECRET are required")
	}

	lg := logger.New(logger.Config{Development: cfg.LogDev, Level: cfg.LogLevel})

	db, err := database.ConnectMySQL(cfg.DBDSN)
	if err != nil {
		log.Fatal("failed connect db:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.DirectMessage{},
		&models.GroupMessage{},
		&models.ConversationState{},
		&models.DeviceToken{},
	); err != nil {
		log.Fatal("failed migrate:", err)
	}

	// Presence: process-local unless a shared redis is configured.
	var registry presence.Registry
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		registry = presence.NewRedis(rdb)
		lg.Info("presence backed by redis", "addr", cfg.RedisAddr)
	} else {
		registry = presence.NewMemory()
	}

	// Push backend is picked once here; nothing downstream branches on it.
	tokens := push.NewTokenStore(db)
	var dispatcher push.Dispatcher
	switch {
	case cfg.FCMCredentialsFile != "":
		fcm, err := push.NewFCM(context.Background(), cfg.FCMCredentialsFile, tokens, lg)
		if err != nil {
			log.Fatal("failed init fcm:", err)
		}
		dispatcher = fcm
		lg.Info("push backend: fcm")
	case cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "":
		dispatcher = push.NewWebPush(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber, tokens, lg)
		lg.Info("push backend: webpush")
	default:
		dispatcher = push.Disabled{Log: lg}
		lg.Warn("push backend: disabled")
	}

	hub := ws.NewHub()
	service := chat.NewService(db, hub, dispatcher, lg)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.String(503, "database unavailable")
			return
		}
		c.String(200, "OK")
	})

	wsH := &handlers.WSHandler{
		Hub:                  hub,
		Service:              service,
		Presence:             registry,
		JWTSecret:            cfg.JWTSecret,
		WSInsecureSkipVerify: cfg.WSInsecureSkipVerify,
		Log:                  lg,
	}
	r.GET("/ws", wsH.Handle)

	authed := r.Group("/api/v1")
	authed.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	chatH := &handlers.ChatHandler{Service: service}
	msgs := authed.Group("/messages")
	msgs.GET("/conversation/:contactId", chatH.Conversation)
	msgs.POST("/send", chatH.Send)
	msgs.PUT("/mark-read/:contactId", chatH.MarkRead)
	msgs.PUT("/:messageId", chatH.Edit)
	msgs.DELETE("/:messageId", chatH.Delete)

	groupH := &handlers.GroupChatHandler{Service: service}
	msgs.GET("/groups/:id/messages", groupH.Messages)
	msgs.POST("/groups/:id/messages", groupH.Send)
	msgs.PUT("/groups/:id/messages/:messageId", groupH.Edit)
	msgs.DELETE("/groups/:id/messages/:messageId", groupH.Delete)
	msgs.PUT("/groups/:id/mark-read", groupH.MarkRead)

	convH := &handlers.ConversationHandler{Service: service}
	authed.GET("/conversations", convH.List)
	authed.POST("/conversations/:type/:id/pin", convH.Pin)
	authed.POST("/conversations/:type/:id/unpin", convH.Unpin)

	deviceH := &handlers.DeviceHandler{Tokens: tokens}
	authed.POST("/devices", deviceH.Register)
	authed.DELETE("/devices/:token", deviceH.Remove)

	presH := &handlers.PresenceHandler{Registry: registry}
	authed.GET("/users/online", presH.Online)

	addr := fmt.Sprintf(":%d", cfg.Port)
	lg.Info("listening", "addr", addr)
	log.Fatal(r.Run(addr))
}
