package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"imis/database"
	"imis/internal/config"
	"imis/internal/microservices/http-api/handler"
	"imis/internal/microservices/http-api/middleware"
	"imis/internal/microservices/http-api/repository"
	"imis/internal/microservices/http-api/service"
	"imis/internal/microservices/identity"
	"imis/internal/microservices/notify"
	"imis/internal/microservices/presence"
	"imis/internal/microservices/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout  = 10 * time.Second
	resubscribeDelay = 5 * time.Second
)

// Run starts the realtime server and blocks until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db.Gorm, logger); err != nil {
		return err
	}

	rdb, err := NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	// Repositories
	users := repository.NewUserRepository(db.Gorm)
	projects := repository.NewProjectRepository(db.Gorm)
	tasks := repository.NewTaskRepository(db.Gorm)
	comments := repository.NewCommentRepository(db.Gorm, cfg.LikeLockTimeout)
	chats := repository.NewChatRepository(db.Gorm)
	messages := repository.NewMessageRepository(db.Gorm)
	logs := repository.NewLogRepository(db.Gorm)
	notifications := repository.NewNotificationRepository(db.Gorm)

	// Presence
	resolver := identity.NewResolver(users, logger)
	registry := presence.NewRegistry(logger)
	rooms := presence.NewTracker(logger)
	hub := websocket.NewHub(registry, rooms, logger)

	// Notifications
	pool := notify.NewWorkerPool(cfg.NotifyWorkers, cfg.NotifyQueueSize, logger)
	pool.Start()
	defer pool.Shutdown()

	dispatcher := notify.NewDispatcher(
		notifications,
		hub,
		resolver,
		NewMailer(cfg, logger),
		notify.NewEmailRenderer(cfg.MailSubjectPrefix, cfg.AppURL),
		notify.Options{BatchSize: cfg.EmailBatchSize, BatchDelay: cfg.EmailBatchDelay, Pool: pool},
		logger,
	)

	subscriber := notify.NewIntentSubscriber(rdb, cfg.NotifyChannel, dispatcher, logger)
	go runSubscriber(ctx, subscriber, logger)

	// Websocket gateway
	router := websocket.NewRouter(websocket.RouterDeps{
		Projects: projects,
		Tasks:    tasks,
		Comments: comments,
		Chats:    chats,
		Messages: messages,
		Audit:    logs,
		Notifier: dispatcher,
	}, rooms, hub, cfg.WSHandlerTimeout, logger)

	gateway := websocket.NewGateway(resolver, registry, rooms, hub, router, websocket.Limits{
		MaxMessageSize: cfg.WSMaxMessageSize,
		RatePerSecond:  cfg.WSRateLimit,
		Burst:          cfg.WSRateBurst,
	}, logger)

	engine := NewEngine(cfg, Handlers{
		Auth:          service.NewAuthService(cfg.JWTSecret),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(notifications)),
		Presence:      handler.NewPresenceHandler(hub),
		Notify:        handler.NewNotifyHandler(dispatcher, logger),
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": db.Pool,
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		}),
		WS: websocket.WSHandler(gateway, websocket.NewUpgrader(cfg.CORSOrigins)),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are invisible to Shutdown
	gateway.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_failed", "error", err)
	}
	logger.Info("server_stopped_gracefully")
	return nil
}

// Handlers groups everything NewEngine mounts
type Handlers struct {
	Auth          service.AuthService
	Notifications *handler.NotificationHandler
	Presence      *handler.PresenceHandler
	Notify        *handler.NotifyHandler
	Health        *handler.HealthHandler
	WS            gin.HandlerFunc
}

// NewEngine builds the gin router with every route
func NewEngine(cfg *config.Config, h Handlers) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.IsDevelopment() {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/healthz", h.Health.Health)
	r.GET("/ws", h.WS)

	api := r.Group("/api", middleware.AuthMiddleware(h.Auth))
	h.Notifications.RegisterRoutes(api.Group("/notifications"))
	h.Presence.RegisterRoutes(api.Group("/presence"))

	internal := r.Group("/internal", middleware.AuthMiddleware(h.Auth), middleware.RequireNotifyPublisher())
	h.Notify.RegisterRoutes(internal)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// NewRedisClient parses REDIS_URL; REDIS_PASSWORD overrides any password in the URL
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	return redis.NewClient(opts), nil
}

// NewMailer picks SMTP when a relay is configured, the logging mailer otherwise
func NewMailer(cfg *config.Config, logger *slog.Logger) notify.Mailer {
	if cfg.SMTPAddr() == "" {
		logger.Warn("smtp_disabled", "reason", "SMTP_HOST not set")
		return notify.NewLogMailer(logger)
	}
	return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, cfg.SMTPTimeout)
}

// runSubscriber keeps the redis bridge alive across broken subscriptions
func runSubscriber(ctx context.Context, s *notify.IntentSubscriber, logger *slog.Logger) {
	for {
		err := s.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		logger.Error("intent_subscriber_stopped", "error", err, "retry_in", resubscribeDelay.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}
