package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/chat-gateway-go/internal/ai"
	"github.com/openclaw/chat-gateway-go/internal/auth"
	"github.com/openclaw/chat-gateway-go/internal/bus"
	"github.com/openclaw/chat-gateway-go/internal/cache"
	"github.com/openclaw/chat-gateway-go/internal/config"
	"github.com/openclaw/chat-gateway-go/internal/database"
	"github.com/openclaw/chat-gateway-go/internal/gateway"
	"github.com/openclaw/chat-gateway-go/internal/handler"
	"github.com/openclaw/chat-gateway-go/internal/jobs"
	"github.com/openclaw/chat-gateway-go/internal/middleware"
	"github.com/openclaw/chat-gateway-go/internal/redis"
	"github.com/openclaw/chat-gateway-go/internal/repository"
	"github.com/openclaw/chat-gateway-go/internal/session"
	"github.com/openclaw/chat-gateway-go/internal/streaming"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()[:8]
	}
	log.Info().Str("instanceId", cfg.InstanceID).Msg("gateway instance starting")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	messageRepo := repository.NewMessageRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	fileRepo := repository.NewFileRepository(db)

	eventBus := bus.New(redisClient)
	history := cache.NewHistory(redisClient, cfg.HistoryWindow, cfg.HistoryTTL())
	arbiter := session.NewArbiter(redisClient, cfg.SessionIdle())
	streams := streaming.NewStore(redisClient)
	verifier := auth.NewVerifier(cfg.JWTSecret)

	registry := ai.NewRegistry()
	for _, name := range cfg.AINames {
		if cfg.AIBaseURL != "" {
			registry.Register(name, ai.NewOllamaProvider(cfg.AIBaseURL, cfg.AIModel))
		} else {
			registry.Register(name, ai.NewScriptedProvider(
				"Hi, I am "+name+". Model serving is not configured, so this is a scripted reply.",
			))
		}
	}

	hub := gateway.NewHub()
	gw := gateway.New(cfg, hub, eventBus, history, arbiter, streams, registry, messageRepo, roomRepo, fileRepo, verifier)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()
	go func() {
		if err := gw.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("bus consumers stopped")
		}
	}()

	authMiddleware := middleware.NewAuthMiddleware(verifier)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.ActionRateLimitPerMin)

	eventsHandler := handler.NewEventsHandler(gw)
	chatHandler := handler.NewChatHandler(gw)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"instance":  cfg.InstanceID,
			"clients":   hub.TotalClients(),
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/events", eventsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Use(rateLimitMiddleware.Handler)
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

			r.Post("/rooms/join", chatHandler.JoinRoom)
			r.Post("/rooms/leave", chatHandler.LeaveRoom)
			r.Get("/rooms/{roomID}/messages", chatHandler.History)
			r.Post("/messages", chatHandler.SendMessage)
			r.Post("/messages/previous", chatHandler.RequestPrevious)
			r.Post("/messages/read", chatHandler.MarkRead)
			r.Post("/messages/react", chatHandler.React)
			r.Post("/session/force-login", chatHandler.ForceLogin)
		})
	})

	cleanupJob := jobs.NewCleanupJob(streams, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	stopConsumers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
