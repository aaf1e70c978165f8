package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/yukikurage/org-task-api/internal/auth"
	"github.com/yukikurage/org-task-api/internal/config"
	"github.com/yukikurage/org-task-api/internal/constants"
	"github.com/yukikurage/org-task-api/internal/database"
	"github.com/yukikurage/org-task-api/internal/handlers"
	"github.com/yukikurage/org-task-api/internal/metrics"
	"github.com/yukikurage/org-task-api/internal/middleware"
	"github.com/yukikurage/org-task-api/internal/notify"
	"github.com/yukikurage/org-task-api/internal/repository"
	"github.com/yukikurage/org-task-api/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	if !cfg.IsProduction() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logger.Error().Err(err).Msg("Failed to run migrations")
		return 1
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}

	// Repositories and services
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	guard := auth.NewGuard(tokens, userRepo, orgRepo)

	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger), constants.NotifyTimeout, logger, func(err error) {
		if err != nil {
			m.RecordInvitation("failed")
			return
		}
		m.RecordInvitation("sent")
	})

	membershipService := services.NewMembershipService(orgRepo, userRepo, dispatcher, m, logger)
	authService := services.NewAuthService(userRepo, orgRepo, tokens)
	taskService := services.NewTaskService(taskRepo, userRepo, m, logger)
	aiService := services.NewAIService(cfg.OpenAIAPIKey)

	// Rate limiting for the credential endpoints, shared across instances
	// through Redis.
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	defer redisClient.Close()

	limiterStore, err := limiterRedis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "orgtask_auth_limit",
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create rate limiter store")
		return 1
	}
	authRateLimit, err := middleware.NewRateLimiter(limiterStore, cfg.AuthRateLimit, cfg.AuthRatePeriod)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create rate limiter")
		return 1
	}

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(m.Middleware())

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.RedisAddr(),
		"", // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create Redis session store")
		return 1
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Organization task API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(r, handlers.Routes{
		Guard:         guard,
		Auth:          handlers.NewAuthHandler(authService, membershipService),
		Organizations: handlers.NewOrganizationHandler(membershipService),
		Tasks:         handlers.NewTaskHandler(taskService, aiService),
		TaskService:   taskService,
		AuthRateLimit: authRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
