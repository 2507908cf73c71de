package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipscout-backend/internal/app"
	"clipscout-backend/internal/config"
	"clipscout-backend/internal/database"
	"clipscout-backend/internal/handlers"
	"clipscout-backend/internal/middleware"
	"clipscout-backend/internal/router"
	"clipscout-backend/internal/services"
	"clipscout-backend/internal/websocket"
	"clipscout-backend/internal/worker"
	"clipscout-backend/migrations"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	slog.SetDefault(cfg.NewLogger(os.Stdout))
	slog.Info("starting clipscout backend", slog.String("env", cfg.Env))

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		fatal("postgres connection failed", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		fatal("redis connection failed", err)
	}
	defer redisClients.Close()
	slog.Info("redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, migrations.FS); err != nil {
		fatal("database migration failed", err)
	}
	slog.Info("database migrations applied")

	// ──── Step 5: Wire Pipeline ────
	components, err := app.New(context.Background(), cfg, pool, redisClients.Queue)
	if err != nil {
		fatal("pipeline initialization failed", err)
	}
	slog.Info("collection pipeline ready",
		slog.Bool("layout_probe", cfg.LayoutProbeEnabled),
		slog.Bool("caption_probe", cfg.CaptionProbeEnabled),
	)

	// ──── Step 6: Start Run Worker Pool ────
	events := services.NewEventPublisher(redisClients.Queue)
	workerPool := worker.NewPool(
		redisClients.Queue,
		components.Runs,
		components.Collector,
		components.Rater,
		events,
		cfg.WorkerCount,
	)
	workerPool.Start()
	slog.Info("worker pool started", slog.Int("workers", cfg.WorkerCount))

	ratingScheduler := services.NewRatingScheduler(components.Videos, workerPool, cfg.RatingPollInterval, cfg.RatingBatchSize)
	ratingScheduler.Start()

	// ──── Step 7: Start WebSocket Hub ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		handlers.NewRunHandler(components.Runs, workerPool),
		handlers.NewRatingHandler(components.Rater, workerPool),
		handlers.NewVideoHandler(components.Videos, components.Moments, components.Discards, components.Queries),
		handlers.NewSystemHandler(map[string]handlers.HealthCheck{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClients.Queue.Ping(ctx).Err()
			},
		}),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		slog.Info("shutting down")
		ratingScheduler.Stop()
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	slog.Info("clipscout backend ready",
		slog.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		slog.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		fatal("server error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
