package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/scrapeguard/server/internal/challenge"
	"github.com/scrapeguard/server/internal/config"
	"github.com/scrapeguard/server/internal/detectlog"
	"github.com/scrapeguard/server/internal/httpserver"
	"github.com/scrapeguard/server/internal/metrics"
	"github.com/scrapeguard/server/internal/policy"
	"github.com/scrapeguard/server/internal/score"
	"github.com/scrapeguard/server/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Stores: Redis-backed when REDIS_URL is set, in-memory otherwise.
	var (
		challengeBackend challenge.Backend
		tokenBackend     token.Backend
	)
	if cfg.RedisURL != "" {
		client, err := dialRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer client.Close()
		challengeBackend = challenge.NewRedisBackend(client)
		tokenBackend = token.NewRedisBackend(client)
		logger.Info("using redis-backed stores")
	} else {
		challengeBackend = challenge.NewMemoryBackend()
		tokenBackend = token.NewMemoryBackend()
	}
	defer challengeBackend.Close()
	defer tokenBackend.Close()

	challenges := challenge.NewStore(challengeBackend, cfg.ChallengeDifficulty, cfg.ChallengeValidity)
	tokens := token.NewRegistry(tokenBackend, cfg.TokenValidity)
	detections := detectlog.NewLog(cfg.DetectionLogMax)

	engine := score.NewEngine(score.Config{
		OriginBlocklist:    cfg.OriginBlocklist,
		OriginAllowlist:    cfg.OriginAllowlist,
		UserAgentBlocklist: cfg.UserAgentBlocklist,
		SuspiciousHeaders:  cfg.SuspiciousHeaders,
		ExpectedHeaders:    cfg.ExpectedHeaders,
		TrackMouse:         cfg.TrackMouse,
		TrackScroll:        cfg.TrackScroll,
		MouseFloor:         cfg.MouseFloor,
		ScrollFloor:        cfg.ScrollFloor,
		IncompatiblePairs:  score.DefaultIncompatiblePairs,
	})

	pol := policy.New(engine, tokens, detections, cfg.ScoreThreshold, cfg.BlockThreshold, logger)
	api := httpserver.New(challenges, pol, tokens, detections, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS for the client-side collection script
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Protection-Token"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	api.Register(r)

	// Server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("scrapeguard server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("shutdown error: %v", err)
	}
}

func dialRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
