package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/flightassist/internal/chat"
	"github.com/dharmasatrya/flightassist/internal/config"
	"github.com/dharmasatrya/flightassist/internal/handler"
	"github.com/dharmasatrya/flightassist/internal/intent"
	"github.com/dharmasatrya/flightassist/internal/mock"
	"github.com/dharmasatrya/flightassist/internal/ratelimit"
	"github.com/dharmasatrya/flightassist/internal/search"
	"github.com/dharmasatrya/flightassist/internal/session"
	"github.com/dharmasatrya/flightassist/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
	}))
	e.Use(middleware.RequestID())

	rateLimiter := ratelimit.NewBackendLimiterWithDefaults()
	rateLimiter.SetBackendLimit(ratelimit.BackendSearch, cfg.SearchRateLimit, cfg.SearchRateBurst)
	rateLimiter.SetBackendLimit(ratelimit.BackendLLM, cfg.LLMRateLimit, cfg.LLMRateBurst)

	store, err := newSessionStore(cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize session store")
		os.Exit(1)
	}
	defer store.Close()

	spec, err := intent.LoadPromptSpec(cfg.PromptSpec)
	if err != nil {
		log.WithError(err).Error("failed to load prompt spec")
		os.Exit(1)
	}
	if cfg.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY is not set; intent extraction will fail until provided")
	}
	parser := intent.NewOpenAIParser(intent.OpenAIConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}, spec, rateLimiter, log)

	orchestrator := search.NewOrchestrator(search.Config{
		URL:       cfg.SearchURL,
		Token:     cfg.SearchToken,
		Timeout:   cfg.SearchTimeout,
		MaxRounds: cfg.SearchMaxRounds,
	}, rateLimiter, log)

	ingestor := mock.NewIngestor(cfg.MockURL, cfg.MockTimeout, rateLimiter)
	if cfg.MockURL == "" {
		log.Info("mock ingestion disabled")
	}

	controller := chat.NewController(chat.Config{
		HistoryLimit: cfg.HistoryLimit,
		MaxRounds:    cfg.SearchMaxRounds,
		SortBy:       cfg.SortBy,
		SortOrder:    cfg.SortOrder,
	}, store, parser, orchestrator, mock.NewGenerator(nil, nil), ingestor, log)

	handler.Register(e, handler.NewChatHandler(controller, log))

	go func() {
		log.Info("starting flight assistant server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

func newSessionStore(cfg config.Config) (session.Store, error) {
	if cfg.SessionStore != "redis" {
		return session.NewMemoryStore(cfg.HistoryLimit), nil
	}

	store, err := session.NewRedisStore(session.RedisConfig{
		Host:         cfg.RedisHost,
		Port:         cfg.RedisPort,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		TTL:          cfg.SessionTTL,
		HistoryLimit: cfg.HistoryLimit,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}
