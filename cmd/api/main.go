// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/internal/config"
	"github.com/capitalize-ai/flightstats-assistant/internal/datastore"
	"github.com/capitalize-ai/flightstats-assistant/internal/handler"
	"github.com/capitalize-ai/flightstats-assistant/internal/llm"
	"github.com/capitalize-ai/flightstats-assistant/internal/middleware"
	natsclient "github.com/capitalize-ai/flightstats-assistant/internal/nats"
	"github.com/capitalize-ai/flightstats-assistant/internal/service"
	"github.com/capitalize-ai/flightstats-assistant/internal/sqlbuilder"
	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
	"github.com/capitalize-ai/flightstats-assistant/pkg/tracing"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting API server", zap.String("port", cfg.ServerPort))
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "flightstats-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Run events are optional; without NATS they are discarded.
	var (
		events      service.EventPublisher = service.NopPublisher{}
		eventReader handler.EventReader
		natsConn    handler.ConnChecker
	)
	if cfg.NATSEnabled() {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient, log)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		events, eventReader, natsConn = streamManager, streamManager, natsClient
	}

	assistant, err := llm.NewOpenAIAssistant(llm.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	})
	if err != nil {
		return fmt.Errorf("create assistant client: %w", err)
	}
	log.Info("reasoning engine configured", zap.String("provider", assistant.Name()), zap.String("assistant_id", cfg.AssistantID))

	store, db, err := datastore.Open(ctx, cfg.BigQueryDSN, log, datastore.WithTimeout(cfg.QueryTimeout))
	if err != nil {
		return fmt.Errorf("open data store: %w", err)
	}
	defer db.Close()

	dispatcher := service.NewDispatcher(sqlbuilder.New(cfg.QueryTable), store, cfg.ToolConcurrency, log)
	chatSvc, err := service.NewChatService(assistant, dispatcher, events, service.Config{
		AssistantID:      cfg.AssistantID,
		PollInterval:     cfg.RunPollInterval,
		ThreadRetry:      service.RetryPolicy{Attempts: cfg.ThreadCreateAttempts, Delay: cfg.ThreadCreateDelay},
		MessageListLimit: cfg.MessageListLimit,
	}, log)
	if err != nil {
		return fmt.Errorf("create chat service: %w", err)
	}

	healthHandler := handler.NewHealthHandler(assistant, natsConn, db, log)
	chatHandler := handler.NewChatHandler(chatSvc, cfg.ChatTimeout, log)
	eventsHandler := handler.NewEventsHandler(eventReader, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	r.Get("/", healthHandler.Info)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/test-openai", healthHandler.TestOpenAI)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).Post("/chat", chatHandler.Chat)
	r.Get("/threads/{threadID}/events", eventsHandler.List)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
