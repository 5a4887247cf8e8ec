package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bookwise/bookwise/internal/agent"
	"github.com/bookwise/bookwise/internal/api"
	"github.com/bookwise/bookwise/internal/briefing"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/dataset/sqldb"
	"github.com/bookwise/bookwise/internal/media"
	"github.com/bookwise/bookwise/internal/observability"
	"github.com/bookwise/bookwise/internal/storage"
	s3store "github.com/bookwise/bookwise/internal/storage/s3"
	"github.com/bookwise/bookwise/internal/ticket"
	"github.com/bookwise/bookwise/internal/tools"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("bookwise-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	executor := sqldb.NewExecutor(cfg.Dataset.Driver, cfg.Dataset.Path)
	reporter := sqldb.NewReporter(executor)

	sink, err := buildTicketSink(cfg)
	if err != nil {
		logger.Error("failed to initialize ticket sink", slog.Any("error", err))
		os.Exit(1)
	}

	dispatcher := tools.NewDispatcher(executor, reporter, sink, cfg.Dataset.DefaultMaxRows, logger)

	var llmClient *agent.OpenAIClient
	if cfg.AI.Enabled {
		llmClient, err = agent.NewOpenAIClient(agent.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize chat client", slog.Any("error", err))
			os.Exit(1)
		}
	}
	chatAgent := agent.New(llmClient, dispatcher, logger)

	deps := api.Dependencies{
		Logger:     logger,
		Executor:   executor,
		Reporter:   reporter,
		TicketSink: sink,
		Agent:      chatAgent,
		Readiness: api.CombineReadinessChecks(
			api.CheckDatasetPath(cfg),
			api.CheckTicketSink(cfg),
		),
		DependencyTimeout: time.Second,
	}

	if cfg.AI.Enabled {
		briefingService, err := briefing.NewService(briefing.Config{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.Briefing.Model,
			Temperature: cfg.Briefing.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize briefing service", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Briefing = briefingService
	}

	if cfg.Media.Enabled {
		var archive storage.ObjectStore
		if cfg.Media.ArchiveEnabled {
			store, err := s3store.New(context.Background(), s3store.Config{
				Endpoint:         cfg.ObjectStore.Endpoint,
				Region:           cfg.ObjectStore.Region,
				Bucket:           cfg.ObjectStore.Bucket,
				AccessKeyID:      cfg.ObjectStore.AccessKeyID,
				SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
				UseSSL:           cfg.ObjectStore.UseSSL,
				Prefix:           cfg.ObjectStore.Prefix,
				AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
			})
			if err != nil {
				logger.Error("failed to initialize media archive", slog.Any("error", err))
				os.Exit(1)
			}
			archive = store
		}
		pipeline, err := media.NewPipeline(media.Config{
			BaseURL:            cfg.AI.BaseURL,
			APIKey:             cfg.AI.APIKey,
			TranscriptionModel: cfg.Media.TranscriptionModel,
			PromptModel:        cfg.AI.Model,
			ImageModel:         cfg.Media.ImageModel,
			ImageSize:          cfg.Media.ImageSize,
		}, archive, logger)
		if err != nil {
			logger.Error("failed to initialize media pipeline", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Media = pipeline
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

// buildTicketSink picks the provider once at startup: GitHub when credentials
// are configured, local JSON files otherwise. A remote failure at runtime
// never falls back to local.
func buildTicketSink(cfg config.Config) (ticket.Sink, error) {
	if cfg.Tickets.GitHubToken != "" && cfg.Tickets.GitHubRepo != "" {
		return ticket.NewGitHubSink(ticket.GitHubConfig{
			Token: cfg.Tickets.GitHubToken,
			Repo:  cfg.Tickets.GitHubRepo,
		})
	}
	return ticket.NewLocalSink(cfg.Tickets.LocalDir)
}
