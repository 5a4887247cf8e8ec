package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookwise/bookwise/internal/agent"
	"github.com/bookwise/bookwise/internal/briefing"
	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/dataset"
	"github.com/bookwise/bookwise/internal/media"
	"github.com/bookwise/bookwise/internal/observability"
	"github.com/bookwise/bookwise/internal/ticket"
)

type ReadinessCheck func(ctx context.Context) error

type ChatAgent interface {
	Chat(ctx context.Context, message string) (agent.Reply, error)
}

type BriefingService interface {
	ForLocation(ctx context.Context, location string) (briefing.Briefing, error)
}

type MediaPipeline interface {
	VoiceToImage(ctx context.Context, audio io.Reader, filename string) (media.Result, error)
	Archived(ctx context.Context, id, name string) (io.ReadCloser, string, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Executor          dataset.Executor
	Reporter          dataset.OverviewReporter
	TicketSink        ticket.Sink
	Agent             ChatAgent
	Briefing          BriefingService
	Media             MediaPipeline
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/overview", func(w http.ResponseWriter, r *http.Request) {
		handleOverview(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleQuery(cfg, deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/export", func(w http.ResponseWriter, r *http.Request) {
		handleQueryExport(cfg, deps, w, r)
	})
	mux.HandleFunc("POST /v1/chat", func(w http.ResponseWriter, r *http.Request) {
		handleChat(deps, w, r)
	})
	mux.HandleFunc("POST /v1/tickets", func(w http.ResponseWriter, r *http.Request) {
		handleCreateTicket(deps, w, r)
	})
	mux.HandleFunc("POST /v1/briefing", func(w http.ResponseWriter, r *http.Request) {
		handleBriefing(deps, w, r)
	})
	mux.HandleFunc("POST /v1/media/voice-to-image", func(w http.ResponseWriter, r *http.Request) {
		handleVoiceToImage(deps, w, r)
	})
	mux.HandleFunc("GET /v1/media/archive/{id}/{file}", func(w http.ResponseWriter, r *http.Request) {
		handleArchivedMedia(deps, w, r)
	})

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

// CheckDatasetPath reports readiness only when the configured dataset file
// exists on disk.
func CheckDatasetPath(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Dataset.Path == "" {
			return errors.New("dataset path is not configured")
		}
		info, err := os.Stat(cfg.Dataset.Path)
		if err != nil {
			return fmt.Errorf("dataset file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("dataset path %q is a directory", cfg.Dataset.Path)
		}
		return nil
	}
}

func CheckTicketSink(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Tickets.GitHubToken != "" && cfg.Tickets.GitHubRepo != "" {
			return nil
		}
		if cfg.Tickets.LocalDir == "" {
			return errors.New("neither github credentials nor a local ticket directory are configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
