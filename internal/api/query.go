package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/dataset"
	"github.com/bookwise/bookwise/internal/export"
)

type queryRequest struct {
	SQL string `json:"sql"`
	// MaxRows distinguishes absent (apply the configured default) from an
	// explicit zero.
	MaxRows *int `json:"max_rows"`
}

type queryResponse struct {
	Columns   []string       `json:"columns"`
	Rows      [][]any        `json:"rows"`
	RowCount  int            `json:"row_count"`
	Truncated bool           `json:"truncated"`
	Stats     map[string]any `json:"stats"`
}

func handleQuery(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	result, ok := runQuery(cfg, deps, w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount,
		Truncated: result.Truncated,
		Stats: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
		},
	})
}

func handleQueryExport(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	result, ok := runQuery(cfg, deps, w, r)
	if !ok {
		return
	}
	data, err := export.ToParquet(result)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "EXPORT_FAILED", err.Error(), false, nil)
		return
	}
	filename := fmt.Sprintf("bookwise-export-%s.parquet", time.Now().UTC().Format("20060102T150405"))
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func runQuery(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) (dataset.Result, bool) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return dataset.Result{}, false
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return dataset.Result{}, false
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return dataset.Result{}, false
	}

	maxRows := cfg.Dataset.DefaultMaxRows
	if request.MaxRows != nil {
		if *request.MaxRows < 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "MAX_ROWS_INVALID", "max_rows must be >= 0", false, nil)
			return dataset.Result{}, false
		}
		maxRows = *request.MaxRows
	}

	result, err := deps.Executor.Execute(r.Context(), dataset.Request{SQL: request.SQL, MaxRows: maxRows})
	if err != nil {
		if errors.Is(err, dataset.ErrUnsafeStatement) {
			writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", err.Error(), false, nil)
			return dataset.Result{}, false
		}
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
		return dataset.Result{}, false
	}
	return result, true
}

func handleOverview(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Reporter == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "OVERVIEW_NOT_CONFIGURED", "overview dependencies are not configured", false, nil)
		return
	}
	overview, err := deps.Reporter.Overview(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "OVERVIEW_FAILED", "failed to build dataset overview", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
