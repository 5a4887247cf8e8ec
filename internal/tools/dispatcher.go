package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookwise/bookwise/internal/dataset"
	"github.com/bookwise/bookwise/internal/observability"
	"github.com/bookwise/bookwise/internal/ticket"
)

type ChartKind string

const (
	ChartNone       ChartKind = ""
	ChartTimeSeries ChartKind = "time-series"
	ChartRanking    ChartKind = "ranking"
)

type QueryResult struct {
	Columns   []string  `json:"columns"`
	Rows      [][]any   `json:"rows"`
	RowCount  int       `json:"row_count"`
	Truncated bool      `json:"truncated"`
	Chart     ChartKind `json:"chart,omitempty"`
}

// Outcome is the dispatcher's uniform result envelope. Exactly one of the
// payload pointers is set on success; Error and Warning are mutually
// exclusive with them.
type Outcome struct {
	Tool     string            `json:"tool"`
	Query    *QueryResult      `json:"query,omitempty"`
	Ticket   *ticket.Receipt   `json:"ticket,omitempty"`
	Overview *dataset.Overview `json:"overview,omitempty"`
	Error    string            `json:"error,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

type Dispatcher struct {
	executor       dataset.Executor
	reporter       dataset.OverviewReporter
	sink           ticket.Sink
	defaultMaxRows int
	logger         *slog.Logger
}

func NewDispatcher(executor dataset.Executor, reporter dataset.OverviewReporter, sink ticket.Sink, defaultMaxRows int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		executor:       executor,
		reporter:       reporter,
		sink:           sink,
		defaultMaxRows: defaultMaxRows,
		logger:         logger,
	}
}

// Dispatch routes one tool call by name. It never returns a Go error: every
// failure mode is encoded in the Outcome so the caller can feed it straight
// back to the model or the HTTP response.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) Outcome {
	switch name {
	case ToolQueryDB:
		return d.dispatchQuery(ctx, args)
	case ToolCreateSupportTicket:
		return d.dispatchTicket(ctx, args)
	case ToolDatasetOverview:
		return d.dispatchOverview(ctx)
	default:
		d.logger.Warn("unknown tool requested", "tool", name)
		observability.ObserveToolDispatch(name, "unknown")
		return Outcome{Tool: name, Warning: fmt.Sprintf("unknown tool: %s", name)}
	}
}

func (d *Dispatcher) dispatchQuery(ctx context.Context, args json.RawMessage) Outcome {
	var params struct {
		SQL string `json:"sql"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		observability.ObserveToolDispatch(ToolQueryDB, "error")
		return Outcome{Tool: ToolQueryDB, Error: fmt.Sprintf("invalid query_db arguments: %v", err)}
	}
	if strings.TrimSpace(params.SQL) == "" {
		observability.ObserveToolDispatch(ToolQueryDB, "error")
		return Outcome{Tool: ToolQueryDB, Error: "query_db requires a non-empty sql argument"}
	}

	result, err := d.executor.Execute(ctx, dataset.Request{SQL: params.SQL, MaxRows: d.defaultMaxRows})
	if err != nil {
		d.logger.Warn("query failed", "error", err)
		observability.ObserveToolDispatch(ToolQueryDB, "error")
		return Outcome{Tool: ToolQueryDB, Error: err.Error()}
	}

	observability.ObserveToolDispatch(ToolQueryDB, "ok")
	return Outcome{Tool: ToolQueryDB, Query: &QueryResult{
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount,
		Truncated: result.Truncated,
		Chart:     classifyChart(result.Columns),
	}}
}

func (d *Dispatcher) dispatchTicket(ctx context.Context, args json.RawMessage) Outcome {
	var params struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		observability.ObserveToolDispatch(ToolCreateSupportTicket, "error")
		return Outcome{Tool: ToolCreateSupportTicket, Error: fmt.Sprintf("invalid create_support_ticket arguments: %v", err)}
	}
	if strings.TrimSpace(params.Title) == "" {
		observability.ObserveToolDispatch(ToolCreateSupportTicket, "error")
		return Outcome{Tool: ToolCreateSupportTicket, Error: "create_support_ticket requires a non-empty title"}
	}

	receipt, err := d.sink.Create(ctx, params.Title, params.Body)
	if err != nil {
		d.logger.Error("ticket creation failed", "error", err)
		observability.ObserveToolDispatch(ToolCreateSupportTicket, "error")
		return Outcome{Tool: ToolCreateSupportTicket, Error: err.Error()}
	}

	// The dispatcher re-validates the receipt shape: a created ticket must
	// carry a recognized provider paired with its identifying field, an
	// html_url for github and a file path for local. A success report in any
	// other shape is treated as a failure here.
	created := receipt.Status == ticket.StatusCreated
	switch receipt.Provider {
	case ticket.ProviderGitHub:
		created = created && receipt.URL != ""
	case ticket.ProviderLocal:
		created = created && receipt.Path != ""
	default:
		created = false
	}
	if !created {
		observability.ObserveToolDispatch(ToolCreateSupportTicket, "error")
		outcome := Outcome{Tool: ToolCreateSupportTicket, Ticket: &receipt, Error: "ticket provider returned an unrecognized receipt"}
		if receipt.Details != "" {
			outcome.Error = receipt.Details
		}
		return outcome
	}

	observability.ObserveToolDispatch(ToolCreateSupportTicket, "ok")
	return Outcome{Tool: ToolCreateSupportTicket, Ticket: &receipt}
}

func (d *Dispatcher) dispatchOverview(ctx context.Context) Outcome {
	overview, err := d.reporter.Overview(ctx)
	if err != nil {
		d.logger.Warn("overview failed", "error", err)
		observability.ObserveToolDispatch(ToolDatasetOverview, "error")
		return Outcome{Tool: ToolDatasetOverview, Error: err.Error()}
	}
	observability.ObserveToolDispatch(ToolDatasetOverview, "ok")
	return Outcome{Tool: ToolDatasetOverview, Overview: &overview}
}

// classifyChart picks a rendering hint from the result columns alone, so the
// monthly buckets and the top book rankings come back chart ready regardless
// of how the statement was phrased.
func classifyChart(columns []string) ChartKind {
	seen := make(map[string]bool, len(columns))
	for _, column := range columns {
		seen[strings.ToLower(column)] = true
	}
	if len(seen) == 2 && seen["ym"] && seen["n"] {
		return ChartTimeSeries
	}
	if seen["avg_rating"] && seen["title"] {
		return ChartRanking
	}
	return ChartNone
}
