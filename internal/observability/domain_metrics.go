package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	toolDispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookwise_tool_dispatches_total",
			Help: "Total number of tool dispatches by tool name and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookwise_query_duration_seconds",
			Help:    "Dataset query execution latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookwise_query_rows_returned",
			Help:    "Rows returned per dataset query after the row cap.",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
	)
	queriesRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookwise_queries_rejected_total",
			Help: "Total number of statements rejected by the SQL safety filter.",
		},
	)
	ticketsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookwise_tickets_created_total",
			Help: "Total number of support tickets created by provider.",
		},
		[]string{"provider"},
	)
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookwise_chat_requests_total",
			Help: "Total number of chat requests by routing mode.",
		},
		[]string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(
		toolDispatchesTotal,
		queryDurationSeconds,
		queryRowsReturned,
		queriesRejectedTotal,
		ticketsCreatedTotal,
		chatRequestsTotal,
	)
}

func ObserveToolDispatch(tool, outcome string) {
	toolDispatchesTotal.WithLabelValues(tool, outcome).Inc()
}

func ObserveQuery(rows int, elapsed time.Duration) {
	queryDurationSeconds.Observe(elapsed.Seconds())
	if rows >= 0 {
		queryRowsReturned.Observe(float64(rows))
	}
}

func IncrementQueryRejected() {
	queriesRejectedTotal.Inc()
}

func ObserveTicketCreated(provider string) {
	ticketsCreatedTotal.WithLabelValues(provider).Inc()
}

func ObserveChatRequest(mode string) {
	chatRequestsTotal.WithLabelValues(mode).Inc()
}
