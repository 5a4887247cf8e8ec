// Package dataset defines the read-only query surface over the books and
// reviews tables.
package dataset

import (
	"context"
	"errors"
	"time"
)

// ErrUnsafeStatement is returned before any connection is opened when a
// statement trips the safety filter.
var ErrUnsafeStatement = errors.New("unsafe SQL detected: only read-only SELECT queries are allowed")

type Request struct {
	SQL string
	// MaxRows caps the rows kept from the materialized result. Zero means
	// zero rows; callers that want the default apply it themselves.
	MaxRows int
}

type Result struct {
	Columns   []string
	Rows      [][]any
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

type TopBook struct {
	Title       string  `json:"title"`
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int64   `json:"review_count"`
}

type MonthCount struct {
	Month string `json:"ym"`
	Count int64  `json:"n"`
}

type Overview struct {
	Books          int64        `json:"books"`
	BookReviews    int64        `json:"book_reviews"`
	TopBooks       []TopBook    `json:"top_books"`
	ReviewsByMonth []MonthCount `json:"reviews_by_month"`
}

type Executor interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

type OverviewReporter interface {
	Overview(ctx context.Context) (Overview, error)
}
