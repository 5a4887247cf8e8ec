package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bookwise/bookwise/internal/dataset"
)

// The overview statements are fixed and trusted, so they bypass the safety
// filter and only share the read-only connection primitive with the executor.
const (
	countBooksSQL   = `SELECT COUNT(*) FROM books`
	countReviewsSQL = `SELECT COUNT(*) FROM book_reviews`

	topBooksSQL = `SELECT b.title, AVG(CAST(r.review_rating AS REAL)) AS avg_rating, COUNT(*) AS review_count
FROM book_reviews r
JOIN books b ON b.id = CAST(r.book_id AS INTEGER)
GROUP BY b.title
HAVING COUNT(*) >= 5
ORDER BY avg_rating DESC, review_count DESC
LIMIT 10`

	reviewsByMonthSQL = `SELECT substr(review_date, 1, 7) AS ym, COUNT(*) AS n
FROM book_reviews
GROUP BY ym
ORDER BY ym ASC`
)

type Reporter struct {
	executor *Executor
}

func NewReporter(executor *Executor) *Reporter {
	return &Reporter{executor: executor}
}

func (r *Reporter) Overview(ctx context.Context) (dataset.Overview, error) {
	db, err := r.executor.connect()
	if err != nil {
		return dataset.Overview{}, err
	}
	defer func() { _ = db.Close() }()

	var overview dataset.Overview
	if err := db.QueryRowContext(ctx, countBooksSQL).Scan(&overview.Books); err != nil {
		return dataset.Overview{}, fmt.Errorf("count books: %w", err)
	}
	if err := db.QueryRowContext(ctx, countReviewsSQL).Scan(&overview.BookReviews); err != nil {
		return dataset.Overview{}, fmt.Errorf("count book reviews: %w", err)
	}

	overview.TopBooks, err = queryTopBooks(ctx, db)
	if err != nil {
		return dataset.Overview{}, err
	}
	overview.ReviewsByMonth, err = queryReviewsByMonth(ctx, db)
	if err != nil {
		return dataset.Overview{}, err
	}
	return overview, nil
}

func queryTopBooks(ctx context.Context, db *sql.DB) ([]dataset.TopBook, error) {
	rows, err := db.QueryContext(ctx, topBooksSQL)
	if err != nil {
		return nil, fmt.Errorf("query top books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	top := make([]dataset.TopBook, 0, 10)
	for rows.Next() {
		var entry dataset.TopBook
		if err := rows.Scan(&entry.Title, &entry.AvgRating, &entry.ReviewCount); err != nil {
			return nil, fmt.Errorf("scan top book: %w", err)
		}
		top = append(top, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top books: %w", err)
	}
	return top, nil
}

func queryReviewsByMonth(ctx context.Context, db *sql.DB) ([]dataset.MonthCount, error) {
	rows, err := db.QueryContext(ctx, reviewsByMonthSQL)
	if err != nil {
		return nil, fmt.Errorf("query reviews by month: %w", err)
	}
	defer func() { _ = rows.Close() }()

	series := make([]dataset.MonthCount, 0)
	for rows.Next() {
		var entry dataset.MonthCount
		if err := rows.Scan(&entry.Month, &entry.Count); err != nil {
			return nil, fmt.Errorf("scan month bucket: %w", err)
		}
		series = append(series, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month buckets: %w", err)
	}
	return series, nil
}
