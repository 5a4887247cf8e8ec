package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bookwise/bookwise/internal/observability"
)

type localRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	Provider  string `json:"provider"`
}

// LocalSink writes one JSON file per ticket under its directory. It is the
// configured fallback for deployments without GitHub credentials.
type LocalSink struct {
	dir string
	now func() time.Time
}

func NewLocalSink(dir string) (*LocalSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("ticket directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ticket directory: %w", err)
	}
	return &LocalSink{dir: dir, now: time.Now}, nil
}

func (s *LocalSink) Create(ctx context.Context, title, body string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	createdAt := s.now().UTC().Format(time.RFC3339)
	id := "local-" + strings.ReplaceAll(createdAt, ":", "-")

	record := localRecord{
		ID:        id,
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
		Provider:  ProviderLocal,
	}
	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal ticket: %w", err)
	}

	path := filepath.Join(s.dir, id+".json")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return Receipt{}, fmt.Errorf("write ticket file: %w", err)
	}

	observability.ObserveTicketCreated(ProviderLocal)
	return Receipt{
		Status:   StatusCreated,
		Provider: ProviderLocal,
		ID:       id,
		Path:     path,
	}, nil
}
