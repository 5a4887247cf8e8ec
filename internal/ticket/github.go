package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bookwise/bookwise/internal/observability"
)

// Issues are always filed under one fixed organization; only the repository
// name is configurable.
const issueOwner = "bookwise-labs"

type GitHubConfig struct {
	Token   string
	Repo    string
	BaseURL string
	Timeout time.Duration
}

type GitHubSink struct {
	token   string
	repo    string
	baseURL string
	client  *http.Client
}

func NewGitHubSink(cfg GitHubConfig) (*GitHubSink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if strings.TrimSpace(cfg.Repo) == "" {
		return nil, fmt.Errorf("github repository is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GitHubSink{
		token:   strings.TrimSpace(cfg.Token),
		repo:    strings.TrimSpace(cfg.Repo),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *GitHubSink) Create(ctx context.Context, title, body string) (Receipt, error) {
	payload, err := json.Marshal(map[string]string{"title": title, "body": body})
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal issue payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues", s.baseURL, issueOwner, s.repo)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Receipt{}, fmt.Errorf("build issue request: %w", err)
	}
	httpReq.Header.Set("Authorization", "token "+s.token)
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Receipt{Status: StatusError, Provider: ProviderGitHub, Details: err.Error()}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Receipt{Status: StatusError, Provider: ProviderGitHub, Details: err.Error()}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Receipt{Status: StatusError, Provider: ProviderGitHub, Details: string(rawBody)}, nil
	}

	var parsed struct {
		Number  int64  `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return Receipt{Status: StatusError, Provider: ProviderGitHub, Details: err.Error()}, nil
	}

	observability.ObserveTicketCreated(ProviderGitHub)
	return Receipt{
		Status:      StatusCreated,
		Provider:    ProviderGitHub,
		IssueNumber: parsed.Number,
		URL:         parsed.HTMLURL,
	}, nil
}
