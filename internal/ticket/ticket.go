// Package ticket persists support tickets, either through the GitHub issues
// API when credentials are configured or as local JSON files when they are
// not. A remote failure never falls back to local storage: the fallback
// decision is made once from configuration, not per call.
package ticket

import "context"

const (
	StatusCreated = "created"
	StatusError   = "error"

	ProviderGitHub = "github"
	ProviderLocal  = "local"
)

// Receipt is the normalized outcome of a create call. Remote rejections are
// reported through Status/Details rather than an error so the caller sees
// the same shape for every provider.
type Receipt struct {
	Status      string `json:"status"`
	Provider    string `json:"provider"`
	IssueNumber int64  `json:"issue_number,omitempty"`
	URL         string `json:"html_url,omitempty"`
	ID          string `json:"id,omitempty"`
	Path        string `json:"path,omitempty"`
	Details     string `json:"details,omitempty"`
}

type Sink interface {
	Create(ctx context.Context, title, body string) (Receipt, error)
}
