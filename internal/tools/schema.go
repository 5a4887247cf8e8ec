// Package tools exposes the model-facing tool registry and the dispatcher
// that executes tool calls against the dataset and ticket providers.
package tools

import "encoding/json"

const (
	ToolQueryDB             = "query_db"
	ToolCreateSupportTicket = "create_support_ticket"
	ToolDatasetOverview     = "get_dataset_overview"
)

// datasetSchemaDoc is embedded in the query_db description so the model can
// write SQL without a round trip. Both rating and book_id live as text in
// book_reviews, so joins and aggregates need explicit casts.
const datasetSchemaDoc = `Tables:

book_reviews(
  book_id TEXT,            -- stringified integer, join via CAST(book_id AS INTEGER)
  title TEXT,              -- denormalized book title
  price TEXT,
  user_id TEXT,
  profile_name TEXT,
  review_helpfulness TEXT, -- e.g. "7/9"
  review_score TEXT,
  review_rating TEXT,      -- "1".."5", cast before aggregating
  review_date TEXT         -- ISO date, "YYYY-MM-DD"
)

books(
  id INTEGER PRIMARY KEY,
  title TEXT,
  ratings_count INTEGER,
  reviews_count INTEGER
)`

type Definition struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Definitions returns the tool list sent with every chat completion request.
func Definitions() []Definition {
	return []Definition{
		{
			Type: "function",
			Function: Function{
				Name: ToolQueryDB,
				Description: "Run a read-only SQL SELECT against the book review dataset and return rows. " +
					"Write statements are rejected.\n\n" + datasetSchemaDoc,
				Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "sql": {
      "type": "string",
      "description": "A single read-only SELECT statement."
    }
  },
  "required": ["sql"]
}`),
			},
		},
		{
			Type: "function",
			Function: Function{
				Name:        ToolCreateSupportTicket,
				Description: "File a support ticket on behalf of the user. Use when the user reports a problem or asks for help beyond the dataset.",
				Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {
      "type": "string",
      "description": "Short ticket title."
    },
    "body": {
      "type": "string",
      "description": "Full description of the issue."
    }
  },
  "required": ["title", "body"]
}`),
			},
		},
		{
			Type: "function",
			Function: Function{
				Name:        ToolDatasetOverview,
				Description: "Return dataset counts, the top rated books and the monthly review volume.",
				Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
			},
		},
	}
}
