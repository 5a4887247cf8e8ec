// Package router maps free-text chat input to a tool call when no language
// model is configured. It is a priority-ordered keyword cascade, not a
// classifier: the input is lowercased, tested in fixed order and the first
// match wins. There is no tokenization, stemming or negation handling.
package router

import (
	"encoding/json"
	"strings"

	"github.com/bookwise/bookwise/internal/tools"
)

const fallbackTicketTitle = "Support request from chat"

const ratingDistributionSQL = `SELECT review_rating, COUNT(*) AS n FROM book_reviews GROUP BY review_rating ORDER BY CAST(review_rating AS INTEGER)`

var ticketKeywords = []string{"ticket", "support", "human", "issue"}

type Intent struct {
	Tool string
	Args json.RawMessage
}

// Route is pure: same message in, same intent out.
func Route(message string) Intent {
	lowered := strings.ToLower(message)

	for _, keyword := range ticketKeywords {
		if strings.Contains(lowered, keyword) {
			return Intent{Tool: tools.ToolCreateSupportTicket, Args: marshalArgs(map[string]string{
				"title": fallbackTicketTitle,
				"body":  message,
			})}
		}
	}
	if strings.Contains(lowered, "select") {
		return Intent{Tool: tools.ToolQueryDB, Args: marshalArgs(map[string]string{"sql": message})}
	}
	if strings.Contains(lowered, "rating distribution") {
		return Intent{Tool: tools.ToolQueryDB, Args: marshalArgs(map[string]string{"sql": ratingDistributionSQL})}
	}
	return Intent{Tool: tools.ToolDatasetOverview, Args: json.RawMessage(`{}`)}
}

func marshalArgs(args map[string]string) json.RawMessage {
	encoded, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return encoded
}
