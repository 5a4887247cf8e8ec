package router

import (
	"encoding/json"
	"testing"

	"github.com/bookwise/bookwise/internal/tools"
)

func TestRouteTicketKeywordsCarryOriginalMessage(t *testing.T) {
	message := "I need a human please"
	intent := Route(message)
	if intent.Tool != tools.ToolCreateSupportTicket {
		t.Fatalf("Tool = %q", intent.Tool)
	}
	args := decodeArgs(t, intent)
	if args["title"] != "Support request from chat" {
		t.Fatalf("title = %q", args["title"])
	}
	if args["body"] != message {
		t.Fatalf("body = %q", args["body"])
	}
}

func TestRouteSelectTreatsMessageAsStatement(t *testing.T) {
	message := "select * from books"
	intent := Route(message)
	if intent.Tool != tools.ToolQueryDB {
		t.Fatalf("Tool = %q", intent.Tool)
	}
	if args := decodeArgs(t, intent); args["sql"] != message {
		t.Fatalf("sql = %q", args["sql"])
	}
}

func TestRouteRatingDistributionUsesCannedStatement(t *testing.T) {
	intent := Route("show me rating distribution")
	if intent.Tool != tools.ToolQueryDB {
		t.Fatalf("Tool = %q", intent.Tool)
	}
	if args := decodeArgs(t, intent); args["sql"] != ratingDistributionSQL {
		t.Fatalf("sql = %q", args["sql"])
	}
}

func TestRouteDefaultsToOverview(t *testing.T) {
	intent := Route("hello there")
	if intent.Tool != tools.ToolDatasetOverview {
		t.Fatalf("Tool = %q", intent.Tool)
	}
	var args map[string]any
	if err := json.Unmarshal(intent.Args, &args); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("args = %v", args)
	}
}

func TestRouteTicketKeywordsWinOverSelect(t *testing.T) {
	intent := Route("please open a support ticket to select a better plan")
	if intent.Tool != tools.ToolCreateSupportTicket {
		t.Fatalf("Tool = %q", intent.Tool)
	}
}

func TestRouteIsCaseInsensitive(t *testing.T) {
	if intent := Route("SELECT COUNT(*) FROM books"); intent.Tool != tools.ToolQueryDB {
		t.Fatalf("Tool = %q", intent.Tool)
	}
	if intent := Route("OPEN A TICKET"); intent.Tool != tools.ToolCreateSupportTicket {
		t.Fatalf("Tool = %q", intent.Tool)
	}
}

func decodeArgs(t *testing.T, intent Intent) map[string]string {
	t.Helper()
	var args map[string]string
	if err := json.Unmarshal(intent.Args, &args); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return args
}
