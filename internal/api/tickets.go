package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bookwise/bookwise/internal/ticket"
)

type ticketRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func handleCreateTicket(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.TicketSink == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TICKETS_NOT_CONFIGURED", "ticket dependencies are not configured", false, nil)
		return
	}

	var request ticketRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ticket request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Title) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TITLE_REQUIRED", "title is required", false, nil)
		return
	}

	receipt, err := deps.TicketSink.Create(r.Context(), request.Title, request.Body)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "TICKET_WRITE_FAILED", "failed to persist ticket", true, map[string]any{"details": err.Error()})
		return
	}
	if receipt.Status != ticket.StatusCreated {
		writeError(r.Context(), w, http.StatusBadGateway, "TICKET_PROVIDER_REJECTED", "ticket provider rejected the request", true, map[string]any{"details": receipt.Details, "provider": receipt.Provider})
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}
