package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type briefingRequest struct {
	Location string `json:"location"`
}

func handleBriefing(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Briefing == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "BRIEFING_NOT_CONFIGURED", "briefing dependencies are not configured", false, nil)
		return
	}

	var request briefingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid briefing request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Location) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "LOCATION_REQUIRED", "location is required", false, nil)
		return
	}

	result, err := deps.Briefing.ForLocation(r.Context(), request.Location)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadGateway, "BRIEFING_FAILED", "briefing generation failed", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}
