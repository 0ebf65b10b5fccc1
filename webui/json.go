package webui

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON error boundary: every failed API call
// returns {"error": "..."}, optionally with extra context fields.
type errorResponse struct {
	Error string `json:"error"`
	// Record carries the last-known training record when a status
	// refresh fails upstream.
	Record interface{} `json:"record,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
