package httpapi

import (
	"encoding/json"
	"net/http"
)

// maxRequestBody caps the request body size. The largest legitimate
// payload (a decision request carrying a token plus policy facts) stays
// well under 32 KiB.
const maxRequestBody = 32 * 1024

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
