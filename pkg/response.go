package pkg

import (
	"encoding/json"
	"log"
	"net/http"
)

// JSON writes data as the entire response body (no envelope wrapper —
// success bodies are the entity itself per the REST surface).
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[api] failed to encode response: %v", err)
	}
}

// NoContent writes a bare 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

type errorBody struct {
	Error string `json:"error"`
}

// Error writes {"error": "..."} with the status mapped from err's Kind.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(errorBody{Error: err.Error()}); encErr != nil {
		log.Printf("[api] failed to encode error response: %v", encErr)
	}
}

// ErrorWithMessage writes {"error": message} at the given status directly,
// bypassing Kind resolution — used at the edge for malformed-request
// cases that never reach a domain error (bad JSON, missing path params).
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Error: message}); err != nil {
		log.Printf("[api] failed to encode error response: %v", err)
	}
}

// StatusFor maps a domain error's Kind to the HTTP status spec.md §7 names.
func StatusFor(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
