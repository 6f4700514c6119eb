// Package httputil provides shared HTTP utilities for consistent JSON replies.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"
)

// ContentTypeJSON is the content type of every mock reply.
const ContentTypeJSON = "application/json; charset=utf-8"

// Permissive CORS values sent on mock replies and preflight responses.
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	AllowHeaders = "Content-Type, Authorization"
)

// SetCORS sets the permissive CORS headers on h.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", AllowOrigin)
	h.Set("Access-Control-Allow-Methods", AllowMethods)
	h.Set("Access-Control-Allow-Headers", AllowHeaders)
}

// WritePreflight answers an OPTIONS request: 200, CORS headers, empty body.
func WritePreflight(w http.ResponseWriter) {
	SetCORS(w.Header())
	w.WriteHeader(http.StatusOK)
}

// Reply writes payload as JSON with the given status. The JSON content type
// and CORS headers are set first, then headers, so a route can override any
// default. A nil payload is encoded as JSON null.
func Reply(w http.ResponseWriter, status int, payload any, headers map[string]string) {
	h := w.Header()
	h.Set("Content-Type", ContentTypeJSON)
	SetCORS(h)
	for k, v := range headers {
		h.Set(k, v)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		data, _ = json.Marshal(map[string]any{
			"error":   "response not serializable",
			"message": err.Error(),
			"code":    http.StatusInternalServerError,
		})
		_, _ = w.Write(data)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	Reply(w, status, data, nil)
}

// WriteError writes {"error", "message", "code"} with the given status.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, map[string]any{
		"error":   errCode,
		"message": message,
		"code":    status,
	})
}

// WriteNotFound writes the catch-all 404 for requests nothing answered.
func WriteNotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]any{
		"error":     "api not found",
		"path":      r.URL.RequestURI(),
		"method":    r.Method,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteInternalError writes a 500 with a timestamp, used outside mock handlers.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusInternalServerError, map[string]any{
		"error":     "internal server error",
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
