// Package api is the read-path HTTP surface (spec's external interfaces):
// list/detail/search/recommend/trending over the Aggregator, Catalog Store,
// Search and Recommender, grounded on the teacher's chi_router.go +
// chi_middleware.go + response.go composition (go-chi/chi/v5 router,
// request-ID + structured-log middleware, a standardized JSON envelope).
// Admin CRUD, auth, and the dashboard are explicitly out of scope (spec §1).
package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/videocatalog/catalogcore/internal/logging"
)

// Response is the standardized JSON envelope every handler writes, mirroring
// the teacher's APIResponse/APIError/APIMeta wrapper.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Error is an error response's machine-readable code plus a human message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination/tracing metadata alongside successful responses.
type Meta struct {
	RequestID  string      `json:"request_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total,omitempty"`
	HasMore  bool `json:"has_more"`
}

// Error codes used across handlers.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("api: failed to encode response")
	}
}

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

// writeSuccess writes data with a 200 status and no pagination.
func writeSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{RequestID: requestID(r), Timestamp: time.Now()},
	})
}

// writePaginated writes data alongside pagination metadata.
func writePaginated(w http.ResponseWriter, r *http.Request, data interface{}, page Pagination) {
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &Meta{RequestID: requestID(r), Timestamp: time.Now(), Pagination: &page},
	})
}

// writeError writes a standardized error envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, Response{
		Success: false,
		Error:   &Error{Code: code, Message: message},
		Meta:    &Meta{RequestID: requestID(r), Timestamp: time.Now()},
	})
}
