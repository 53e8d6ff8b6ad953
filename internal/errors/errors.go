// ABOUTME: JSON error responses for the admin API.
// ABOUTME: Every handler reports failures through WriteError so clients parse one shape.

package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every admin API error.
//
//	WriteError(w, http.StatusNotFound, ErrPluginNotFound, "plugin 'Foo' is not loaded")
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// WriteError writes a JSON error with the given status and machine-readable code
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{Code: code, Message: message, Status: status})
}

// WriteErrorWithField names the request field that failed validation
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	writeErrorResponse(w, ErrorResponse{Code: code, Message: message, Status: status, Field: field})
}

// WriteErrorWithDetails attaches extra context, usually the underlying error text
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeErrorResponse(w, ErrorResponse{Code: code, Message: message, Status: status, Details: details})
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

const (
	// Client errors (4xx)
	ErrInvalidRequest       = "invalid_request"
	ErrInvalidBody          = "invalid_request_body"
	ErrMissingField         = "missing_field"
	ErrNotFound             = "not_found"
	ErrPluginNotFound       = "plugin_not_found"
	ErrPluginLoaded         = "plugin_already_loaded"
	ErrPluginNotLoaded      = "plugin_not_loaded"
	ErrCorePlugin           = "core_plugin"
	ErrUnauthorized         = "unauthorized"
	ErrForbiddenOrigin      = "forbidden_origin"
	ErrUnsupportedMediaType = "unsupported_media_type"

	// Server errors (5xx)
	ErrInternal           = "internal_error"
	ErrDatabaseError      = "database_error"
	ErrServiceUnavailable = "service_unavailable"
)
