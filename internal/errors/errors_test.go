// ABOUTME: Unit tests for admin API error responses.
// ABOUTME: Validates status, content type and JSON body shape.

package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
	}{
		{"plugin not found", http.StatusNotFound, ErrPluginNotFound, "plugin 'Foo' was not found"},
		{"already loaded", http.StatusConflict, ErrPluginLoaded, "plugin 'Essentials' is already loaded"},
		{"bad body", http.StatusBadRequest, ErrInvalidBody, "request body is malformed"},
		{"database", http.StatusInternalServerError, ErrDatabaseError, "failed to list invocations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.status, tt.code, tt.message)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			resp := decode(t, rec)
			if resp.Code != tt.code || resp.Message != tt.message || resp.Status != tt.status {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}

func TestWriteErrorOmitsEmptyOptionalFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, ErrNotFound, "missing")

	body := rec.Body.String()
	if strings.Contains(body, "field") || strings.Contains(body, "details") {
		t.Errorf("optional fields should be omitted, got %s", body)
	}
}

func TestWriteErrorWithField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorWithField(rec, http.StatusBadRequest, ErrMissingField, "line is required", "line")

	resp := decode(t, rec)
	if resp.Field != "line" {
		t.Errorf("Field = %q, want line", resp.Field)
	}
}

func TestWriteErrorWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorWithDetails(rec, http.StatusInternalServerError, ErrInternal, "load failed", "init: boom")

	resp := decode(t, rec)
	if resp.Details != "init: boom" {
		t.Errorf("Details = %q, want %q", resp.Details, "init: boom")
	}
	if resp.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d", resp.Status)
	}
}
