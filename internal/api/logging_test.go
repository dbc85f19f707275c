package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusRecorder(t *testing.T) {
	base := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: base, status: 200}

	rec.WriteHeader(http.StatusTeapot)
	if _, err := rec.Write([]byte("short")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := rec.Write([]byte(" and stout")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if rec.status != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.status, http.StatusTeapot)
	}
	if rec.written != len("short and stout") {
		t.Errorf("written = %d, want %d", rec.written, len("short and stout"))
	}
	if rec.Unwrap() != http.ResponseWriter(base) {
		t.Error("Unwrap did not return the underlying writer")
	}
}

func TestJSONLoggerPassesThrough(t *testing.T) {
	handler := JSONLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}
