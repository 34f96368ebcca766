package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSON_DecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("missing header, got %q", r.Header.Get("X-Test"))
		}
		json.NewEncoder(w).Encode(map[string]int{"n": 7})
	}))
	defer srv.Close()

	var out struct{ N int }
	err := GetJSON(context.Background(), srv.Client(), srv.URL, http.Header{"X-Test": {"yes"}}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.N != 7 {
		t.Errorf("n = %d", out.N)
	}
}

func TestPostJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("busy"))
	}))
	defer srv.Close()

	err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, map[string]string{"a": "b"}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Body != "busy" {
		t.Errorf("unexpected status error: %+v", se)
	}
	if !IsTransient(err) {
		t.Error("503 should be transient")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"429", &StatusError{StatusCode: 429}, true},
		{"404", &StatusError{StatusCode: 404}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
