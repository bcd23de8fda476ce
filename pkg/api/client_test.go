package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetAndDecode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "test-agent/1.0" {
			t.Errorf("User-Agent = %q, want %q", got, "test-agent/1.0")
		}
		if got := r.Header.Get("X-Session"); got != "abc" {
			t.Errorf("X-Session = %q, want %q", got, "abc")
		}
		fmt.Fprint(w, `{"value":42}`)
	}))
	defer server.Close()

	client := NewClient(nil)
	client.SetUserAgent("test-agent/1.0")
	client.SetDefaultHeader("X-Session", "abc")

	var result struct {
		Value int `json:"value"`
	}
	if err := client.GetAndDecode(context.Background(), server.URL, &result, nil); err != nil {
		t.Fatalf("GetAndDecode() error = %v", err)
	}
	if result.Value != 42 {
		t.Errorf("decoded value = %d, want 42", result.Value)
	}
}

func TestGetAndDecodeRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	client := NewClient(&ClientConfig{
		RetryPolicy: &RetryPolicy{
			MaxAttempts:       3,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        time.Millisecond,
			BackoffMultiplier: 1.0,
			RetryableErrors:   []int{http.StatusServiceUnavailable},
		},
	})

	var result struct {
		OK bool `json:"ok"`
	}
	if err := client.GetAndDecode(context.Background(), server.URL, &result, nil); err != nil {
		t.Fatalf("GetAndDecode() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server calls = %d, want 2", calls.Load())
	}
}

func TestGetAndDecodePermanentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(nil)

	var result any
	if err := client.GetAndDecode(context.Background(), server.URL, &result, nil); err == nil {
		t.Fatal("GetAndDecode() error = nil, want 404 failure")
	}
}

func TestGetReturnsRawResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	client := NewClient(nil)

	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()

	// Raw Get does not interpret the status; the caller decides
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
}
