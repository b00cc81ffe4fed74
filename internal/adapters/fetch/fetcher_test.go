package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher() *Fetcher {
	return New(
		NewHostLimiter(6000, nil),
		WithMaxBackoff(10*time.Millisecond),
		WithCallTimeout(5*time.Second),
	)
}

func TestFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	fetcher := newTestFetcher()

	status, body, err := fetcher.Fetch(context.Background(), Request{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if string(body) != "hello" {
		t.Errorf("Expected body 'hello', got %q", body)
	}
}

func TestFetcher_FetchWithRetry_RecoverAfter500(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := newTestFetcher()

	status, body, err := fetcher.FetchWithRetry(context.Background(), Request{URL: server.URL}, 3, 1)
	if err != nil {
		t.Fatalf("FetchWithRetry failed: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if string(body) != "ok" {
		t.Errorf("Expected body 'ok', got %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetcher_FetchWithRetry_Retries429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	fetcher := newTestFetcher()

	_, _, err := fetcher.FetchWithRetry(context.Background(), Request{URL: server.URL}, 2, 1)
	if err != nil {
		t.Fatalf("FetchWithRetry failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestFetcher_FetchWithRetry_NoRetryOn404(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher()

	status, _, err := fetcher.FetchWithRetry(context.Background(), Request{URL: server.URL}, 3, 1)
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", status)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 attempt, got %d", got)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %T", err)
	}
	if fetchErr.LastStatus != http.StatusNotFound {
		t.Errorf("Expected FetchError status 404, got %d", fetchErr.LastStatus)
	}
}

func TestFetcher_FetchWithRetry_ExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := newTestFetcher()

	_, _, err := fetcher.FetchWithRetry(context.Background(), Request{URL: server.URL}, 2, 1)
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestFetcher_Fetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := newTestFetcher()

	status, _, err := fetcher.Fetch(context.Background(), Request{URL: server.URL})
	if err == nil {
		t.Fatal("Expected error for 502")
	}
	if status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", status)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		err    error
		want   bool
	}{
		{"too many requests", 429, nil, true},
		{"server error", 500, nil, true},
		{"bad gateway", 502, nil, true},
		{"not found", 404, nil, false},
		{"unauthorized", 401, nil, false},
		{"transport error", 0, errors.New("connection refused"), true},
		{"clean success", 200, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.status, tt.err); got != tt.want {
				t.Errorf("retryable(%d, %v) = %v, want %v", tt.status, tt.err, got, tt.want)
			}
		})
	}
}
