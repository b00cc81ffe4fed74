package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/market-pulse/pkg/logger"
)

// Request describes one HTTP call made through the fetcher
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// FetchError reports an exhausted or non-retryable fetch
type FetchError struct {
	URL        string
	LastStatus int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s failed (status %d): %v", e.URL, e.LastStatus, e.Cause)
	}
	return fmt.Sprintf("fetch %s failed (status %d)", e.URL, e.LastStatus)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Fetcher performs rate-limited HTTP calls with retry. All provider
// adapters share one instance so that adapters targeting the same host
// also share its token state.
type Fetcher struct {
	client      *http.Client
	limiter     *HostLimiter
	maxBackoff  time.Duration
	callTimeout time.Duration
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithClient overrides the HTTP client (used by tests)
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithMaxBackoff caps the retry backoff delay
func WithMaxBackoff(max time.Duration) Option {
	return func(f *Fetcher) { f.maxBackoff = max }
}

// WithCallTimeout sets the per-attempt timeout
func WithCallTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) { f.callTimeout = timeout }
}

// New creates a fetcher sharing the given host limiter
func New(limiter *HostLimiter, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 30 * time.Second},
		limiter:     limiter,
		maxBackoff:  time.Minute,
		callTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a single attempt. A non-2xx status or transport error
// fails with FetchError.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (int, []byte, error) {
	status, body, err := f.attempt(ctx, req)
	if err != nil {
		return status, nil, &FetchError{URL: req.URL, LastStatus: status, Cause: err}
	}
	if status < 200 || status > 299 {
		return status, body, &FetchError{
			URL:        req.URL,
			LastStatus: status,
			Cause:      fmt.Errorf("unexpected status %d", status),
		}
	}
	return status, body, nil
}

// FetchWithRetry retries transient failures with exponential backoff:
// delay = backoffFactor^attempt seconds, capped at the configured
// maximum. Only network errors, 5xx and 429 are retried; other 4xx
// statuses fail immediately. Every attempt consumes a rate-limit token.
func (f *Fetcher) FetchWithRetry(ctx context.Context, req Request, maxRetries int, backoffFactor float64) (int, []byte, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoffFactor < 1 {
		backoffFactor = 2
	}

	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(backoffFactor, float64(attempt)) * float64(time.Second))
			if delay > f.maxBackoff {
				delay = f.maxBackoff
			}
			logger.Debug("retrying fetch",
				zap.String("url", req.URL),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastStatus, nil, &FetchError{URL: req.URL, LastStatus: lastStatus, Cause: ctx.Err()}
			}
		}

		status, body, err := f.attempt(ctx, req)
		lastStatus = status

		if err == nil && status >= 200 && status <= 299 {
			return status, body, nil
		}

		if err == nil {
			err = fmt.Errorf("unexpected status %d", status)
		}
		lastErr = err

		if !retryable(status, err) {
			logger.Warn("non-retryable fetch failure",
				zap.String("url", req.URL),
				zap.Int("status", status),
				zap.Error(err),
			)
			return status, nil, &FetchError{URL: req.URL, LastStatus: status, Cause: err}
		}

		logger.Warn("retryable fetch failure",
			zap.String("url", req.URL),
			zap.Int("status", status),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return lastStatus, nil, &FetchError{
		URL:        req.URL,
		LastStatus: lastStatus,
		Cause:      fmt.Errorf("max retries (%d) exceeded: %w", maxRetries, lastErr),
	}
}

// attempt performs one HTTP call, consuming one rate-limit token
func (f *Fetcher) attempt(ctx context.Context, req Request) (int, []byte, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid url: %w", err)
	}

	if err := f.limiter.Wait(ctx, parsed.Host); err != nil {
		return 0, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, f.callTimeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(callCtx, method, req.URL, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		// Timeouts and transport errors count as retryable failures
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read body: %w", err)
	}

	return resp.StatusCode, body, nil
}

// retryable reports whether a failed attempt should be retried.
// Network errors (status 0), 5xx and 429 are transient; any other 4xx
// is not.
func retryable(status int, err error) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status >= 500 {
		return true
	}
	if status >= 400 {
		return false
	}
	// No usable response: transport error, timeout or truncated body
	return err != nil
}
