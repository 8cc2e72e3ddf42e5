package http

import (
	"context"
	"math/rand"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/loadfile/loadfile/internal/config"
)

// ErrorType represents different classes of errors for retry strategy
type ErrorType int

const (
	// ErrorTypeSuccess indicates operation succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeNetwork indicates network/connection issues (timeouts, connection refused, etc.)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors that can be retried (502, 503, throttling)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates errors that should not be retried (400, 404, disk full)
	ErrorTypeFatal
)

// ClassifyError determines the error type of a transport or status error
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "tls handshake timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "eof") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") {
		return ErrorTypeNetwork
	}

	if strings.Contains(errStr, "status 429") ||
		strings.Contains(errStr, "status 502") ||
		strings.Contains(errStr, "status 503") ||
		strings.Contains(errStr, "status 504") ||
		strings.Contains(errStr, "service unavailable") {
		return ErrorTypeRetryable
	}

	// Unknown errors are fatal to avoid retrying unexpected failures
	return ErrorTypeFatal
}

// ErrorTypeName returns a human-readable name for an ErrorType
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// CalculateBackoff returns exponential backoff duration with full jitter
//
// Formula: random(0, min(maxDelay, initialDelay * 2^attempt))
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}
	if base <= 0 {
		return 0
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// CheckRetry is the retry policy for the editor server.
//
// Transport errors follow retryablehttp's default policy (TLS and redirect
// failures are permanent). 429/502/503/504 are retried for every method.
// 500 is retried only for GET: the upload handler is not idempotent, a
// replayed POST may store a second copy under a suffixed name.
func CheckRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	switch resp.StatusCode {
	case nethttp.StatusTooManyRequests, nethttp.StatusBadGateway,
		nethttp.StatusServiceUnavailable, nethttp.StatusGatewayTimeout:
		return true, nil
	case nethttp.StatusInternalServerError:
		return resp.Request != nil && resp.Request.Method == nethttp.MethodGet, nil
	}
	return false, nil
}

// Backoff honors Retry-After when the server sends it and otherwise uses
// CalculateBackoff's full jitter.
func Backoff(min, max time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil && resp.Header.Get("Retry-After") != "" {
		return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	}
	return CalculateBackoff(attemptNum+1, min, max)
}

// NewRetryClient wraps NewClient with retryablehttp using cfg's retry limits.
// The last response is handed back after retries are exhausted so callers
// can read the server's error body.
func NewRetryClient(cfg *config.Config, logger retryablehttp.LeveledLogger) (*retryablehttp.Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	httpClient, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = CheckRetry
	retryClient.Backoff = Backoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = logger

	return retryClient, nil
}
