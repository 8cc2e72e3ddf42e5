package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/loadfile/loadfile/internal/config"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeSuccess},
		{errors.New("dial tcp 127.0.0.1:8188: connect: connection refused"), ErrorTypeNetwork},
		{errors.New("read: connection reset by peer"), ErrorTypeNetwork},
		{errors.New("unexpected EOF"), ErrorTypeNetwork},
		{errors.New("upload failed: status 503: busy"), ErrorTypeRetryable},
		{errors.New("upload failed: status 500: disk full"), ErrorTypeFatal},
		{errors.New("something odd"), ErrorTypeFatal},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %s, want %s", tt.err, ErrorTypeName(got), ErrorTypeName(tt.want))
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	if got := CalculateBackoff(0, time.Second, time.Minute); got != 0 {
		t.Errorf("attempt 0 backoff = %v, want 0", got)
	}
	if got := CalculateBackoff(3, 0, 0); got != 0 {
		t.Errorf("zero delays backoff = %v, want 0", got)
	}
	for attempt := 1; attempt < 40; attempt++ {
		got := CalculateBackoff(attempt, 100*time.Millisecond, 2*time.Second)
		if got < 0 || got >= 2*time.Second {
			t.Fatalf("attempt %d backoff = %v, want [0, 2s)", attempt, got)
		}
	}
}

func TestCheckRetry(t *testing.T) {
	get, _ := nethttp.NewRequest(nethttp.MethodGet, "http://x/loadfile/files", nil)
	post, _ := nethttp.NewRequest(nethttp.MethodPost, "http://x/loadfile/upload", nil)

	tests := []struct {
		name   string
		req    *nethttp.Request
		status int
		want   bool
	}{
		{"GET 200", get, 200, false},
		{"GET 404", get, 404, false},
		{"GET 500", get, 500, true},
		{"POST 500 not replayed", post, 500, false},
		{"POST 400", post, 400, false},
		{"POST 429", post, 429, true},
		{"POST 502", post, 502, true},
		{"POST 503", post, 503, true},
		{"GET 504", get, 504, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &nethttp.Response{StatusCode: tt.status, Request: tt.req, Header: nethttp.Header{}}
			got, err := CheckRetry(context.Background(), resp, nil)
			if err != nil {
				t.Fatalf("CheckRetry() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CheckRetry() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		retry, err := CheckRetry(ctx, nil, fmt.Errorf("connection refused"))
		if retry || !errors.Is(err, context.Canceled) {
			t.Errorf("CheckRetry() = %v, %v; want false, context.Canceled", retry, err)
		}
	})

	t.Run("transport error retried", func(t *testing.T) {
		retry, err := CheckRetry(context.Background(), nil, fmt.Errorf("connection refused"))
		if !retry || err != nil {
			t.Errorf("CheckRetry() = %v, %v; want true, nil", retry, err)
		}
	})
}

func TestBackoffRetryAfter(t *testing.T) {
	resp := &nethttp.Response{StatusCode: 429, Header: nethttp.Header{"Retry-After": []string{"2"}}}
	if got := Backoff(10*time.Millisecond, time.Minute, 1, resp); got != 2*time.Second {
		t.Errorf("Backoff() with Retry-After = %v, want 2s", got)
	}
	if got := Backoff(10*time.Millisecond, 50*time.Millisecond, 1, nil); got >= 50*time.Millisecond {
		t.Errorf("Backoff() = %v, want < 50ms", got)
	}
}

func TestNewRetryClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		n := calls.Add(1)
		if r.Method == nethttp.MethodPost {
			nethttp.Error(w, "disk full", nethttp.StatusInternalServerError)
			return
		}
		if n < 3 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"files":[]}`)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.MaxRetries = 3
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond

	client, err := NewRetryClient(cfg, nil)
	if err != nil {
		t.Fatalf("NewRetryClient() error = %v", err)
	}

	resp, err := client.Get(srv.URL + "/loadfile/files")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200 after retries", resp.StatusCode)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("GET attempts = %d, want 3", n)
	}

	calls.Store(0)
	req, _ := retryablehttp.NewRequest(nethttp.MethodPost, srv.URL+"/loadfile/upload", []byte("x"))
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 500 || string(body) != "disk full\n" {
		t.Errorf("POST response = %d %q, want 500 \"disk full\\n\"", resp.StatusCode, body)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("POST attempts = %d, want 1", n)
	}
}
