package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/logging"
)

func testConfig(serverURL string) *config.Config {
	cfg := config.Default()
	cfg.ServerURL = serverURL
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	return cfg
}

func newTestClient(t *testing.T, cfg *config.Config, opts ...Option) (*Client, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	opts = append([]Option{WithLogger(logging.NewTestLogger(&logs))}, opts...)
	c, err := NewClient(cfg, opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c, &logs
}

func TestNewClientRejectsUnknownEncoding(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8188")
	cfg.UploadEncoding = "xml"

	_, err := NewClient(cfg)
	if !errors.Is(err, config.ErrInvalidEncoding) {
		t.Fatalf("NewClient() error = %v, want ErrInvalidEncoding", err)
	}
}

func TestNewClientTrimsBaseURL(t *testing.T) {
	c, _ := newTestClient(t, testConfig("http://127.0.0.1:8188/"))
	if c.BaseURL() != "http://127.0.0.1:8188" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
	if c.Encoding() != constants.EncodingMultipart {
		t.Errorf("Encoding() = %q, want multipart", c.Encoding())
	}
}

func TestUploadMultipart(t *testing.T) {
	var gotName, gotField, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != constants.UploadEndpoint {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for field := range r.MultipartForm.File {
			gotField = field
		}
		f, hdr, err := r.FormFile(constants.UploadFormField)
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "filename": "cat_1.png", "path": "/store/cat_1.png", "size": 4}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, testConfig(srv.URL))
	res, err := c.Upload(context.Background(), "cat.png", strings.NewReader("meow"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if gotField != "file" || gotName != "cat.png" || gotBody != "meow" {
		t.Errorf("server saw field=%q name=%q body=%q", gotField, gotName, gotBody)
	}
	if res.StoredName != "cat_1.png" {
		t.Errorf("StoredName = %q, want cat_1.png", res.StoredName)
	}
	if res.Path != "/store/cat_1.png" || res.Size != 4 {
		t.Errorf("unexpected extras %+v", res)
	}
}

func TestUploadJSONEncoding(t *testing.T) {
	var got struct {
		Filename string `json:"filename"`
		Data     string `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode error = %v", err)
		}
		_, _ = w.Write([]byte(`{"filename": "notes.txt"}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.UploadEncoding = constants.EncodingJSON
	c, _ := newTestClient(t, cfg)

	res, err := c.Upload(context.Background(), "notes.txt", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.StoredName != "notes.txt" {
		t.Errorf("StoredName = %q", res.StoredName)
	}
	data, _ := base64.StdEncoding.DecodeString(got.Data)
	if got.Filename != "notes.txt" || string(data) != "hello" {
		t.Errorf("server saw %q / %q", got.Filename, data)
	}
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantOp     string
		wantStatus int
		wantMsg    string
	}{
		{"plain text 500", http.StatusInternalServerError, "disk full\n", OpStatus, 500, "disk full"},
		{"json error body", http.StatusBadRequest, `{"error": "No file provided"}`, OpStatus, 400, "No file provided"},
		{"empty error body", http.StatusForbidden, "", OpStatus, 403, "Forbidden"},
		{"success false", http.StatusOK, `{"success": false, "error": "rejected"}`, OpStatus, 200, "rejected"},
		{"missing filename", http.StatusOK, `{"success": true}`, OpDecode, 0, "missing filename"},
		{"malformed json", http.StatusOK, `<html>`, OpDecode, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, _ := newTestClient(t, testConfig(srv.URL))
			res, err := c.Upload(context.Background(), "big.bin", strings.NewReader("xxxx"))
			if res != nil {
				t.Errorf("Upload() returned partial result %+v", res)
			}

			var te *TransferError
			if !errors.As(err, &te) {
				t.Fatalf("Upload() error = %v, want *TransferError", err)
			}
			if te.Op != tt.wantOp || te.StatusCode != tt.wantStatus {
				t.Errorf("got op=%s status=%d, want op=%s status=%d", te.Op, te.StatusCode, tt.wantOp, tt.wantStatus)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
			if n := atomic.LoadInt32(&calls); n != 1 {
				t.Errorf("server called %d times, want 1", n)
			}
		})
	}
}

func TestUploadTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxRetries = 0
	c, _ := newTestClient(t, cfg)

	_, err := c.Upload(context.Background(), "cat.png", strings.NewReader("meow"))
	var te *TransferError
	if !errors.As(err, &te) || te.Op != OpRequest {
		t.Fatalf("Upload() error = %v, want request TransferError", err)
	}
	if !IsTransferError(err) {
		t.Error("IsTransferError() = false")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("permission denied") }

func TestUploadReadFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, testConfig(srv.URL))
	_, err := c.Upload(context.Background(), "secret.txt", failingReader{})

	var te *TransferError
	if !errors.As(err, &te) || te.Op != OpRead {
		t.Fatalf("Upload() error = %v, want read TransferError", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("no request should be issued when the file cannot be read")
	}
}

func TestUploadRejectsPathNames(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, testConfig(srv.URL))
	for _, name := range []string{"", "../cat.png", `dir\cat.png`} {
		_, err := c.Upload(context.Background(), name, strings.NewReader("meow"))
		var te *TransferError
		if !errors.As(err, &te) || te.Op != OpRequest {
			t.Errorf("Upload(%q) error = %v, want request TransferError", name, err)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("invalid names must not reach the server")
	}
}

type recordingReporter struct {
	mu       sync.Mutex
	started  int64
	last     int64
	finished bool
	err      error
}

func (r *recordingReporter) Start(total int64, _ string) { r.mu.Lock(); r.started = total; r.mu.Unlock() }
func (r *recordingReporter) Update(current int64)        { r.mu.Lock(); r.last = current; r.mu.Unlock() }
func (r *recordingReporter) Finish()                     { r.mu.Lock(); r.finished = true; r.mu.Unlock() }
func (r *recordingReporter) Error(err error)             { r.mu.Lock(); r.err = err; r.mu.Unlock() }
func (r *recordingReporter) SetDescription(string)       {}

func TestUploadReportsProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"filename": "a.bin"}`))
	}))
	defer srv.Close()

	rep := &recordingReporter{}
	c, _ := newTestClient(t, testConfig(srv.URL), WithProgress(rep))

	if _, err := c.Upload(context.Background(), "a.bin", bytes.NewReader(make([]byte, 64*1024))); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	rep.mu.Lock()
	defer rep.mu.Unlock()
	if rep.started <= 64*1024 {
		t.Errorf("Start total = %d, want encoded size above payload size", rep.started)
	}
	if rep.last != rep.started {
		t.Errorf("last update = %d, want %d", rep.last, rep.started)
	}
	if !rep.finished || rep.err != nil {
		t.Errorf("finished=%v err=%v", rep.finished, rep.err)
	}
}

func TestFetchFilesPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != constants.ListEndpoint {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"files": [
			{"name": "z.txt", "size": 3, "modified": 1700000000.5},
			{"name": ""},
			{"name": "a.txt"},
			{"name": "m.png", "size": 10}
		]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, testConfig(srv.URL))
	entries, err := c.FetchFiles(context.Background())
	if err != nil {
		t.Fatalf("FetchFiles() error = %v", err)
	}

	want := []string{"z.txt", "a.txt", "m.png"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Name, name)
		}
	}
	if entries[0].Size != 3 || entries[0].Modified.Unix() != 1700000000 {
		t.Errorf("unexpected metadata %+v", entries[0])
	}
	if !entries[1].Modified.IsZero() {
		t.Errorf("missing modified should stay zero, got %v", entries[1].Modified)
	}
}

func TestFetchFilesEmptyStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"files": []}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, testConfig(srv.URL))
	entries, err := c.FetchFiles(context.Background())
	if err != nil {
		t.Fatalf("FetchFiles() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty non-nil slice", entries)
	}
}

func TestFetchFilesRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"files": [{"name": "a.txt"}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, testConfig(srv.URL))
	entries, err := c.FetchFiles(context.Background())
	if err != nil {
		t.Fatalf("FetchFiles() error = %v", err)
	}
	if len(entries) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("entries=%v calls=%d", entries, calls)
	}
}

func TestListFilesDegrades(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c, logs := newTestClient(t, testConfig(srv.URL))

			_, err := c.FetchFiles(context.Background())
			if !IsListingError(err) {
				t.Fatalf("FetchFiles() error = %v, want *ListingError", err)
			}

			entries := c.ListFiles(context.Background())
			if entries == nil || len(entries) != 0 {
				t.Errorf("ListFiles() = %#v, want empty non-nil slice", entries)
			}
			if !strings.Contains(logs.String(), "file listing unavailable") {
				t.Errorf("failure was not logged: %s", logs.String())
			}
		})
	}
}

func TestListFilesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxRetries = 0
	c, _ := newTestClient(t, cfg)

	if entries := c.ListFiles(context.Background()); len(entries) != 0 {
		t.Errorf("ListFiles() = %v, want empty", entries)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body   string
		status int
		want   string
	}{
		{`{"error": " quota exceeded "}`, 507, "quota exceeded"},
		{`{"error": ""}`, 500, `{"error": ""}`},
		{"  boom  ", 500, "boom"},
		{"", 502, "Bad Gateway"},
		{"", 599, "no response body"},
	}
	for _, tt := range tests {
		if got := errorMessage([]byte(tt.body), tt.status); got != tt.want {
			t.Errorf("errorMessage(%q, %d) = %q, want %q", tt.body, tt.status, got, tt.want)
		}
	}
}
