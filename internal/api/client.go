package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/http"
	"github.com/loadfile/loadfile/internal/logging"
	"github.com/loadfile/loadfile/internal/models"
	"github.com/loadfile/loadfile/internal/progress"
	"github.com/loadfile/loadfile/internal/validation"
)

// maxResponseBytes caps how much of a response body is read
const maxResponseBytes = 1 << 20

// retryLogger implements the retryablehttp.LeveledLogger interface on top
// of the zerolog logger.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg("[RETRY] " + msg)
}

// Client is the transfer client for the editor server's upload and
// listing endpoints. It has no UI awareness.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	encoding   string
	logger     *logging.Logger
	progress   progress.Reporter
}

// Option configures a Client
type Option func(*Client)

// WithProgress reports upload bytes to r
func WithProgress(r progress.Reporter) Option {
	return func(c *Client) {
		if r != nil {
			c.progress = r
		}
	}
}

// WithLogger sets the logger used for request and retry diagnostics
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new transfer client
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	switch cfg.UploadEncoding {
	case constants.EncodingMultipart, constants.EncodingJSON:
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidEncoding, cfg.UploadEncoding)
	}

	c := &Client{
		baseURL:  strings.TrimRight(cfg.ServerURL, "/"),
		encoding: cfg.UploadEncoding,
		logger:   logging.NewDefaultCLILogger(),
		progress: progress.NewNoOpProgress(),
	}
	for _, opt := range opts {
		opt(c)
	}

	retryClient, err := http.NewRetryClient(cfg, &retryLogger{logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	c.httpClient = retryClient

	return c, nil
}

// BaseURL returns the server base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Encoding returns the upload wire encoding
func (c *Client) Encoding() string {
	return c.encoding
}

// Upload reads content completely, encodes it and posts it to the upload
// endpoint. On success it returns the server's canonical stored name.
// Every failure is a *TransferError; no partial result is ever returned.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (*models.UploadResult, error) {
	if err := validation.ValidateFilename(name); err != nil {
		return nil, &TransferError{Op: OpRequest, FileName: name, Err: err}
	}

	payload, err := io.ReadAll(content)
	if err != nil {
		return nil, &TransferError{Op: OpRead, FileName: name, Err: err}
	}

	body, contentType, err := encodeUpload(c.encoding, models.UploadRequest{FileName: name, Payload: payload})
	if err != nil {
		return nil, &TransferError{Op: OpRequest, FileName: name, Err: err}
	}

	total := int64(len(body))
	bodyFunc := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		return progress.NewProgressReader(bytes.NewReader(body), total, c.progress), nil
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+constants.UploadEndpoint, bodyFunc)
	if err != nil {
		return nil, &TransferError{Op: OpRequest, FileName: name, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("file", name).
		Int("bytes", len(payload)).
		Str("encoding", c.encoding).
		Msg("uploading")

	c.progress.Start(total, name)
	result, err := c.doUpload(req, name)
	if err != nil {
		c.progress.Error(err)
		return nil, err
	}
	c.progress.Finish()

	c.logger.Debug().Str("file", name).Str("stored", result.StoredName).Msg("upload stored")
	return result, nil
}

func (c *Client) doUpload(req *retryablehttp.Request, name string) (*models.UploadResult, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("class", http.ErrorTypeName(http.ClassifyError(err))).
			Msg("upload request failed")
		return nil, &TransferError{Op: OpRequest, FileName: name, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransferError{
			Op:         OpStatus,
			FileName:   name,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.StatusCode),
		}
	}
	if readErr != nil {
		return nil, &TransferError{Op: OpDecode, FileName: name, Err: readErr}
	}

	var ur models.UploadResponse
	if err := json.Unmarshal(data, &ur); err != nil {
		return nil, &TransferError{Op: OpDecode, FileName: name, Err: err}
	}
	if ur.Success != nil && !*ur.Success {
		return nil, &TransferError{
			Op:         OpStatus,
			FileName:   name,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.StatusCode),
		}
	}
	if strings.TrimSpace(ur.Filename) == "" {
		return nil, &TransferError{Op: OpDecode, FileName: name, Message: "missing filename"}
	}

	return &models.UploadResult{
		StoredName: ur.Filename,
		Path:       ur.Path,
		Size:       ur.Size,
	}, nil
}

// FetchFiles gets the store's file list in server order. Failures are
// returned as *ListingError.
func (c *Client) FetchFiles(ctx context.Context) ([]models.FileListEntry, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodGet, c.baseURL+constants.ListEndpoint, nil)
	if err != nil {
		return nil, &ListingError{Op: OpRequest, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ListingError{Op: OpRequest, Err: err}
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ListingError{
			Op:         OpStatus,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.StatusCode),
		}
	}
	if readErr != nil {
		return nil, &ListingError{Op: OpDecode, Err: readErr}
	}

	var lr models.FileListResponse
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, &ListingError{Op: OpDecode, Err: err}
	}

	entries := make([]models.FileListEntry, 0, len(lr.Files))
	for _, f := range lr.Files {
		if f.Name == "" {
			continue
		}
		entries = append(entries, f.Entry())
	}
	return entries, nil
}

// ListFiles is FetchFiles degraded to an empty, non-nil list on any failure.
// The failure is logged, never returned.
func (c *Client) ListFiles(ctx context.Context) []models.FileListEntry {
	entries, err := c.FetchFiles(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("file listing unavailable, using empty list")
		return []models.FileListEntry{}
	}
	return entries
}

// errorMessage extracts the reason from a non-2xx body: the JSON "error"
// field when present, else the trimmed text, else the status text.
func errorMessage(body []byte, status int) string {
	var er models.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && strings.TrimSpace(er.Error) != "" {
		return strings.TrimSpace(er.Error)
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	if text := nethttp.StatusText(status); text != "" {
		return text
	}
	return "no response body"
}
