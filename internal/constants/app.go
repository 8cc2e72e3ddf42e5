package constants

import (
	"time"
)

// Server endpoints
const (
	// DefaultServerURL - the editor's default listen address
	DefaultServerURL = "http://127.0.0.1:8188"

	// UploadEndpoint - accepts one file per request (multipart or JSON+base64)
	UploadEndpoint = "/loadfile/upload"

	// ListEndpoint - returns {"files": [{"name": ...}]}
	ListEndpoint = "/loadfile/files"

	// UploadFormField - multipart field name the server reads the file from
	UploadFormField = "file"
)

// Upload encodings
const (
	// EncodingMultipart sends the file as a multipart/form-data "file" field.
	// This is the only form the stock server accepts and is the default.
	EncodingMultipart = "multipart"

	// EncodingJSON sends {"filename": ..., "data": <base64>}.
	EncodingJSON = "json"
)

// Node type and control names
const (
	// NodeType - the node type this extension attaches to
	NodeType = "LoadFileWithButton"

	// FileControlName - selector holding the stored file reference
	FileControlName = "file"

	// LoadModeControlName - selector holding the load mode (auto, image, ...)
	LoadModeControlName = "load_mode"

	// ProgressControlName - transient text control shown while an upload is in flight
	ProgressControlName = "upload status"

	// UploadButtonName - button that opens the file picker
	UploadButtonName = "📁 Choose file to upload"

	// RefreshButtonName - button that refreshes the selector's options
	RefreshButtonName = "🔄 Refresh file list"

	// BusyStatus - status text of the progress control during an upload
	BusyStatus = "Uploading..."
)

// Retry configuration
const (
	// MaxRetries - default retry attempts for transient HTTP failures
	MaxRetries = 3

	// RetryInitialDelay - initial delay before first retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// UI Updates
const (
	// ProgressUpdateInterval - interval for progress bar updates (250ms)
	ProgressUpdateInterval = 250 * time.Millisecond

	// SpinnerInterval - animation tick of the console busy spinner
	SpinnerInterval = 100 * time.Millisecond
)

// Request timeouts
const (
	// DefaultRequestTimeout - overall timeout of one HTTP request (5 minutes).
	// The controller itself never times out an upload.
	DefaultRequestTimeout = 5 * time.Minute

	// ProxyWarmupTimeout - timeout of the optional proxy warmup request
	ProxyWarmupTimeout = 15 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)
