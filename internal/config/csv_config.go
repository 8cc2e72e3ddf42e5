package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/loadfile/loadfile/internal/constants"
)

// Config represents the loadfile client configuration
type Config struct {
	// Server settings
	ServerURL      string
	UploadEncoding string // "multipart" or "json"
	RequestTimeout time.Duration

	// Retry settings
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// Picker allow-list (".png", ".txt", ...). Empty means the built-in list.
	AllowedExtensions []string

	// Desktop notification on upload failure
	Notifications bool

	// Logging
	LogFile         string // rotating log file, empty disables file logging
	DetailedLogging bool

	// Console node state file, empty means GetDefaultStatePath()
	StateFile string
}

// Validation errors
var (
	ErrMissingServerURL = errors.New("server_url is required")
	ErrInvalidServerURL = errors.New("server_url must be an absolute http(s) URL")
	ErrInvalidEncoding  = errors.New("upload_encoding must be multipart or json")
	ErrInvalidProxyMode = errors.New("proxy_mode must be one of no-proxy, system, basic, ntlm")
	ErrInvalidRetries   = errors.New("max_retries must be between 0 and 10")
	ErrInvalidTimeout   = errors.New("request_timeout_seconds must be positive")
)

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		ServerURL:      constants.DefaultServerURL,
		UploadEncoding: constants.EncodingMultipart,
		RequestTimeout: constants.DefaultRequestTimeout,
		MaxRetries:     constants.MaxRetries,
		RetryWaitMin:   constants.RetryInitialDelay,
		RetryWaitMax:   constants.RetryMaxDelay,
		ProxyMode:      "no-proxy",
		Notifications:  true,
	}
}

// Load loads a config file, choosing the format by extension (.ini or csv).
// A missing file yields defaults.
func Load(path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		return LoadConfigINI(path)
	}
	return LoadConfigCSV(path)
}

// Save writes cfg in the format chosen by the path's extension
func Save(cfg *Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".ini") {
		return SaveConfigINI(cfg, path)
	}
	return SaveConfigCSV(cfg, path)
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		cfg.set(strings.TrimSpace(strings.ToLower(record[0])), strings.TrimSpace(record[1]))
	}

	return cfg, nil
}

// set applies one key/value pair. Unknown keys and unparsable values are ignored.
func (c *Config) set(key, value string) {
	switch key {
	case "server_url":
		c.ServerURL = value
	case "upload_encoding":
		c.UploadEncoding = strings.ToLower(value)
	case "request_timeout_seconds":
		if v, err := strconv.Atoi(value); err == nil {
			c.RequestTimeout = time.Duration(v) * time.Second
		}
	case "max_retries":
		if v, err := strconv.Atoi(value); err == nil {
			c.MaxRetries = v
		}
	case "retry_wait_min_ms":
		if v, err := strconv.Atoi(value); err == nil {
			c.RetryWaitMin = time.Duration(v) * time.Millisecond
		}
	case "retry_wait_max_ms":
		if v, err := strconv.Atoi(value); err == nil {
			c.RetryWaitMax = time.Duration(v) * time.Millisecond
		}
	case "proxy_mode":
		c.ProxyMode = value
	case "proxy_host":
		c.ProxyHost = value
	case "proxy_port":
		if v, err := strconv.Atoi(value); err == nil {
			c.ProxyPort = v
		}
	case "proxy_user":
		c.ProxyUser = value
	case "proxy_password":
		// SECURITY: proxy passwords come from LOADFILE_PROXY_PASSWORD, never from files
		if value != "" {
			log.Printf("[WARN] proxy_password in config file is ignored for security - use LOADFILE_PROXY_PASSWORD")
		}
	case "no_proxy":
		c.NoProxy = value
	case "proxy_warmup":
		c.ProxyWarmup = parseBool(value)
	case "allowed_extensions":
		c.AllowedExtensions = splitExtensions(value)
	case "notifications":
		c.Notifications = parseBool(value)
	case "log_file":
		c.LogFile = value
	case "detailed_logging":
		c.DetailedLogging = parseBool(value)
	case "state_file":
		c.StateFile = value
	}
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

// splitExtensions parses a semicolon or comma separated extension list,
// normalizing every entry to a lower-case ".ext" form.
func splitExtensions(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' })
	var exts []string
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		exts = append(exts, f)
	}
	return exts
}

// records returns the persisted key/value pairs of cfg.
// proxy_password is intentionally never written.
func (c *Config) records() [][]string {
	return [][]string{
		{"server_url", c.ServerURL},
		{"upload_encoding", c.UploadEncoding},
		{"request_timeout_seconds", strconv.Itoa(int(c.RequestTimeout / time.Second))},
		{"max_retries", strconv.Itoa(c.MaxRetries)},
		{"retry_wait_min_ms", strconv.FormatInt(c.RetryWaitMin.Milliseconds(), 10)},
		{"retry_wait_max_ms", strconv.FormatInt(c.RetryWaitMax.Milliseconds(), 10)},
		{"proxy_mode", c.ProxyMode},
		{"proxy_host", c.ProxyHost},
		{"proxy_port", strconv.Itoa(c.ProxyPort)},
		{"proxy_user", c.ProxyUser},
		{"no_proxy", c.NoProxy},
		{"proxy_warmup", strconv.FormatBool(c.ProxyWarmup)},
		{"allowed_extensions", strings.Join(c.AllowedExtensions, ";")},
		{"notifications", strconv.FormatBool(c.Notifications)},
		{"log_file", c.LogFile},
		{"detailed_logging", strconv.FormatBool(c.DetailedLogging)},
		{"state_file", c.StateFile},
	}
}

// SaveConfigCSV saves configuration to a CSV file
// CSV format: key,value pairs
func SaveConfigCSV(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range cfg.records() {
		// Only write non-empty values to keep file clean. Booleans are always
		// written since notifications defaults to true.
		if record[1] == "" || record[1] == "0" {
			continue
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush config: %w", err)
	}
	return nil
}

// MergeWithFlags merges config with command-line flags and environment variables
// Priority: flags > environment > file > defaults
func (c *Config) MergeWithFlags(serverURL, encoding, proxyMode, proxyHost string, proxyPort int) {
	// Environment overrides
	if envURL := os.Getenv("LOADFILE_SERVER_URL"); envURL != "" {
		c.ServerURL = envURL
	}
	if envProxy := os.Getenv("HTTPS_PROXY"); envProxy != "" && c.ProxyHost == "" {
		c.parseProxyURL(envProxy)
	}
	if envPass := os.Getenv("LOADFILE_PROXY_PASSWORD"); envPass != "" {
		c.ProxyPassword = envPass
	}

	// Command-line flags (highest priority)
	if serverURL != "" {
		c.ServerURL = serverURL
	}
	if encoding != "" {
		c.UploadEncoding = strings.ToLower(encoding)
	}
	if proxyMode != "" {
		c.ProxyMode = proxyMode
	}
	if proxyHost != "" {
		c.ProxyHost = proxyHost
	}
	if proxyPort > 0 {
		c.ProxyPort = proxyPort
	}

	// Default to plain HTTP; the editor server listens without TLS
	if c.ServerURL != "" && !strings.HasPrefix(c.ServerURL, "http") {
		c.ServerURL = "http://" + c.ServerURL
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
}

// parseProxyURL parses a proxy URL from environment variable
func (c *Config) parseProxyURL(proxyURL string) {
	proxyURL = strings.TrimPrefix(proxyURL, "http://")
	proxyURL = strings.TrimPrefix(proxyURL, "https://")
	proxyURL = strings.TrimRight(proxyURL, "/")

	parts := strings.Split(proxyURL, ":")
	if len(parts) >= 1 {
		c.ProxyHost = parts[0]
	}
	if len(parts) >= 2 {
		if port, err := strconv.Atoi(parts[1]); err == nil {
			c.ProxyPort = port
		}
	}
	if c.ProxyHost != "" && (c.ProxyMode == "no-proxy" || c.ProxyMode == "") {
		c.ProxyMode = "system"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrMissingServerURL
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, c.ServerURL)
	}
	switch c.UploadEncoding {
	case constants.EncodingMultipart, constants.EncodingJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, c.UploadEncoding)
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProxyMode, c.ProxyMode)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return ErrInvalidRetries
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// StatePath returns the console node state file path
func (c *Config) StatePath() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return GetDefaultStatePath()
}
