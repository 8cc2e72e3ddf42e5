package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// LoadConfigINI loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
//
// INI format:
//
//	[server]
//	url = http://127.0.0.1:8188
//	encoding = multipart
//	request_timeout_seconds = 300
//	max_retries = 3
//	retry_wait_min_ms = 200
//	retry_wait_max_ms = 15000
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 0
//	user =
//	no_proxy =
//	warmup = false
//
//	[upload]
//	allowed_extensions = .png,.jpg,.txt
//	notifications = true
//
//	[logging]
//	file =
//	detailed = false
//
//	[state]
//	file =
func LoadConfigINI(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config INI: %w", err)
	}

	server := iniFile.Section("server")
	cfg.ServerURL = server.Key("url").MustString(cfg.ServerURL)
	cfg.UploadEncoding = strings.ToLower(server.Key("encoding").MustString(cfg.UploadEncoding))
	cfg.RequestTimeout = time.Duration(server.Key("request_timeout_seconds").MustInt(int(cfg.RequestTimeout/time.Second))) * time.Second
	cfg.MaxRetries = server.Key("max_retries").MustInt(cfg.MaxRetries)
	cfg.RetryWaitMin = time.Duration(server.Key("retry_wait_min_ms").MustInt64(cfg.RetryWaitMin.Milliseconds())) * time.Millisecond
	cfg.RetryWaitMax = time.Duration(server.Key("retry_wait_max_ms").MustInt64(cfg.RetryWaitMax.Milliseconds())) * time.Millisecond

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(0)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)
	if proxy.HasKey("password") {
		cfg.set("proxy_password", proxy.Key("password").String())
	}

	upload := iniFile.Section("upload")
	cfg.AllowedExtensions = splitExtensions(upload.Key("allowed_extensions").String())
	cfg.Notifications = upload.Key("notifications").MustBool(cfg.Notifications)

	logging := iniFile.Section("logging")
	cfg.LogFile = logging.Key("file").String()
	cfg.DetailedLogging = logging.Key("detailed").MustBool(false)

	cfg.StateFile = iniFile.Section("state").Key("file").String()

	return cfg, nil
}

// SaveConfigINI saves configuration to an INI file.
// The proxy password is never written.
func SaveConfigINI(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	sections := []struct {
		name string
		keys [][2]string
	}{
		{"server", [][2]string{
			{"url", cfg.ServerURL},
			{"encoding", cfg.UploadEncoding},
			{"request_timeout_seconds", strconv.Itoa(int(cfg.RequestTimeout / time.Second))},
			{"max_retries", strconv.Itoa(cfg.MaxRetries)},
			{"retry_wait_min_ms", strconv.FormatInt(cfg.RetryWaitMin.Milliseconds(), 10)},
			{"retry_wait_max_ms", strconv.FormatInt(cfg.RetryWaitMax.Milliseconds(), 10)},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.ProxyMode},
			{"host", cfg.ProxyHost},
			{"port", strconv.Itoa(cfg.ProxyPort)},
			{"user", cfg.ProxyUser},
			{"no_proxy", cfg.NoProxy},
			{"warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		}},
		{"upload", [][2]string{
			{"allowed_extensions", strings.Join(cfg.AllowedExtensions, ",")},
			{"notifications", strconv.FormatBool(cfg.Notifications)},
		}},
		{"logging", [][2]string{
			{"file", cfg.LogFile},
			{"detailed", strconv.FormatBool(cfg.DetailedLogging)},
		}},
		{"state", [][2]string{
			{"file", cfg.StateFile},
		}},
	}

	for _, s := range sections {
		section, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.keys {
			section.Key(kv[0]).SetValue(kv[1])
		}
	}

	// Use temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
