// Package notify provides cross-platform desktop notifications for upload
// results. It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/loadfile/loadfile/internal/logging"
)

const appTitle = "LoadFile"

// Notifier handles desktop notifications.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
	cfg     Config
	mu      sync.RWMutex

	// replaced in tests
	notify func(title, message string) error
	alert  func(title, message string) error
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are sent.
	Enabled bool

	// ShowUploadComplete shows notifications for successful uploads.
	ShowUploadComplete bool

	// ShowUploadFailed shows notifications for failed uploads.
	ShowUploadFailed bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:            true,
		ShowUploadComplete: false, // the selector change is feedback enough
		ShowUploadFailed:   true,
	}
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}

	return &Notifier{
		logger:  logger,
		enabled: cfg.Enabled,
		cfg:     *cfg,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		alert: func(title, message string) error {
			return beeep.Alert(title, message, "")
		},
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// UploadComplete sends a notification for a stored upload.
func (n *Notifier) UploadComplete(localPath, storedName string) {
	if !n.IsEnabled() || !n.cfg.ShowUploadComplete {
		return
	}

	message := fmt.Sprintf("%s stored as %s", shortenPath(localPath), truncate(storedName, 60))
	if err := n.notify(appTitle, message); err != nil {
		n.logger.Warn().Err(err).Str("file", localPath).Msg("Failed to send upload complete notification")
	}
}

// Alert sends an upload failure notification.
// Implements node.Notifier.
func (n *Notifier) Alert(message string) {
	if !n.IsEnabled() || !n.cfg.ShowUploadFailed {
		return
	}

	title := appTitle + " Upload Failed"
	message = truncate(message, 200)

	// beeep.Alert shows a more prominent notification on some platforms
	if err := n.alert(title, message); err != nil {
		// Fall back to regular notify
		if err := n.notify(title, message); err != nil {
			n.logger.Error().Err(err).Str("message", message).Msg("Failed to send alert notification")
		}
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// shortenPath abbreviates a long path for display in notifications.
func shortenPath(path string) string {
	const maxLen = 60

	if len(path) <= maxLen {
		return path
	}

	// Show drive/root + ... + parent + file
	_, file := filepath.Split(path)
	parentDir := filepath.Base(filepath.Dir(path))
	short := filepath.Join("...", parentDir, file)

	vol := filepath.VolumeName(path)
	if vol != "" && len(vol)+len(short)+1 <= maxLen {
		short = vol + string(filepath.Separator) + short
	}

	if len(short) > maxLen {
		return "..." + path[len(path)-(maxLen-3):]
	}

	return short
}
