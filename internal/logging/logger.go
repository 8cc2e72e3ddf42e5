// Package logging provides structured logging for both CLI and GUI modes.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/loadfile/loadfile/internal/events"
)

// Logger wraps zerolog with mode-specific behavior.
type Logger struct {
	zlog     zerolog.Logger
	mode     string // "cli" or "gui"
	eventBus *events.EventBus
	output   io.Writer // current console writer
	file     io.WriteCloser
}

// NewLogger creates a new logger for the specified mode.
// In GUI mode log lines at info and above are mirrored onto eventBus.
func NewLogger(mode string, eventBus *events.EventBus) *Logger {
	var out io.Writer = os.Stdout
	if mode != "cli" {
		out = os.Stderr
	}

	l := &Logger{
		mode:     mode,
		eventBus: eventBus,
		output:   out,
	}
	l.rebuild()
	return l
}

// NewDefaultCLILogger creates a default CLI logger.
func NewDefaultCLILogger() *Logger {
	return NewLogger("cli", nil)
}

// NewTestLogger returns a logger writing plain JSON lines to w.
func NewTestLogger(w io.Writer) *Logger {
	return &Logger{
		zlog:   zerolog.New(w).With().Timestamp().Logger(),
		mode:   "test",
		output: w,
	}
}

// rebuild recreates the zerolog logger from the current writers.
func (l *Logger) rebuild() {
	var w io.Writer = zerolog.ConsoleWriter{
		Out:        l.output,
		TimeFormat: "15:04:05",
	}
	if l.file != nil {
		w = zerolog.MultiLevelWriter(w, l.file)
	}

	zl := zerolog.New(w).With().Timestamp().Logger()
	if l.mode == "gui" && l.eventBus != nil {
		zl = zl.Hook(busHook{bus: l.eventBus})
	}
	l.zlog = zl
}

// EnableFileOutput additionally writes JSON log lines to a rotating file.
func (l *Logger) EnableFileOutput(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	l.rebuild()
	return nil
}

// Close releases the rotating file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.rebuild()
	return err
}

// Info returns an info level event.
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Error returns an error level event.
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// Debug returns a debug level event.
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn returns a warn level event.
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Fatal returns a fatal level event.
func (l *Logger) Fatal() *zerolog.Event {
	return l.zlog.Fatal()
}

// With creates a child logger with additional context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// Named returns a copy of l tagged with a component field.
func (l *Logger) Named(component string) *Logger {
	cp := *l
	cp.zlog = l.zlog.With().Str("component", component).Logger()
	return &cp
}

// SetOutput changes the console writer for the logger.
// This is useful for redirecting logs through progress bars.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	l.rebuild()
}

// Output returns the current output writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// Debugf logs a debug message with printf-style formatting.
// This is only shown when debug/verbose mode is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof logs an info message with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Errorf logs an error message with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zlog.Error().Msgf(format, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.zlog.Warn().Msgf(format, args...)
}

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// busHook mirrors log lines onto the event bus for the GUI status line.
type busHook struct {
	bus *events.EventBus
}

func (h busHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if msg == "" || level < zerolog.InfoLevel {
		return
	}
	var lvl events.LogLevel
	switch {
	case level >= zerolog.ErrorLevel:
		lvl = events.ErrorLevel
	case level == zerolog.WarnLevel:
		lvl = events.WarnLevel
	default:
		lvl = events.InfoLevel
	}
	h.bus.PublishLog(lvl, msg)
}

func init() {
	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Configure global logger
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	})
}
