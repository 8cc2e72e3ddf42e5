// Package progress provides a unified interface for progress reporting
// across CLI (terminal bars and spinners) and GUI (event bus) modes.
package progress

import (
	"io"
	"sync"

	"github.com/loadfile/loadfile/internal/events"
)

// Reporter is the interface for reporting progress in both CLI and GUI modes.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// GUIProgress implements progress reporting for GUI mode using event bus.
type GUIProgress struct {
	eventBus *events.EventBus
	nodeID   string
	fileName string
	mu       sync.Mutex
	total    int64
}

// NewGUIProgress creates a new GUI progress reporter.
func NewGUIProgress(eventBus *events.EventBus, nodeID string) *GUIProgress {
	return &GUIProgress{
		eventBus: eventBus,
		nodeID:   nodeID,
	}
}

// Start initializes progress tracking.
func (p *GUIProgress) Start(total int64, description string) {
	p.mu.Lock()
	p.total = total
	p.fileName = description
	p.mu.Unlock()
	p.eventBus.PublishProgress(p.nodeID, description, 0, total)
}

// Update publishes progress update to event bus.
func (p *GUIProgress) Update(current int64) {
	p.mu.Lock()
	name, total := p.fileName, p.total
	p.mu.Unlock()
	p.eventBus.PublishProgress(p.nodeID, name, current, total)
}

// Finish publishes completion event.
func (p *GUIProgress) Finish() {
	p.mu.Lock()
	name, total := p.fileName, p.total
	p.mu.Unlock()
	p.eventBus.PublishProgress(p.nodeID, name, total, total)
}

// Error publishes the failure as an error log line.
func (p *GUIProgress) Error(err error) {
	if err != nil {
		p.eventBus.PublishLog(events.ErrorLevel, err.Error())
	}
}

// SetDescription updates the file name carried by later events.
func (p *GUIProgress) SetDescription(desc string) {
	p.mu.Lock()
	p.fileName = desc
	p.mu.Unlock()
}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

// Start does nothing.
func (p *NoOpProgress) Start(total int64, description string) {}

// Update does nothing.
func (p *NoOpProgress) Update(current int64) {}

// Finish does nothing.
func (p *NoOpProgress) Finish() {}

// Error does nothing.
func (p *NoOpProgress) Error(err error) {}

// SetDescription does nothing.
func (p *NoOpProgress) SetDescription(desc string) {}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
		total:    total,
	}
}

// Read implements io.Reader interface with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.current += int64(n)
		pr.reporter.Update(pr.current)
	}
	return n, err
}

// Len returns the number of unread bytes. HTTP clients use it to set
// Content-Length on a fresh reader.
func (pr *ProgressReader) Len() int {
	return int(pr.total - pr.current)
}
