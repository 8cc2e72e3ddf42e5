package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/loadfile/loadfile/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventWorkflow        EventType = "workflow"         // Upload workflow state transition
	EventSelectorChanged EventType = "selector_changed" // File selector options/value replaced
	EventProgress        EventType = "progress"         // Bytes sent during an upload
	EventLog             EventType = "log"              // Log line mirrored for GUI display
)

// WorkflowState is a state of the per-node upload workflow
type WorkflowState string

const (
	StateIdle        WorkflowState = "idle"
	StatePicking     WorkflowState = "picking"
	StateUploading   WorkflowState = "uploading"
	StateRefreshing  WorkflowState = "refreshing"
	StateReconciling WorkflowState = "reconciling"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// WorkflowEvent reports a transition of one node's upload workflow.
// AttemptID is shared by all events of one InitiateUpload call.
type WorkflowEvent struct {
	BaseEvent
	AttemptID  string
	NodeID     string
	State      WorkflowState
	FileName   string // local name being uploaded
	StoredName string // canonical name, set once the upload succeeded
	Err        error  // set on the transition back to idle after a failure
}

// SelectorEvent reports the file selector after reconciliation
type SelectorEvent struct {
	BaseEvent
	NodeID  string
	Options []string
	Value   string
}

// ProgressEvent represents upload byte progress
type ProgressEvent struct {
	BaseEvent
	NodeID     string
	FileName   string
	BytesSent  int64
	BytesTotal int64
	Progress   float64 // 0.0 to 1.0
}

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
// Events for full subscriber buffers are dropped and counted.
// A nil bus is a valid no-op publisher.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// Unsubscribe removes a subscription channel from a specific event type
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			close(subCh)
			break
		}
	}
}

// PublishWorkflow is a convenience method for publishing workflow transitions
func (eb *EventBus) PublishWorkflow(attemptID, nodeID string, state WorkflowState, fileName, storedName string, err error) {
	eb.Publish(&WorkflowEvent{
		BaseEvent:  BaseEvent{EventType: EventWorkflow, Time: time.Now()},
		AttemptID:  attemptID,
		NodeID:     nodeID,
		State:      state,
		FileName:   fileName,
		StoredName: storedName,
		Err:        err,
	})
}

// PublishSelector is a convenience method for publishing selector changes
func (eb *EventBus) PublishSelector(nodeID string, options []string, value string) {
	eb.Publish(&SelectorEvent{
		BaseEvent: BaseEvent{EventType: EventSelectorChanged, Time: time.Now()},
		NodeID:    nodeID,
		Options:   append([]string(nil), options...),
		Value:     value,
	})
}

// PublishProgress is a convenience method for publishing byte progress
func (eb *EventBus) PublishProgress(nodeID, fileName string, sent, total int64) {
	var progress float64
	if total > 0 {
		progress = float64(sent) / float64(total)
	}
	eb.Publish(&ProgressEvent{
		BaseEvent:  BaseEvent{EventType: EventProgress, Time: time.Now()},
		NodeID:     nodeID,
		FileName:   fileName,
		BytesSent:  sent,
		BytesTotal: total,
		Progress:   progress,
	})
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message string) {
	eb.Publish(&LogEvent{
		BaseEvent: BaseEvent{EventType: EventLog, Time: time.Now()},
		Level:     level,
		Message:   message,
	})
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
