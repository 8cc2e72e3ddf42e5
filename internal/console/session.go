package console

import (
	"context"
	"fmt"
	"io"

	"github.com/loadfile/loadfile/internal/events"
	"github.com/loadfile/loadfile/internal/logging"
	"github.com/loadfile/loadfile/internal/node"
	"github.com/loadfile/loadfile/internal/state"
)

// SessionOptions configures OpenSession
type SessionOptions struct {
	NodeID            string
	Client            node.TransferClient
	Pickers           node.PickerFactory
	Notifier          node.Notifier
	Logger            *logging.Logger
	EventBus          *events.EventBus
	AllowedExtensions []string
	StatePath         string
	ShowSpinner       bool
	Out               io.Writer
}

// Session is one CLI invocation's view of the persisted console node.
type Session struct {
	Node       *Node
	Controller *node.Controller
	states     *state.StateManager
}

// OpenSession constructs the console node through the registry, attaches
// the upload controller and restores the node's saved selectors.
func OpenSession(ctx context.Context, opts SessionOptions) (*Session, error) {
	states, err := state.NewStateManagerWithPath(opts.StatePath)
	if err != nil {
		return nil, err
	}

	reg := node.NewRegistry()
	ext := node.NewExtension(ctx, opts.Client, node.ControllerOptions{
		Pickers:           opts.Pickers,
		Notifier:          opts.Notifier,
		Logger:            opts.Logger,
		EventBus:          opts.EventBus,
		AllowedExtensions: opts.AllowedExtensions,
	})
	ext.Register(reg)

	n := NewNode(Options{
		ID:          opts.NodeID,
		Out:         opts.Out,
		ShowSpinner: opts.ShowSpinner,
		Logger:      opts.Logger,
	})
	reg.Construct(n)

	saved, ok, err := states.GetNode(n.ID())
	if err != nil {
		return nil, fmt.Errorf("failed to load node state: %w", err)
	}
	if ok {
		n.Restore(saved)
	}

	ctrl, ok := ext.Controller(n.ID())
	if !ok {
		return nil, fmt.Errorf("no upload controller attached to node %s", n.ID())
	}

	return &Session{Node: n, Controller: ctrl, states: states}, nil
}

// Save persists the node's selectors
func (s *Session) Save() error {
	return s.states.UpdateNode(s.Node.Snapshot())
}

// StatePath returns the state file path
func (s *Session) StatePath() string {
	return s.states.GetStatePath()
}
