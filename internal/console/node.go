// Package console hosts a LoadFileWithButton node in the terminal. Its
// controls are plain values, the progress control is a spinner and the
// picker reads a path from the command line or stdin.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/logging"
	"github.com/loadfile/loadfile/internal/node"
	"github.com/loadfile/loadfile/internal/progress"
	"github.com/loadfile/loadfile/internal/state"
)

// DefaultNodeID is the id of the console's single node
const DefaultNodeID = "console"

type control struct {
	mu       sync.Mutex
	name     string
	kind     node.Kind
	value    string
	options  []string
	onClick  func()
	onChange func(value string)
}

func (c *control) Name() string    { return c.name }
func (c *control) Kind() node.Kind { return c.kind }

func (c *control) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *control) SetValue(value string) {
	c.mu.Lock()
	c.value = value
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(value)
	}
}

func (c *control) Options() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.options...)
}

func (c *control) SetOptions(options []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = append([]string(nil), options...)
}

// Options configures a console Node
type Options struct {
	ID          string
	Out         io.Writer // spinner output, default os.Stderr
	ShowSpinner bool
	Logger      *logging.Logger
}

// Node is an in-memory node whose progress control drives a terminal
// spinner.
type Node struct {
	id      string
	spinner *progress.Spinner
	logger  *logging.Logger

	mu       sync.Mutex
	controls []*control
	dirty    int
}

// NewNode creates an empty console node. Controls are added by the
// registry's init steps.
func NewNode(opts Options) *Node {
	if opts.ID == "" {
		opts.ID = DefaultNodeID
	}
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefaultCLILogger()
	}

	n := &Node{
		id:     opts.ID,
		logger: opts.Logger,
	}
	if opts.ShowSpinner {
		n.spinner = progress.NewSpinner(opts.Out)
	}
	return n
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Type() string { return constants.NodeType }

// Controls returns the node's controls in display order
func (n *Node) Controls() []node.Control {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]node.Control, 0, len(n.controls))
	for _, c := range n.controls {
		out = append(out, c)
	}
	return out
}

// AddControl appends a control. A text control named "upload status"
// starts the spinner.
func (n *Node) AddControl(spec node.ControlSpec) node.Control {
	c := &control{
		name:    spec.Name,
		kind:    spec.Kind,
		value:   spec.Value,
		options: append([]string(nil), spec.Options...),
		onClick: spec.OnClick,
	}

	if n.isProgress(c) {
		c.onChange = n.spinner.Start
		n.spinner.Start(spec.Value)
	}

	n.mu.Lock()
	n.controls = append(n.controls, c)
	n.mu.Unlock()
	return c
}

// RemoveControl removes c; removing the progress control stops the spinner.
func (n *Node) RemoveControl(target node.Control) {
	n.mu.Lock()
	var removed *control
	for i, c := range n.controls {
		if node.Control(c) == target {
			removed = c
			n.controls = append(n.controls[:i], n.controls[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	if removed != nil && n.isProgress(removed) {
		n.spinner.Stop()
	}
}

func (n *Node) isProgress(c *control) bool {
	return n.spinner != nil && c.kind == node.KindText && c.name == constants.ProgressControlName
}

// SetDirtyCanvas records a redraw request. The console has no canvas.
func (n *Node) SetDirtyCanvas() {
	n.mu.Lock()
	n.dirty++
	count := n.dirty
	n.mu.Unlock()

	n.logger.Debug().Str("node", n.id).Int("redraws", count).Msg("canvas marked dirty")
}

// DirtyCount returns how many redraws were requested
func (n *Node) DirtyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty
}

// Restore applies a persisted state to the node's selectors.
func (n *Node) Restore(st state.NodeState) {
	if sel, ok := node.FileSelector(n); ok {
		sel.SetOptions(st.Options)
		sel.SetValue(st.File)
	}
	if st.LoadMode != "" {
		if c := node.FindControl(n, constants.LoadModeControlName); c != nil {
			c.SetValue(st.LoadMode)
		}
	}
}

// Snapshot captures the node's selectors for persistence.
func (n *Node) Snapshot() state.NodeState {
	st := state.NodeState{NodeID: n.id}
	if sel, ok := node.FileSelector(n); ok {
		st.File = sel.Value()
		st.Options = sel.Options()
	}
	if c := node.FindControl(n, constants.LoadModeControlName); c != nil {
		st.LoadMode = c.Value()
	}
	return st
}

// Render prints the node's controls.
func (n *Node) Render(w io.Writer) {
	fmt.Fprintf(w, "Node %s (%s)\n", n.id, n.Type())
	for _, c := range n.Controls() {
		switch c.Kind() {
		case node.KindButton:
			fmt.Fprintf(w, "  [%s]\n", c.Name())
		case node.KindCombo:
			value := c.Value()
			if value == "" {
				value = "-"
			}
			var options []string
			if sel, ok := c.(node.Selector); ok {
				options = sel.Options()
			}
			fmt.Fprintf(w, "  %-14s %-30s (%d options)\n", c.Name(), value, len(options))
			for _, opt := range options {
				marker := " "
				if opt == c.Value() {
					marker = "*"
				}
				fmt.Fprintf(w, "      %s %s\n", marker, opt)
			}
		default:
			fmt.Fprintf(w, "  %-14s %s\n", c.Name(), strings.TrimSpace(c.Value()))
		}
	}
}
