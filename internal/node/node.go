// Package node holds the upload workflow for LoadFileWithButton nodes and
// the narrow capability interface it consumes from a host editor.
package node

import (
	"github.com/loadfile/loadfile/internal/constants"
)

// Kind is the widget kind of a node control
type Kind string

const (
	KindButton Kind = "button"
	KindCombo  Kind = "combo"
	KindText   Kind = "text"
)

// Control is one named widget on a node.
type Control interface {
	Name() string
	Kind() Kind
	Value() string
	SetValue(value string)
}

// Selector is a combo control with a settable list of valid values.
type Selector interface {
	Control
	Options() []string
	SetOptions(options []string)
}

// ControlSpec describes a control to add. Options applies to combos and
// OnClick to buttons.
type ControlSpec struct {
	Kind    Kind
	Name    string
	Value   string
	Options []string
	OnClick func()
}

// Node is the host's node instance. Controls are returned in display order.
// Implementations need not be safe for concurrent use: the controller
// serializes its own calls.
type Node interface {
	ID() string
	Type() string
	Controls() []Control
	AddControl(spec ControlSpec) Control
	RemoveControl(c Control)
	SetDirtyCanvas()
}

// FindControl returns the first control named name, or nil.
func FindControl(n Node, name string) Control {
	for _, c := range n.Controls() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// FileSelector returns the node's "file" selector.
func FileSelector(n Node) (Selector, bool) {
	sel, ok := FindControl(n, constants.FileControlName).(Selector)
	return sel, ok
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Reconcile overwrites sel's options with names and re-establishes the
// selection rule: preferred wins when listed, otherwise a value missing
// from a non-empty list falls back to the first entry. An empty list
// leaves the value alone. It reports whether the value changed.
func Reconcile(sel Selector, names []string, preferred string) bool {
	options := make([]string, len(names))
	copy(options, names)
	sel.SetOptions(options)

	current := sel.Value()
	next := current
	switch {
	case preferred != "" && contains(options, preferred):
		next = preferred
	case len(options) > 0 && !contains(options, current):
		next = options[0]
	}

	if next == current {
		return false
	}
	sel.SetValue(next)
	return true
}
