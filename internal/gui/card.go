package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/node"
)

// cardControl is one control of a NodeCard. The model fields are the
// source of truth; widgets are updated on the UI thread after the model
// lock is released.
type cardControl struct {
	name string
	kind node.Kind

	mu      sync.Mutex
	value   string
	options []string

	obj      fyne.CanvasObject
	sel      *widget.Select
	label    *widget.Label
	activity *widget.Activity
}

func (c *cardControl) Name() string    { return c.name }
func (c *cardControl) Kind() node.Kind { return c.kind }

func (c *cardControl) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *cardControl) SetValue(value string) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()

	fyne.Do(func() {
		switch {
		case c.sel != nil:
			if value == "" {
				c.sel.ClearSelected()
			} else {
				c.sel.SetSelected(value)
			}
		case c.label != nil:
			c.label.SetText(value)
		}
	})
}

func (c *cardControl) Options() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.options...)
}

func (c *cardControl) SetOptions(options []string) {
	c.mu.Lock()
	c.options = append([]string(nil), options...)
	opts := append([]string(nil), c.options...)
	c.mu.Unlock()

	if c.sel != nil {
		fyne.Do(func() { c.sel.SetOptions(opts) })
	}
}

// userSelected records a selection made in the widget
func (c *cardControl) userSelected(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// NodeCard is a LoadFileWithButton node rendered as a vertical card of
// widgets.
type NodeCard struct {
	id    string
	title *widget.Label
	box   *fyne.Container

	mu       sync.Mutex
	controls []*cardControl
}

// NewNodeCard creates an empty card. Controls are added by the registry's
// init steps.
func NewNodeCard(id string) *NodeCard {
	title := widget.NewLabelWithStyle(constants.NodeType, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	return &NodeCard{
		id:    id,
		title: title,
		box:   container.NewVBox(title),
	}
}

func (n *NodeCard) ID() string   { return n.id }
func (n *NodeCard) Type() string { return constants.NodeType }

// CanvasObject returns the card's container
func (n *NodeCard) CanvasObject() fyne.CanvasObject {
	return n.box
}

// Controls returns the card's controls in display order
func (n *NodeCard) Controls() []node.Control {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]node.Control, 0, len(n.controls))
	for _, c := range n.controls {
		out = append(out, c)
	}
	return out
}

// AddControl builds the widget for spec and appends it to the card.
func (n *NodeCard) AddControl(spec node.ControlSpec) node.Control {
	c := &cardControl{
		name:    spec.Name,
		kind:    spec.Kind,
		value:   spec.Value,
		options: append([]string(nil), spec.Options...),
	}

	switch spec.Kind {
	case node.KindCombo:
		c.sel = widget.NewSelect(c.Options(), c.userSelected)
		c.sel.PlaceHolder = "(none)"
		if spec.Value != "" {
			c.sel.Selected = spec.Value
		}
		c.obj = container.NewBorder(nil, nil, widget.NewLabel(spec.Name), nil, c.sel)
	case node.KindButton:
		onClick := spec.OnClick
		if onClick == nil {
			onClick = func() {}
		}
		c.obj = widget.NewButton(spec.Name, onClick)
	default:
		c.label = widget.NewLabel(spec.Value)
		c.activity = widget.NewActivity()
		c.obj = container.NewHBox(c.activity, c.label)
	}

	n.mu.Lock()
	n.controls = append(n.controls, c)
	n.mu.Unlock()

	fyne.Do(func() {
		if c.activity != nil {
			c.activity.Start()
		}
		n.box.Add(c.obj)
	})
	return c
}

// RemoveControl removes target's widget from the card.
func (n *NodeCard) RemoveControl(target node.Control) {
	n.mu.Lock()
	var removed *cardControl
	for i, c := range n.controls {
		if node.Control(c) == target {
			removed = c
			n.controls = append(n.controls[:i], n.controls[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	if removed == nil {
		return
	}
	fyne.Do(func() {
		if removed.activity != nil {
			removed.activity.Stop()
		}
		n.box.Remove(removed.obj)
	})
}

// SetDirtyCanvas refreshes the card
func (n *NodeCard) SetDirtyCanvas() {
	fyne.Do(n.box.Refresh)
}
