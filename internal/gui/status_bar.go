package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusLevel classifies the workflow status shown in the status bar.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusSuccess
	StatusWarning
	StatusError
	StatusProgress
)

func levelIcon(level StatusLevel) fyne.Resource {
	switch level {
	case StatusSuccess:
		return theme.ConfirmIcon()
	case StatusWarning:
		return theme.WarningIcon()
	case StatusError:
		return theme.ErrorIcon()
	default:
		return theme.InfoIcon()
	}
}

// StatusBar shows the node's workflow status on the left and the last
// stored file name on the right. Progress replaces the icon with a spinner.
type StatusBar struct {
	widget.BaseWidget

	mu         sync.RWMutex
	level      StatusLevel
	message    string
	lastStored string

	icon    *widget.Icon
	label   *widget.Label
	stored  *widget.Label
	spinner *widget.Activity
}

// NewStatusBar creates a status bar reading "Ready".
func NewStatusBar() *StatusBar {
	sb := &StatusBar{level: StatusInfo, message: "Ready"}
	sb.label = widget.NewLabelWithStyle("Ready", fyne.TextAlignLeading, fyne.TextStyle{Italic: true})
	sb.stored = widget.NewLabelWithStyle("", fyne.TextAlignTrailing, fyne.TextStyle{Monospace: true})
	sb.icon = widget.NewIcon(levelIcon(StatusInfo))
	sb.spinner = widget.NewActivity()
	sb.spinner.Hide()
	sb.ExtendBaseWidget(sb)
	return sb
}

// SetStatus replaces the message and level. Safe from any goroutine.
func (sb *StatusBar) SetStatus(message string, level StatusLevel) {
	sb.mu.Lock()
	sb.level = level
	sb.message = message
	sb.mu.Unlock()

	fyne.Do(func() {
		sb.label.SetText(message)
		if level == StatusProgress {
			sb.icon.Hide()
			sb.spinner.Show()
			sb.spinner.Start()
			return
		}
		sb.spinner.Stop()
		sb.spinner.Hide()
		sb.icon.SetResource(levelIcon(level))
		sb.icon.Show()
	})
}

// SetStored records the name the server stored the last upload under.
func (sb *StatusBar) SetStored(name string) {
	sb.mu.Lock()
	sb.lastStored = name
	sb.mu.Unlock()

	fyne.Do(func() { sb.stored.SetText("Last upload: " + name) })
}

func (sb *StatusBar) Message() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.message
}

func (sb *StatusBar) Level() StatusLevel {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.level
}

// LastStored is the most recent stored name, or "" before any upload.
func (sb *StatusBar) LastStored() string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.lastStored
}

// CreateRenderer implements fyne.Widget
func (sb *StatusBar) CreateRenderer() fyne.WidgetRenderer {
	left := container.NewHBox(sb.icon, sb.spinner, sb.label)
	return widget.NewSimpleRenderer(container.NewBorder(nil, nil, left, sb.stored))
}
