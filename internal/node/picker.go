package node

import (
	"context"
	"errors"
	"io"
)

// ErrNoSelection is returned by Picker.Pick when the user closes the
// picker without choosing a file.
var ErrNoSelection = errors.New("no file selected")

// PickedFile is a file chosen by the user. The controller closes Content.
type PickedFile struct {
	Name    string
	Content io.ReadCloser
}

// Picker is a per-invocation file selection surface. Close releases it and
// is called on every exit path.
type Picker interface {
	Pick(ctx context.Context) (*PickedFile, error)
	Close() error
}

// PickerFactory opens a picker restricted to the accept extensions
// (".png", ".txt", ...).
type PickerFactory interface {
	NewPicker(accept []string) (Picker, error)
}

// Notifier shows a user-visible error notification.
type Notifier interface {
	Alert(message string)
}

// PickerFunc adapts a function to PickerFactory.
type PickerFunc func(accept []string) (Picker, error)

// NewPicker calls f(accept).
func (f PickerFunc) NewPicker(accept []string) (Picker, error) {
	return f(accept)
}
