package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"github.com/loadfile/loadfile/internal/node"
	"github.com/loadfile/loadfile/internal/notify"
)

// pickResult carries a file dialog callback to Pick
type pickResult struct {
	reader fyne.URIReadCloser
	err    error
}

// DialogPicker opens fyne file dialogs on window.
type DialogPicker struct {
	window fyne.Window
}

// NewDialogPicker creates a picker factory for window
func NewDialogPicker(window fyne.Window) *DialogPicker {
	return &DialogPicker{window: window}
}

// NewPicker implements node.PickerFactory
func (p *DialogPicker) NewPicker(accept []string) (node.Picker, error) {
	if p.window == nil {
		return nil, errors.New("no window to attach the file dialog to")
	}
	return &dialogPicker{window: p.window, accept: accept, results: make(chan pickResult, 1)}, nil
}

type dialogPicker struct {
	window  fyne.Window
	accept  []string
	results chan pickResult

	mu  sync.Mutex
	dlg *dialog.FileDialog
}

// Pick shows the dialog and waits for the user. It must not be called on
// the UI thread.
func (p *dialogPicker) Pick(ctx context.Context) (*node.PickedFile, error) {
	fyne.Do(func() {
		dlg := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			p.results <- pickResult{reader: reader, err: err}
		}, p.window)
		if len(p.accept) > 0 {
			dlg.SetFilter(storage.NewExtensionFileFilter(p.accept))
		}

		p.mu.Lock()
		p.dlg = dlg
		p.mu.Unlock()

		dlg.Show()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-p.results:
		if res.err != nil {
			return nil, fmt.Errorf("failed to open file: %w", res.err)
		}
		if res.reader == nil {
			// User cancelled
			return nil, node.ErrNoSelection
		}
		return &node.PickedFile{Name: res.reader.URI().Name(), Content: res.reader}, nil
	}
}

// Close hides the dialog if it is still open.
func (p *dialogPicker) Close() error {
	p.mu.Lock()
	dlg := p.dlg
	p.dlg = nil
	p.mu.Unlock()

	if dlg != nil {
		fyne.Do(dlg.Hide)
	}
	return nil
}

// DialogNotifier shows upload failures as error dialogs, optionally
// mirrored to a desktop notification.
type DialogNotifier struct {
	window  fyne.Window
	desktop *notify.Notifier

	mu      sync.Mutex
	current dialog.Dialog
}

// NewDialogNotifier creates a notifier for window. desktop may be nil.
func NewDialogNotifier(window fyne.Window, desktop *notify.Notifier) *DialogNotifier {
	return &DialogNotifier{window: window, desktop: desktop}
}

// Alert implements node.Notifier. It blocks until the dialog is dismissed,
// so it must not be called from the UI goroutine.
func (n *DialogNotifier) Alert(message string) {
	if n.desktop != nil {
		n.desktop.Alert(message)
	}

	done := make(chan struct{})
	fyne.Do(func() {
		d := dialog.NewError(errors.New(message), n.window)
		d.SetOnClosed(func() {
			n.mu.Lock()
			n.current = nil
			n.mu.Unlock()
			close(done)
		})
		n.mu.Lock()
		n.current = d
		n.mu.Unlock()
		d.Show()
	})
	<-done
}

// showing returns the open error dialog, or nil.
func (n *DialogNotifier) showing() dialog.Dialog {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
