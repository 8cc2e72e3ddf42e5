package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/events"
	"github.com/loadfile/loadfile/internal/filetype"
	"github.com/loadfile/loadfile/internal/logging"
	"github.com/loadfile/loadfile/internal/models"
)

// ErrUploadInProgress is returned when a node already has an upload in flight.
var ErrUploadInProgress = errors.New("an upload is already in progress for this node")

// TransferClient is the part of api.Client the controller uses.
type TransferClient interface {
	Upload(ctx context.Context, name string, content io.Reader) (*models.UploadResult, error)
	FetchFiles(ctx context.Context) ([]models.FileListEntry, error)
}

// ControllerOptions holds the host collaborators of a Controller.
// Pickers and Notifier may be nil for hosts that only refresh.
type ControllerOptions struct {
	Pickers           PickerFactory
	Notifier          Notifier
	Logger            *logging.Logger
	EventBus          *events.EventBus
	AllowedExtensions []string // empty means filetype.AllowedExtensions()
	BusyStatus        string   // empty means constants.BusyStatus
}

// Controller runs the upload workflow for one node instance:
// pick a file, upload it, refresh the file list and reconcile the node's
// "file" selector, with a transient progress control shown meanwhile.
//
// All node mutation is serialized by mu. A list fetch takes a ticket
// before it is issued; a list that arrives after a newer one was applied
// is discarded, except that an upload's stored name is still selected
// when the newer list contains it.
type Controller struct {
	node     Node
	client   TransferClient
	pickers  PickerFactory
	notifier Notifier
	logger   *logging.Logger
	bus      *events.EventBus
	accept   []string
	busy     string

	mu         sync.Mutex
	uploading  atomic.Bool
	fetchSeq   atomic.Uint64
	appliedSeq uint64
}

// NewController creates the controller for n
func NewController(n Node, client TransferClient, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	accept := opts.AllowedExtensions
	if len(accept) == 0 {
		accept = filetype.AllowedExtensions()
	}
	busy := opts.BusyStatus
	if busy == "" {
		busy = constants.BusyStatus
	}

	return &Controller{
		node:     n,
		client:   client,
		pickers:  opts.Pickers,
		notifier: opts.Notifier,
		logger:   logger.Named("node"),
		bus:      opts.EventBus,
		accept:   accept,
		busy:     busy,
	}
}

// Node returns the managed node
func (c *Controller) Node() Node {
	return c.node
}

// Uploading reports whether an upload is in flight
func (c *Controller) Uploading() bool {
	return c.uploading.Load()
}

// InitiateUpload opens a file picker and uploads the chosen file.
// Closing the picker without a choice is a silent no-op. A failed upload
// is alerted to the user and returned as *api.TransferError.
func (c *Controller) InitiateUpload(ctx context.Context) error {
	if !c.uploading.CompareAndSwap(false, true) {
		c.logger.Warn().Str("node", c.node.ID()).Msg("upload already in progress, ignoring request")
		return ErrUploadInProgress
	}
	defer c.uploading.Store(false)

	attempt := uuid.NewString()
	c.publish(attempt, events.StatePicking, "", "", nil)

	if c.pickers == nil {
		err := errors.New("no file picker available")
		c.logger.Warn().Err(err).Str("node", c.node.ID()).Msg("upload not started")
		c.publish(attempt, events.StateIdle, "", "", err)
		return err
	}

	picker, err := c.pickers.NewPicker(c.accept)
	if err != nil {
		err = fmt.Errorf("failed to open file picker: %w", err)
		c.logger.Warn().Err(err).Str("node", c.node.ID()).Msg("upload not started")
		c.publish(attempt, events.StateIdle, "", "", err)
		return err
	}
	defer func() {
		if cerr := picker.Close(); cerr != nil {
			c.logger.Debug().Err(cerr).Msg("closing file picker")
		}
	}()

	file, err := picker.Pick(ctx)
	if errors.Is(err, ErrNoSelection) {
		c.logger.Debug().Str("node", c.node.ID()).Msg("no file selected")
		c.publish(attempt, events.StateIdle, "", "", nil)
		return nil
	}
	if err != nil {
		err = fmt.Errorf("file selection failed: %w", err)
		c.logger.Warn().Err(err).Str("node", c.node.ID()).Msg("upload not started")
		c.publish(attempt, events.StateIdle, "", "", err)
		return err
	}

	return c.upload(ctx, attempt, file)
}

// UploadFile uploads an already chosen file, skipping the picker.
func (c *Controller) UploadFile(ctx context.Context, file *PickedFile) error {
	if !c.uploading.CompareAndSwap(false, true) {
		c.logger.Warn().Str("node", c.node.ID()).Msg("upload already in progress, ignoring request")
		if file != nil && file.Content != nil {
			_ = file.Content.Close()
		}
		return ErrUploadInProgress
	}
	defer c.uploading.Store(false)

	return c.upload(ctx, uuid.NewString(), file)
}

func (c *Controller) upload(ctx context.Context, attempt string, file *PickedFile) error {
	if file == nil || file.Content == nil {
		return errors.New("no file content to upload")
	}
	defer file.Content.Close()

	c.ShowProgress(c.busy)
	defer c.HideProgress()

	c.publish(attempt, events.StateUploading, file.Name, "", nil)
	c.logger.Info().Str("node", c.node.ID()).Str("file", file.Name).Msg("uploading file")

	result, err := c.client.Upload(ctx, file.Name, file.Content)
	if err != nil {
		c.logger.Error().Err(err).Str("file", file.Name).Msg("upload failed")
		if c.notifier != nil {
			c.notifier.Alert(err.Error())
		}
		c.publish(attempt, events.StateIdle, file.Name, "", err)
		return err
	}

	c.logger.Info().Str("file", file.Name).Str("stored", result.StoredName).Msg("upload complete")
	c.publish(attempt, events.StateRefreshing, file.Name, result.StoredName, nil)

	if err := c.refresh(ctx, attempt, result.StoredName); err != nil {
		c.publish(attempt, events.StateIdle, file.Name, result.StoredName, err)
		return nil
	}

	c.publish(attempt, events.StateIdle, file.Name, result.StoredName, nil)
	return nil
}

// RefreshFileList re-fetches the store listing and reconciles the file
// selector with it. Failures are logged and leave the selector unchanged.
func (c *Controller) RefreshFileList(ctx context.Context) {
	attempt := uuid.NewString()
	c.publish(attempt, events.StateRefreshing, "", "", nil)
	err := c.refresh(ctx, attempt, "")
	c.publish(attempt, events.StateIdle, "", "", err)
}

func (c *Controller) refresh(ctx context.Context, attempt, preferred string) error {
	ticket := c.fetchSeq.Add(1)

	entries, err := c.client.FetchFiles(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("node", c.node.ID()).Msg("file list refresh failed, keeping current selection")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sel, ok := FileSelector(c.node)
	if !ok {
		c.logger.Warn().Str("node", c.node.ID()).Msg("node has no file selector")
		return nil
	}

	if ticket < c.appliedSeq {
		c.logger.Debug().
			Uint64("ticket", ticket).
			Uint64("applied", c.appliedSeq).
			Msg("discarding stale file list")
		// The newer list still decides the options, but an uploaded file
		// it contains becomes the selection.
		if preferred != "" && contains(sel.Options(), preferred) && sel.Value() != preferred {
			c.publish(attempt, events.StateReconciling, "", preferred, nil)
			sel.SetValue(preferred)
			c.node.SetDirtyCanvas()
			c.bus.PublishSelector(c.node.ID(), sel.Options(), sel.Value())
		}
		return nil
	}
	c.appliedSeq = ticket

	c.publish(attempt, events.StateReconciling, "", preferred, nil)
	Reconcile(sel, models.Names(entries), preferred)
	c.node.SetDirtyCanvas()

	c.bus.PublishSelector(c.node.ID(), sel.Options(), sel.Value())
	return nil
}

// ShowProgress creates the progress control, or updates its text when it
// already exists.
func (c *Controller) ShowProgress(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctl := FindControl(c.node, constants.ProgressControlName); ctl != nil {
		ctl.SetValue(status)
	} else {
		c.node.AddControl(ControlSpec{
			Kind:  KindText,
			Name:  constants.ProgressControlName,
			Value: status,
		})
	}
	c.node.SetDirtyCanvas()
}

// UpdateProgress sets the progress text only if the control exists.
// Late progress ticks after HideProgress are dropped.
func (c *Controller) UpdateProgress(status string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctl := FindControl(c.node, constants.ProgressControlName)
	if ctl == nil {
		return false
	}
	ctl.SetValue(status)
	c.node.SetDirtyCanvas()
	return true
}

// HideProgress removes the progress control. Safe when absent.
func (c *Controller) HideProgress() {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctl := FindControl(c.node, constants.ProgressControlName)
	if ctl == nil {
		return
	}
	c.node.RemoveControl(ctl)
	c.node.SetDirtyCanvas()
}

// SelectFile sets the file selector to name. The name must be one of
// the selector's options.
func (c *Controller) SelectFile(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel, ok := FileSelector(c.node)
	if !ok {
		return errors.New("node has no file selector")
	}
	if !contains(sel.Options(), name) {
		return fmt.Errorf("%q is not in the file list", name)
	}
	sel.SetValue(name)
	c.node.SetDirtyCanvas()
	c.bus.PublishSelector(c.node.ID(), sel.Options(), sel.Value())
	return nil
}

func (c *Controller) publish(attempt string, state events.WorkflowState, fileName, storedName string, err error) {
	c.bus.PublishWorkflow(attempt, c.node.ID(), state, fileName, storedName, err)
}
