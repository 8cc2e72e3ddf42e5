// Package gui hosts a LoadFileWithButton node in a fyne desktop window.
package gui

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/loadfile/loadfile/internal/api"
	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/events"
	"github.com/loadfile/loadfile/internal/logging"
	"github.com/loadfile/loadfile/internal/node"
	"github.com/loadfile/loadfile/internal/notify"
	"github.com/loadfile/loadfile/internal/progress"
)

// NodeID is the id of the window's node card
const NodeID = "node-1"

// maxActivityLines bounds the activity log
const maxActivityLines = 200

// LaunchGUI opens the window and blocks until it is closed.
func LaunchGUI(cfg *config.Config) error {
	// Check for display on Linux
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use the upload, refresh and select commands instead")
		}
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer bus.Close()

	logger := logging.NewLogger("gui", bus)
	defer logger.Close()
	if cfg.LogFile != "" {
		if err := logger.EnableFileOutput(cfg.LogFile); err != nil {
			logger.Warn().Err(err).Msg("File logging disabled")
		}
	}

	// LOADFILE_DEBUG=1 shows debug lines in the activity log
	if os.Getenv("LOADFILE_DEBUG") != "" || cfg.DetailedLogging {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}

	a := app.NewWithID("io.loadfile.client")
	a.Settings().SetTheme(&loadfileTheme{})

	window := a.NewWindow("LoadFile")
	window.SetMaster()

	ui, err := NewUI(cfg, window, bus, logger)
	if err != nil {
		return err
	}
	ui.Start()

	window.SetContent(ui.Build())
	window.Resize(fyne.NewSize(520, 420))
	window.CenterOnScreen()
	window.SetOnClosed(ui.Stop)

	window.ShowAndRun()
	return nil
}

// UI is the window's node card plus its status and activity views.
type UI struct {
	window fyne.Window
	bus    *events.EventBus
	logger *logging.Logger

	serverURL string
	card      *NodeCard
	ctrl      *node.Controller
	status    *StatusBar

	activity      *widget.Label
	activityMu    sync.Mutex
	activityLines []string

	lastProgress time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewUI builds the node card through the registry with the upload
// extension attached.
func NewUI(cfg *config.Config, window fyne.Window, bus *events.EventBus, logger *logging.Logger) (*UI, error) {
	client, err := api.NewClient(cfg,
		api.WithLogger(logger),
		api.WithProgress(progress.NewGUIProgress(bus, NodeID)),
	)
	if err != nil {
		return nil, err
	}
	return newUIWithClient(cfg, window, bus, logger, client), nil
}

func newUIWithClient(cfg *config.Config, window fyne.Window, bus *events.EventBus, logger *logging.Logger, client node.TransferClient) *UI {
	ctx, cancel := context.WithCancel(context.Background())

	var desktop *notify.Notifier
	if cfg.Notifications {
		desktop = notify.NewNotifier(notify.DefaultConfig(), logger)
	}

	reg := node.NewRegistry()
	ext := node.NewExtension(ctx, client, node.ControllerOptions{
		Pickers:           NewDialogPicker(window),
		Notifier:          NewDialogNotifier(window, desktop),
		Logger:            logger,
		EventBus:          bus,
		AllowedExtensions: cfg.AllowedExtensions,
	})
	ext.Register(reg)

	card := NewNodeCard(NodeID)
	reg.Construct(card)
	ctrl, _ := ext.Controller(NodeID)

	return &UI{
		window:    window,
		bus:       bus,
		logger:    logger,
		serverURL: cfg.ServerURL,
		card:      card,
		ctrl:      ctrl,
		status:    NewStatusBar(),
		activity:  widget.NewLabel(""),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Build creates the window layout
func (ui *UI) Build() fyne.CanvasObject {
	server := widget.NewLabel("Server: " + ui.serverURL)
	ui.activity.Wrapping = fyne.TextWrapWord

	activity := widget.NewCard("Activity", "", container.NewVScroll(ui.activity))
	top := container.NewVBox(server, widget.NewSeparator(), ui.card.CanvasObject())

	return container.NewBorder(top, ui.status, nil, nil, activity)
}

// Start subscribes to the event bus and populates the file selector.
func (ui *UI) Start() {
	ch := ui.bus.SubscribeAll()

	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		for {
			select {
			case <-ui.ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				ui.handleEvent(ev)
			}
		}
	}()

	go ui.ctrl.RefreshFileList(ui.ctx)
}

// Stop cancels running workflows and stops the event loop
func (ui *UI) Stop() {
	ui.cancel()
	ui.wg.Wait()
	ui.logger.Debug().Str("node", ui.card.ID()).Msg("window closed")
}

func (ui *UI) handleEvent(ev events.Event) {
	switch e := ev.(type) {
	case *events.WorkflowEvent:
		ui.handleWorkflow(e)
	case *events.ProgressEvent:
		ui.handleProgress(e)
	case *events.LogEvent:
		ui.appendActivity(e.Level, e.Message)
	}
}

func (ui *UI) handleWorkflow(e *events.WorkflowEvent) {
	if e.NodeID != ui.card.ID() {
		return
	}

	switch e.State {
	case events.StatePicking:
		ui.status.SetStatus("Choosing file...", StatusInfo)
	case events.StateUploading:
		ui.status.SetStatus("Uploading "+e.FileName, StatusProgress)
	case events.StateRefreshing:
		ui.status.SetStatus("Refreshing file list...", StatusProgress)
	case events.StateIdle:
		switch {
		case e.Err != nil && e.StoredName != "":
			ui.status.SetStatus("Stored as "+e.StoredName+", file list unavailable", StatusWarning)
		case api.IsListingError(e.Err):
			ui.status.SetStatus("File list unavailable", StatusWarning)
		case e.Err != nil:
			ui.status.SetStatus("Upload failed", StatusError)
		case e.StoredName != "":
			ui.status.SetStatus("Stored as "+e.StoredName, StatusSuccess)
		default:
			ui.status.SetStatus("Ready", StatusInfo)
		}
		if e.StoredName != "" {
			ui.status.SetStored(e.StoredName)
		}
	}
}

// handleProgress shows the transfer percentage on the progress control,
// at most once per ProgressUpdateInterval.
func (ui *UI) handleProgress(e *events.ProgressEvent) {
	if e.NodeID != ui.card.ID() || e.BytesTotal <= 0 {
		return
	}
	now := time.Now()
	if e.BytesSent < e.BytesTotal && now.Sub(ui.lastProgress) < constants.ProgressUpdateInterval {
		return
	}
	ui.lastProgress = now

	ui.ctrl.UpdateProgress(fmt.Sprintf("%s %.0f%%", constants.BusyStatus, e.Progress*100))
}

func (ui *UI) appendActivity(level events.LogLevel, message string) {
	line := fmt.Sprintf("%s [%s] %s", time.Now().Format("15:04:05"), level, message)

	ui.activityMu.Lock()
	ui.activityLines = append(ui.activityLines, line)
	if len(ui.activityLines) > maxActivityLines {
		ui.activityLines = ui.activityLines[len(ui.activityLines)-maxActivityLines:]
	}
	text := strings.Join(ui.activityLines, "\n")
	ui.activityMu.Unlock()

	fyne.Do(func() { ui.activity.SetText(text) })
}
