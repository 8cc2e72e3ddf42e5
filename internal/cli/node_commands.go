package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loadfile/loadfile/internal/api"
	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/console"
	"github.com/loadfile/loadfile/internal/events"
	"github.com/loadfile/loadfile/internal/filetype"
	"github.com/loadfile/loadfile/internal/models"
	"github.com/loadfile/loadfile/internal/node"
	"github.com/loadfile/loadfile/internal/notify"
	"github.com/loadfile/loadfile/internal/progress"
)

// sessionDeps are the per-invocation collaborators of a console session.
type sessionDeps struct {
	client   node.TransferClient
	pickers  node.PickerFactory
	notifier node.Notifier
	bus      *events.EventBus
	spinner  bool
}

func openSession(cmd *cobra.Command, cfg *config.Config, deps sessionDeps) (*console.Session, error) {
	return console.OpenSession(GetContext(), console.SessionOptions{
		NodeID:            nodeID,
		Client:            deps.client,
		Pickers:           deps.pickers,
		Notifier:          deps.notifier,
		Logger:            GetLogger(),
		EventBus:          deps.bus,
		AllowedExtensions: cfg.AllowedExtensions,
		StatePath:         cfg.StatePath(),
		ShowSpinner:       deps.spinner,
		Out:               cmd.ErrOrStderr(),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func desktopNotifier(cfg *config.Config) *notify.Notifier {
	if !cfg.Notifications {
		return nil
	}
	return notify.NewNotifier(notify.DefaultConfig(), GetLogger())
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var byteProgress bool

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a file and select it on the node",
		Long: `Upload a local file to the editor's store, refresh the node's file
list and select the stored name (the server may rename on collision).

Without a file argument the path is read from stdin; an empty answer
cancels without error.

Examples:
  loadfile upload cat.png
  loadfile upload model.safetensors --byte-progress
  loadfile upload notes.txt --encoding json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := GetLogger()

			var reporter progress.Reporter = progress.NewNoOpProgress()
			if byteProgress {
				reporter = progress.NewUploadBar()
			}
			client, err := api.NewClient(cfg, api.WithLogger(log), api.WithProgress(reporter))
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			bus := newEventBus()
			defer bus.Close()
			workflow := bus.Subscribe(events.EventWorkflow)

			var path string
			if len(args) == 1 {
				path = args[0]
			}
			desktop := desktopNotifier(cfg)

			sess, err := openSession(cmd, cfg, sessionDeps{
				client:   client,
				pickers:  &console.PathPicker{Path: path, In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()},
				notifier: &console.Notifier{Out: cmd.ErrOrStderr(), Desktop: desktop},
				bus:      bus,
				spinner:  !byteProgress && isTerminal(cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}

			if err := sess.Controller.InitiateUpload(GetContext()); err != nil {
				return err
			}
			if err := sess.Save(); err != nil {
				return fmt.Errorf("failed to save node state: %w", err)
			}

			if stored, local := storedName(workflow); stored != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded %s as %s\n", local, stored)
				if desktop != nil {
					desktop.UploadComplete(path, stored)
				}
			}
			sess.Node.Render(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&byteProgress, "byte-progress", false, "Show a byte progress bar instead of the busy spinner")

	return cmd
}

// storedName drains the buffered workflow events of a finished upload and
// returns the stored and local names of its final transition.
func storedName(ch <-chan events.Event) (stored, local string) {
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return stored, local
			}
			if e, isWF := ev.(*events.WorkflowEvent); isWF && e.State == events.StateIdle && e.StoredName != "" {
				stored, local = e.StoredName, e.FileName
			}
		default:
			return stored, local
		}
	}
}

// newListCmd creates the 'list' command.
func newListCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files in the editor's store",
		Long: `List the files the server reports, in server order, with their
detected load mode.

An unreachable server or a malformed answer lists no files; use --strict
to fail instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(cfg, api.WithLogger(GetLogger()))
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			var entries []models.FileListEntry
			if strict {
				entries, err = client.FetchFiles(GetContext())
				if err != nil {
					return err
				}
			} else {
				entries = client.ListFiles(GetContext())
			}

			printFileList(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the listing cannot be fetched")

	return cmd
}

func printFileList(w io.Writer, entries []models.FileListEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No files found")
		return
	}

	fmt.Fprintf(w, "%-40s %-8s %12s   %s\n", "NAME", "TYPE", "SIZE", "MODIFIED")
	for _, e := range entries {
		size := "-"
		if e.Size > 0 {
			size = formatSize(e.Size)
		}
		modified := "-"
		if !e.Modified.IsZero() {
			modified = e.Modified.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-40s %-8s %12s   %s\n", e.Name, filetype.Detect(e.Name), size, modified)
	}

	modes, counts := filetype.Count(models.Names(entries))
	parts := make([]string, 0, len(modes))
	for _, m := range modes {
		parts = append(parts, fmt.Sprintf("%d %s", counts[m], m))
	}
	fmt.Fprintf(w, "\n%d file(s): %s\n", len(entries), strings.Join(parts, ", "))
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// newRefreshCmd creates the 'refresh' command.
func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the node's file list",
		Long: `Re-fetch the store listing and reconcile the node's file selector.
The current selection is kept while it is still listed. When the listing
fails the selector is left unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client, err := api.NewClient(cfg, api.WithLogger(GetLogger()))
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			bus := newEventBus()
			defer bus.Close()

			sess, err := openSession(cmd, cfg, sessionDeps{client: client, bus: bus})
			if err != nil {
				return err
			}

			sess.Controller.RefreshFileList(GetContext())
			if err := sess.Save(); err != nil {
				return fmt.Errorf("failed to save node state: %w", err)
			}
			sess.Node.Render(cmd.OutOrStdout())
			return nil
		},
	}

	return cmd
}

// newShowCmd creates the 'show' command.
func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the node's controls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, cfg, sessionDeps{})
			if err != nil {
				return err
			}

			sess.Node.Render(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "\nState file: %s\n", sess.StatePath())
			return nil
		},
	}

	return cmd
}

// newSelectCmd creates the 'select' command.
func newSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <name>",
		Short: "Select a listed file on the node",
		Long: `Set the node's file selector to one of its current options.
Run refresh first if the file is not listed yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			sess, err := openSession(cmd, cfg, sessionDeps{})
			if err != nil {
				return err
			}

			if err := sess.Controller.SelectFile(filepath.Base(args[0])); err != nil {
				return err
			}
			if err := sess.Save(); err != nil {
				return fmt.Errorf("failed to save node state: %w", err)
			}
			sess.Node.Render(cmd.OutOrStdout())
			return nil
		},
	}

	return cmd
}
