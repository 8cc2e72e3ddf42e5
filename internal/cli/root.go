// Package cli provides the command-line interface for loadfile.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/events"
	httpclient "github.com/loadfile/loadfile/internal/http"
	"github.com/loadfile/loadfile/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	serverURL string
	encoding  string
	proxyMode string
	nodeID    string
	verbose   bool
	debug     bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version information - set by main package at startup
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "loadfile",
		Short: "Upload files to the editor's store and pick them on a LoadFileWithButton node",
		Long: `loadfile ` + Version + ` - Built: ` + BuildTime + `
Client for the editor's file store. Uploads local files, lists the stored
files and keeps the "file" selector of a LoadFileWithButton node in sync.

The console node's selectors persist between invocations, so upload,
refresh, select and show all operate on the same node.

GUI Mode (gui command):
  Desktop window with the node card, a file dialog and upload progress.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger
			logger = logging.NewDefaultCLILogger()
			logger.SetOutput(cmd.ErrOrStderr())
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				logging.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (.csv or .ini)")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Editor server URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&encoding, "encoding", "", "Upload encoding: multipart or json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&proxyMode, "proxy-mode", "", "Proxy mode: no-proxy, system, basic, ntlm (overrides config)")
	rootCmd.PersistentFlags().StringVar(&nodeID, "node", "", "Console node id (default \"console\")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// newCompletionCmd generates shell completion scripts.
func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate a shell completion script for loadfile.

QUICK TEST (current session only):
  bash:       source <(loadfile completion bash)
  zsh:        source <(loadfile completion zsh)
  fish:       loadfile completion fish | source
  powershell: loadfile completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(out)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
}

// Execute runs the CLI with the process arguments.
func Execute() error {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	return ExecuteCmd(rootCmd)
}

// ExecuteCmd runs rootCmd under a context cancelled by SIGINT/SIGTERM.
func ExecuteCmd(rootCmd *cobra.Command) error {
	// Create a context that can be cancelled by signals
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\n🛑 Received signal %v, cancelling operations...\n\n", sig)
				cancelFunc()
			}
		}
	}()

	err := rootCmd.ExecuteContext(rootContext)

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newSelectCmd())
	rootCmd.AddCommand(newGUICmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		// Fallback to background context if called before Execute()
		return context.Background()
	}
	return rootContext
}

// configPath returns --config or the default config location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.GetDefaultConfigPath()
}

// loadConfig loads the config file and merges environment and flags.
// Priority: flags > environment > config file > defaults
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.MergeWithFlags(serverURL, encoding, proxyMode, "", 0)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if httpclient.NeedsProxyPassword(cfg) {
		password, err := promptProxyPassword(cfg.ProxyUser)
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = password
	}

	if cfg.LogFile != "" {
		if err := GetLogger().EnableFileOutput(cfg.LogFile); err != nil {
			GetLogger().Warn().Err(err).Msg("File logging disabled")
		}
	}
	if cfg.DetailedLogging {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}

	return cfg, nil
}

// promptProxyPassword reads the proxy password without echo.
func promptProxyPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("proxy user %s needs a password: set LOADFILE_PROXY_PASSWORD", user)
	}

	fmt.Fprintf(os.Stderr, "Proxy password for %s: ", user)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy password: %w", err)
	}
	return strings.TrimSpace(string(pw)), nil
}

// logWorkflow mirrors workflow events to the debug log until ch closes.
func logWorkflow(ch <-chan events.Event, log *logging.Logger) {
	for ev := range ch {
		switch e := ev.(type) {
		case *events.WorkflowEvent:
			entry := log.Debug().
				Str("attempt", e.AttemptID).
				Str("node", e.NodeID).
				Str("state", string(e.State))
			if e.FileName != "" {
				entry = entry.Str("file", e.FileName)
			}
			if e.StoredName != "" {
				entry = entry.Str("stored", e.StoredName)
			}
			if e.Err != nil {
				entry = entry.Err(e.Err)
			}
			entry.Msg("workflow")
		case *events.SelectorEvent:
			log.Debug().Str("node", e.NodeID).Strs("options", e.Options).Str("value", e.Value).Msg("selector updated")
		}
	}
}

// newEventBus creates the per-invocation bus; in debug mode its workflow
// events are logged.
func newEventBus() *events.EventBus {
	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	if verbose || debug {
		go logWorkflow(bus.SubscribeAll(), GetLogger())
	}
	return bus
}
