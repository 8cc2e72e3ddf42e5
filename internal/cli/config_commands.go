// Package cli provides configuration management commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loadfile/loadfile/internal/api"
	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
	"github.com/loadfile/loadfile/internal/filetype"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage loadfile configuration",
		Long: `Configuration management commands for loadfile.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the server connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// prompter reads answers with defaults from an input stream.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(question, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", question)
	}
	input, _ := p.in.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

func (p *prompter) askInt(question string, def int) int {
	if v, err := strconv.Atoi(p.ask(question, strconv.Itoa(def))); err == nil && v >= 0 {
		return v
	}
	return def
}

func (p *prompter) askBool(question string, def bool) bool {
	d := "y/N"
	if def {
		d = "Y/n"
	}
	switch strings.ToLower(p.ask(question, d)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for loadfile.

The configuration is saved to --config, or to ~/.config/loadfile/config.csv.
A path ending in .ini is written in INI format.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			out := cmd.OutOrStdout()
			path := configPath()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "loadfile Configuration Setup")
			fmt.Fprintln(out, "============================")
			fmt.Fprintln(out)

			p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out}
			cfg := config.Default()

			cfg.ServerURL = p.ask("Server URL", constants.DefaultServerURL)
			cfg.UploadEncoding = strings.ToLower(p.ask("Upload encoding (multipart, json)", constants.EncodingMultipart))
			cfg.MaxRetries = p.askInt("Max retries", cfg.MaxRetries)

			exts := p.ask("Allowed extensions (empty for built-in list)", "")
			if exts != "" {
				cfg.AllowedExtensions = splitList(exts)
			}
			cfg.Notifications = p.askBool("Desktop notifications on upload failure?", cfg.Notifications)

			fmt.Fprintln(out)
			if p.askBool("Configure proxy?", false) {
				fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
				cfg.ProxyMode = p.ask("Proxy mode", "system")
				if cfg.ProxyMode != "no-proxy" {
					cfg.ProxyHost = p.ask("Proxy host", "")
					cfg.ProxyPort = p.askInt("Proxy port", 8080)
					if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
						cfg.ProxyUser = p.ask("Proxy user", "")
					}
				}
			}

			cfg.MergeWithFlags("", "", "", "", 0)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			log.Info().Str("path", path).Msg("Configuration saved")

			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			if cfg.ProxyUser != "" {
				fmt.Fprintln(out, "Proxy passwords are never stored: set LOADFILE_PROXY_PASSWORD or enter it when prompted.")
			}
			fmt.Fprintln(out, "Test your configuration with: loadfile config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// splitList parses a comma separated extension list entered at a prompt.
func splitList(value string) []string {
	var exts []string
	for _, f := range strings.Split(value, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		exts = append(exts, f)
	}
	return exts
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (~/.config/loadfile/config.csv or config.ini)
  2. Environment variables (LOADFILE_SERVER_URL, HTTPS_PROXY)
  3. Command-line flags (--server, --encoding, --proxy-mode)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.MergeWithFlags(serverURL, encoding, proxyMode, "", 0)

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Server Settings:")
			fmt.Fprintf(out, "  Server URL:      %s\n", cfg.ServerURL)
			fmt.Fprintf(out, "  Upload Encoding: %s\n", cfg.UploadEncoding)
			fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout)
			fmt.Fprintf(out, "  Max Retries:     %d (%s - %s)\n", cfg.MaxRetries, cfg.RetryWaitMin, cfg.RetryWaitMax)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Upload Settings:")
			fmt.Fprintf(out, "  Allowed Extensions: %s\n", filetype.Accept(cfg.AllowedExtensions))
			fmt.Fprintf(out, "  Notifications:      %t\n", cfg.Notifications)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy Settings:")
			fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
				fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
			}
			if cfg.ProxyUser != "" {
				// Never display any portion of the password
				fmt.Fprintf(out, "  Proxy User: %s (password %s)\n", cfg.ProxyUser, passwordState(cfg.ProxyPassword))
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "State file: %s\n", cfg.StatePath())
			if cfg.LogFile != "" {
				fmt.Fprintf(out, "Log file:   %s\n", cfg.LogFile)
			}
			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}

			return nil
		},
	}

	return cmd
}

func passwordState(pw string) string {
	if pw == "" {
		return "<not set>"
	}
	return "<set>"
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test the server connection",
		Long: `Fetch the file listing with the current configuration to verify the
server URL and network path, including any proxy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := GetLogger()
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Server: %s\n", cfg.ServerURL)
			fmt.Fprintln(out, "Testing connection...")

			client, err := api.NewClient(cfg, api.WithLogger(log))
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			files, err := client.FetchFiles(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				if code := api.StatusCode(err); code == http.StatusNotFound {
					fmt.Fprintln(out, "  The server has no file listing endpoint; is the upload extension installed?")
				}
				return fmt.Errorf("connection test failed")
			}

			log.Info().Msg("Connection test successful")
			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			fmt.Fprintf(out, "  %d file(s) in the store\n", len(files))
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			path := configPath()
			fmt.Fprintf(out, "  %s\n\n", path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: loadfile config init")
			}
			fmt.Fprintf(out, "\nLog directory: %s\n", config.LogDirectory())

			return nil
		},
	}

	return cmd
}
