// loadfile - upload-and-select client for the LoadFileWithButton node.
//
// - No args + display available → GUI mode
// - No args + no display → CLI help
// - --gui → GUI mode
// - subcommands/flags → CLI mode
package main

import (
	"os"
	"runtime"
	"slices"

	"github.com/loadfile/loadfile/internal/cli"
	"github.com/loadfile/loadfile/internal/version"
)

func main() {
	// Propagate version from the single source of truth (internal/version)
	cli.Version = version.Version
	cli.BuildTime = version.BuildTime

	args := os.Args[1:]
	if guiMode(args) {
		args = guiArgs(args)
	}

	root := cli.NewRootCmd()
	cli.AddCommands(root)
	root.SetArgs(args)
	if err := cli.ExecuteCmd(root); err != nil {
		os.Exit(1)
	}
}

// guiMode reports whether the window should open: --gui was given, or no
// arguments at all with a display available.
func guiMode(args []string) bool {
	if slices.Contains(args, "--gui") {
		return true
	}
	if len(args) > 0 {
		return false
	}
	if runtime.GOOS == "linux" {
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
	return true
}

// guiArgs turns the process arguments into a gui command invocation,
// keeping any global flags given alongside --gui.
func guiArgs(args []string) []string {
	out := []string{"gui"}
	for _, a := range args {
		if a != "--gui" {
			out = append(out, a)
		}
	}
	return out
}
