package cli

import (
	"github.com/spf13/cobra"

	"github.com/loadfile/loadfile/internal/gui"
)

// newGUICmd creates the 'gui' command.
func newGUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the node in a desktop window",
		Long: `Open a window hosting one LoadFileWithButton node with its upload and
refresh buttons. Uploads show a native file dialog filtered to the allowed
extensions; failures are shown as error dialogs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return gui.LaunchGUI(cfg)
		},
	}
}
