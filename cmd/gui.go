package cmd

import (
	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/app"
	"github.com/driftshell/driftshell/internal/gui"
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the desktop window",
	Long: `Open a native window hosting the bundled frontend. The window talks to the
shell directly through bound methods instead of the HTTP bridge.

The binary must be built with -tags desktop,production for this command.`,
	RunE: runGUI,
}

func init() {
	rootCmd.AddCommand(guiCmd)
	defaults := gui.DefaultOptions()
	guiCmd.Flags().String("title", defaults.Title, "Window title")
	guiCmd.Flags().Int("width", defaults.Width, "Window width")
	guiCmd.Flags().Int("height", defaults.Height, "Window height")
	guiCmd.Flags().Bool("always-on-top", false, "Keep the window above others")
	guiCmd.Flags().Bool("hidden", false, "Start with the window hidden")
}

func runGUI(cmd *cobra.Command, args []string) error {
	opts := gui.DefaultOptions()
	opts.Title, _ = cmd.Flags().GetString("title")
	opts.Width, _ = cmd.Flags().GetInt("width")
	opts.Height, _ = cmd.Flags().GetInt("height")
	opts.AlwaysOnTop, _ = cmd.Flags().GetBool("always-on-top")
	opts.StartHidden, _ = cmd.Flags().GetBool("hidden")

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return gui.Run(a.Shell, opts, logger)
}
