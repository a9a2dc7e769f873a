package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/config"
	"github.com/driftshell/driftshell/internal/logging"
	"github.com/driftshell/driftshell/internal/version"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "driftshell",
	Short: "Desktop shell that reports foreground window changes",
	Long: `driftshell watches the foreground window and pushes a window_changed event
to the connected user interface whenever the focused application changes.
It also bundles desktop plugins: store, fs, permissions, notification,
process, dialog and globalshortcut.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.Date)
	rootCmd.PersistentFlags().String("config", "", "Config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path, _ := rootCmd.PersistentFlags().GetString("config")
		loaded, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
			loaded.Log.Level = level
		}
		if err := loaded.Validate(); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}

		l, err := logging.Setup(loaded.Log, os.Stderr)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	}
}
