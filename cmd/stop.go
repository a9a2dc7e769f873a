package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		dm := daemon.New(cfg.Daemon.PIDFile)
		running, pid, err := dm.IsRunning()
		if err != nil {
			return errors.Wrap(err, "failed to check daemon status")
		}
		out := cmd.OutOrStdout()
		if !running {
			fmt.Fprintln(out, "Daemon is not running")
			return nil
		}

		fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
		if err := dm.Stop(); err != nil {
			return errors.Wrap(err, "failed to stop daemon")
		}
		fmt.Fprintln(out, "Daemon stopped successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
