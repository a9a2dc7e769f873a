package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "version: %s\n", version.Version)
		fmt.Fprintf(out, "commit : %s\n", version.Commit)
		fmt.Fprintf(out, "built  : %s\n", version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
