package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/daemon"
	"github.com/driftshell/driftshell/internal/database"
	"github.com/driftshell/driftshell/internal/reporter"
	"github.com/driftshell/driftshell/pkg/detector"
	"github.com/driftshell/driftshell/pkg/window"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon, bridge, window and store status",
	Long: `Show whether the daemon is running, its bridge sessions, the current
foreground window and the number of keys held by each store.

Examples:
  driftshell status
  driftshell status --format json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("format", "text", "Output format: text, json, yaml")
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json", "yaml":
	default:
		return errors.Errorf("unsupported format: %s (use text, json or yaml)", format)
	}

	// the store is only opened when it exists so status never creates one
	var repo *database.Repository
	if _, err := os.Stat(cfg.Store.Path); err == nil {
		db, err := database.Connect(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = database.NewRepository(db)
	}

	var det window.Detector
	if d, err := detector.New(); err == nil {
		defer d.Close()
		det = d
	} else {
		logger.Debug("no window detector", "error", err)
	}

	rep := reporter.New(cfg, repo, daemon.New(cfg.Daemon.PIDFile), det)
	report, err := rep.GenerateReport(cmd.Context())
	if err != nil {
		return err
	}

	var text string
	switch format {
	case "json":
		text, err = rep.FormatReportJSON(report)
	case "yaml":
		text, err = rep.FormatReportYAML(report)
	default:
		text = rep.FormatReportText(report)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
