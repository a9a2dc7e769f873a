package cmd

import (
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/watcher"
	"github.com/driftshell/driftshell/pkg/detector"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Print the current foreground window as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		det, err := detector.New()
		if err != nil {
			return err
		}
		defer det.Close()

		active, err := det.GetActiveWindow()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(events.NewWindowChange(active, time.Now().UnixMilli()))
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a JSON line for every foreground application change",
	Long: `Run the tracking loop in the foreground and print each window_changed
event as one JSON line until interrupted.

Examples:
  driftshell watch
  driftshell watch --interval 250ms`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("interval", 0, "Poll interval (defaults to the configured interval)")
}

type watchLine struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval > 0 {
		if err := cfg.SetPollInterval(interval); err != nil {
			return err
		}
	}

	det, err := detector.New()
	if err != nil {
		return errors.Wrap(err, "failed to initialize window detector")
	}
	defer det.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	emitter := events.EmitterFunc(func(name string, payload any) error {
		return enc.Encode(watchLine{Event: name, Payload: payload})
	})

	h := watcher.Start(ctx, det, emitter,
		watcher.WithInterval(cfg.Watcher.PollInterval.Std()),
		watcher.WithSink(watcher.NewLogSink(logger)),
	)
	<-h.Done()

	stats := h.Stats()
	logger.Debug("watch finished", "published", stats.Published, "query_failures", stats.QueryFailures)
	return nil
}
