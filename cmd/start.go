package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/driftshell/driftshell/internal/app"
	"github.com/driftshell/driftshell/internal/config"
	"github.com/driftshell/driftshell/internal/daemon"
	"github.com/driftshell/driftshell/internal/logging"
	"github.com/driftshell/driftshell/internal/web"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the UI bridge as a background daemon",
	Long: `Start the shell in the background. The UI bridge serves the event stream,
commands and plugin calls over HTTP; logs go to the daemon log file.

Examples:
  driftshell start
  driftshell start --port 18080`,
	RunE: runStart,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the UI bridge in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		return runBridge(cmd.Context(), port)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(serveCmd)
	startCmd.Flags().Int("port", 0, "Bridge port (defaults to the configured port)")
	serveCmd.Flags().Int("port", 0, "Bridge port (defaults to the configured port)")
}

func runStart(cmd *cobra.Command, args []string) error {
	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	if !daemon.IsChild() {
		pid, err := daemon.Daemonize()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
		fmt.Fprintf(out, "UI bridge available at: http://%s\n", cfg.Address())
		fmt.Fprintf(out, "Logs: %s\n", cfg.Daemon.LogFile)
		return nil
	}

	l, logFile, err := daemonLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger = l

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	port, _ := cmd.Flags().GetInt("port")
	return runBridge(cmd.Context(), port)
}

// daemonLogger sends logs to the daemon log file. The detached child has no
// stderr, so failing to open the file is fatal.
func daemonLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	logFile, err := logging.OpenFile(cfg.Daemon.LogFile)
	if err != nil {
		return nil, nil, err
	}
	l, err := logging.Setup(cfg.Log, logFile)
	if err != nil {
		logFile.Close()
		return nil, nil, errors.Wrap(err, "failed to set up daemon logging")
	}
	return l, logFile, nil
}

// runBridge assembles the shell and serves it until SIGINT or SIGTERM
func runBridge(ctx context.Context, port int) error {
	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(cfg, a.Shell, logger, port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("driftshell running", "display_server", a.DisplayServer(), "address", srv.GetAddress())
	logger.Debug("configuration", "config", cfg.String())

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "UI bridge failed")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down UI bridge", "error", err)
	}
	logger.Info("driftshell stopped")
	return nil
}
