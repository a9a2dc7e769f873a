// Package app wires the shell, its window detector and the bundled plugins
// from a Config.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/config"
	"github.com/driftshell/driftshell/internal/daemon"
	"github.com/driftshell/driftshell/internal/database"
	"github.com/driftshell/driftshell/internal/plugin"
	"github.com/driftshell/driftshell/internal/plugins/dialog"
	"github.com/driftshell/driftshell/internal/plugins/fs"
	"github.com/driftshell/driftshell/internal/plugins/globalshortcut"
	"github.com/driftshell/driftshell/internal/plugins/notification"
	"github.com/driftshell/driftshell/internal/plugins/permissions"
	"github.com/driftshell/driftshell/internal/plugins/process"
	"github.com/driftshell/driftshell/internal/plugins/store"
	"github.com/driftshell/driftshell/internal/shell"
	"github.com/driftshell/driftshell/internal/watcher"
	"github.com/driftshell/driftshell/pkg/detector"
	"github.com/driftshell/driftshell/pkg/window"
)

// App owns every long-lived component of a running shell
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Detector window.Detector // nil when no display backend is usable
	DB       *database.DB
	Repo     *database.Repository
	Daemon   *daemon.Daemon
	Shell    *shell.Shell

	closeOnce sync.Once
	closeErr  error
}

// Option adjusts how the App is assembled
type Option func(*options)

type options struct {
	detector  window.Detector
	noDetect  bool
	processes []process.Option
}

// WithDetector uses det instead of probing the display server
func WithDetector(det window.Detector) Option {
	return func(o *options) { o.detector = det; o.noDetect = true }
}

// WithProcessOptions passes opts to the process plugin
func WithProcessOptions(opts ...process.Option) Option {
	return func(o *options) { o.processes = append(o.processes, opts...) }
}

// New builds an App. A missing display backend is not fatal: tracking loops
// then see every sample fail and emit nothing.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Daemon: daemon.New(cfg.Daemon.PIDFile),
	}

	det := o.detector
	if !o.noDetect {
		var err error
		det, err = detector.New()
		if err != nil {
			logger.Warn("no window detector available", "error", err)
			det = nil
		}
	}
	a.Detector = det

	db, err := database.Connect(cfg.Store.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to store")
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, err
	}
	a.DB = db
	a.Repo = database.NewRepository(db)

	files, err := fs.New(cfg.FS.BaseDir, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	notifier := notification.New(cfg.Notification.AppName, nil)

	reg := plugin.NewRegistry()
	reg.Register(store.New(a.Repo))
	reg.Register(files)
	reg.Register(notifier)
	reg.Register(permissions.New(a.windowProbe, func(context.Context) bool {
		return notifier.PermissionGranted()
	}, logger))
	reg.Register(process.New(a.Daemon, logger,
		append([]process.Option{process.WithBeforeExit(func() { _ = a.Close() })}, o.processes...)...))
	reg.Register(dialog.New(nil))
	reg.Register(globalshortcut.New(nil, logger))

	var q watcher.Querier
	if det != nil {
		q = det
	}
	a.Shell = shell.New(q, reg,
		shell.WithLogger(logger),
		shell.WithWatcherOptions(watcher.WithInterval(cfg.Watcher.PollInterval.Std())),
	)

	if det != nil {
		logger.Info("window detector initialized", "display_server", det.GetDisplayServer())
	}
	return a, nil
}

func (a *App) windowProbe(context.Context) bool {
	return a.Detector != nil && a.Detector.IsAvailable()
}

// DisplayServer names the active backend, or "none"
func (a *App) DisplayServer() string {
	if a.Detector == nil {
		return "none"
	}
	return a.Detector.GetDisplayServer()
}

// Close shuts down the shell, its plugins, the store and the detector
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if err := a.Shell.Close(); err != nil {
			a.closeErr = err
		}
		if err := a.DB.Close(); err != nil && a.closeErr == nil {
			a.closeErr = err
		}
		if a.Detector != nil {
			if err := a.Detector.Close(); err != nil && a.closeErr == nil {
				a.closeErr = err
			}
		}
	})
	return a.closeErr
}
