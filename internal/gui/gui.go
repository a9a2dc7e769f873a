package gui

import (
	"context"
	"embed"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"

	"github.com/driftshell/driftshell/internal/shell"
)

//go:embed all:frontend/dist
var assets embed.FS

// Options are the window settings exposed on the command line
type Options struct {
	Title       string
	Width       int
	Height      int
	AlwaysOnTop bool
	StartHidden bool
}

// DefaultOptions returns a small always-visible window
func DefaultOptions() Options {
	return Options{
		Title:  "driftshell",
		Width:  420,
		Height: 260,
	}
}

// Run opens the window and blocks until it is closed. The shell is closed
// when the window goes away.
func Run(sh *shell.Shell, opts Options, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	app := NewApp(sh, log)

	err := wails.Run(&options.App{
		Title:       opts.Title,
		Width:       opts.Width,
		Height:      opts.Height,
		MinWidth:    320,
		MinHeight:   200,
		AlwaysOnTop: opts.AlwaysOnTop,
		StartHidden: opts.StartHidden,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Logger:           newLoggerAdapter(log),
		LogLevel:         logger.INFO,
		OnStartup:        app.Startup,
		OnShutdown:       func(ctx context.Context) { app.Shutdown(ctx); _ = sh.Close() },
		WindowStartState: options.Normal,
		Bind: []interface{}{
			app,
		},
		Linux: &linux.Options{
			ProgramName: "driftshell",
		},
	})
	return errors.Wrap(err, "window host failed")
}
