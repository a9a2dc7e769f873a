// Package gui hosts the shell in a native webview window. The frontend talks
// to the bound App methods and listens for events pushed with EventsEmit.
package gui

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/shell"
)

// ErrNotStarted is returned by bound methods called before Startup
var ErrNotStarted = errors.New("window not started")

// emitFunc pushes one event to the frontend
type emitFunc func(ctx context.Context, name string, payload any)

func runtimeEmit(ctx context.Context, name string, payload any) {
	runtime.EventsEmit(ctx, name, payload)
}

// App is the struct bound to the frontend. Each window is one shell session.
type App struct {
	shell  *shell.Shell
	logger *slog.Logger
	emit   emitFunc

	mu      sync.Mutex
	ctx     context.Context
	session *shell.Session
}

// NewApp creates the bound application object
func NewApp(sh *shell.Shell, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{shell: sh, logger: logger, emit: runtimeEmit}
}

// Startup opens the window's session. It is called by the runtime.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ctx = ctx
	session, err := a.shell.OpenSessionWith(events.EmitterFunc(func(name string, payload any) error {
		a.emit(ctx, name, payload)
		return nil
	}))
	if err != nil {
		a.logger.Error("failed to open window session", "error", err)
		return
	}
	a.session = session
	a.logger.Info("window session opened", "session", session.ID)
}

// Shutdown closes the window's session. It is called by the runtime.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session != nil {
		a.shell.CloseSession(session.ID)
	}
}

func (a *App) sessionID() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return "", ErrNotStarted
	}
	return a.session.ID, nil
}

func (a *App) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// SessionID returns the id of the window's session
func (a *App) SessionID() (string, error) {
	return a.sessionID()
}

// StartTracking begins pushing window_changed events to this window
func (a *App) StartTracking() (string, error) {
	return a.commandStatus(shell.CmdStartTracking)
}

// StopTracking stops this window's tracking loop
func (a *App) StopTracking() (string, error) {
	return a.commandStatus(shell.CmdStopTracking)
}

func (a *App) commandStatus(command string) (string, error) {
	out, err := a.Invoke(command, "")
	if err != nil {
		return "", err
	}
	result, ok := out.(shell.CommandResult)
	if !ok {
		return "", errors.Errorf("unexpected %s result %T", command, out)
	}
	return result.Status, nil
}

// Invoke runs a shell command with JSON-encoded arguments
func (a *App) Invoke(command, args string) (any, error) {
	id, err := a.sessionID()
	if err != nil {
		return nil, err
	}
	return a.shell.Invoke(a.context(), id, command, rawArgs(args))
}

// InvokePlugin calls a plugin operation with JSON-encoded arguments
func (a *App) InvokePlugin(plugin, op, args string) (any, error) {
	id, err := a.sessionID()
	if err != nil {
		return nil, err
	}
	return a.shell.InvokePlugin(a.context(), id, plugin, op, rawArgs(args))
}

func rawArgs(args string) json.RawMessage {
	if args == "" {
		return nil
	}
	return json.RawMessage(args)
}
