package shell

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/watcher"
	"github.com/driftshell/driftshell/pkg/window"
)

// Built-in command names
const (
	CmdStartTracking  = "start_tracking"
	CmdStopTracking   = "stop_tracking"
	CmdTrackingStatus = "tracking_status"
	CmdCurrentWindow  = "current_window"
)

// Results of start_tracking and stop_tracking
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
	StatusNotRunning     = "not_running"
)

// ErrNoSession is returned by commands that need a session to push events to
var ErrNoSession = errors.New("command requires a session")

// CommandResult is the reply to start_tracking and stop_tracking
type CommandResult struct {
	Status string `json:"status"`
}

func (sh *Shell) registerBuiltins() {
	sh.commands[CmdStartTracking] = sh.startTracking
	sh.commands[CmdStopTracking] = sh.stopTracking
	sh.commands[CmdTrackingStatus] = sh.trackingStatus
	sh.commands[CmdCurrentWindow] = sh.currentWindow
}

// startTracking begins pushing window_changed events to s. A session that is
// already tracking keeps its existing loop.
func (sh *Shell) startTracking(ctx context.Context, s *Session, _ json.RawMessage) (any, error) {
	if s == nil {
		return nil, errors.Wrap(ErrNoSession, CmdStartTracking)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker != nil && s.tracker.Running() {
		return CommandResult{Status: StatusAlreadyRunning}, nil
	}

	logger := sh.logger.With("session", s.ID)
	opts := append([]watcher.Option{watcher.WithSink(watcher.NewLogSink(logger))}, sh.watcherOpts...)
	s.tracker = watcher.Start(sh.ctx, sh.querier, s.emitter, opts...)
	logger.Info("tracking started")

	return CommandResult{Status: StatusStarted}, nil
}

func (sh *Shell) stopTracking(ctx context.Context, s *Session, _ json.RawMessage) (any, error) {
	if s == nil {
		return nil, errors.Wrap(ErrNoSession, CmdStopTracking)
	}
	if !s.stopTracking() {
		return CommandResult{Status: StatusNotRunning}, nil
	}
	sh.logger.Info("tracking stopped", "session", s.ID)
	return CommandResult{Status: StatusStopped}, nil
}

func (sh *Shell) trackingStatus(ctx context.Context, s *Session, _ json.RawMessage) (any, error) {
	if s == nil {
		return nil, errors.Wrap(ErrNoSession, CmdTrackingStatus)
	}
	return s.status(), nil
}

// currentWindow samples the foreground window once, outside any loop
func (sh *Shell) currentWindow(ctx context.Context, _ *Session, _ json.RawMessage) (any, error) {
	active, err := sh.querier.GetActiveWindow()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, window.ErrNoActiveWindow
	}
	return events.NewWindowChange(active, time.Now().UnixMilli()), nil
}
