// Package process is the process-control plugin.
package process

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/driftshell/driftshell/internal/daemon"
	"github.com/driftshell/driftshell/internal/plugin"
)

const Name = "process"

// exitDelay lets the caller's reply reach the UI before the process goes away
const exitDelay = 100 * time.Millisecond

// Info describes the running shell process
type Info struct {
	PID        int    `json:"pid"`
	Executable string `json:"executable"`
	Daemon     bool   `json:"daemon"`
	PIDFile    string `json:"pid_file,omitempty"`
}

// Option configures the plugin
type Option func(*Plugin)

// WithExit replaces os.Exit
func WithExit(fn func(code int)) Option {
	return func(p *Plugin) { p.exit = fn }
}

// WithRestart replaces daemon.Restart
func WithRestart(fn func() error) Option {
	return func(p *Plugin) { p.restart = fn }
}

// WithBeforeExit runs fn before exiting or restarting
func WithBeforeExit(fn func()) Option {
	return func(p *Plugin) { p.beforeExit = fn }
}

// WithDelay overrides the delay between replying and exiting
func WithDelay(d time.Duration) Option {
	return func(p *Plugin) { p.delay = d }
}

// Plugin implements plugin.Plugin
type Plugin struct {
	dm         *daemon.Daemon
	logger     *slog.Logger
	exit       func(code int)
	restart    func() error
	beforeExit func()
	delay      time.Duration
}

// New creates the process plugin. dm may be nil when running in the foreground.
func New(dm *daemon.Daemon, logger *slog.Logger, opts ...Option) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Plugin{
		dm:      dm,
		logger:  logger.With("plugin", Name),
		exit:    os.Exit,
		restart: daemon.Restart,
		delay:   exitDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Close() error { return nil }

// Invoke runs exit, restart, pid or info
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	switch call.Op {
	case "exit":
		var args struct {
			Code int `json:"code"`
		}
		if err := plugin.Decode(call, &args); err != nil {
			return nil, err
		}
		p.logger.Info("exit requested", "code", args.Code, "session", call.SessionID)
		go func() {
			time.Sleep(p.delay)
			p.shutdown()
			p.exit(args.Code)
		}()
		return nil, nil

	case "restart":
		p.logger.Info("restart requested", "session", call.SessionID)
		go func() {
			time.Sleep(p.delay)
			p.shutdown()
			if err := p.restart(); err != nil {
				p.logger.Error("restart failed", "error", err)
				p.exit(1)
			}
		}()
		return nil, nil

	case "pid":
		return os.Getpid(), nil

	case "info":
		return p.info(), nil

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}

func (p *Plugin) shutdown() {
	if p.dm != nil && daemon.IsChild() {
		_ = p.dm.RemovePID()
	}
	if p.beforeExit != nil {
		p.beforeExit()
	}
}

func (p *Plugin) info() Info {
	exe, _ := os.Executable()
	info := Info{
		PID:        os.Getpid(),
		Executable: exe,
		Daemon:     daemon.IsChild(),
	}
	if p.dm != nil {
		info.PIDFile = p.dm.PIDFile()
	}
	return info
}
