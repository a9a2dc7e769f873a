// Package permissions reports whether the desktop grants the capabilities the
// shell relies on. Linux has no consent prompts, so a request re-runs the
// probe and reports what it finds.
package permissions

import (
	"context"
	"log/slog"

	"github.com/jezek/xgb"

	"github.com/driftshell/driftshell/internal/plugin"
)

const Name = "permissions"

// Permission names accepted by check and request
const (
	ScreenRecording   = "screen_recording"
	WindowEnumeration = "window_enumeration"
	Accessibility     = "accessibility"
	Notifications     = "notifications"
)

// States returned to callers
const (
	Granted = "granted"
	Denied  = "denied"
)

// Probe reports whether a capability is currently usable
type Probe func(ctx context.Context) bool

// Plugin implements plugin.Plugin over a set of probes
type Plugin struct {
	probes map[string]Probe
	logger *slog.Logger
}

// New creates the permissions plugin. windowProbe and notifyProbe come from
// the active window detector and the notification plugin; accessibility is
// probed with an X connection since key grabs need one.
func New(windowProbe, notifyProbe Probe, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return NewWithProbes(map[string]Probe{
		ScreenRecording:   windowProbe,
		WindowEnumeration: windowProbe,
		Accessibility:     ProbeX11,
		Notifications:     notifyProbe,
	}, logger)
}

// NewWithProbes creates the plugin with an explicit probe table
func NewWithProbes(probes map[string]Probe, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{probes: probes, logger: logger.With("plugin", Name)}
}

// ProbeX11 reports whether an X server accepts connections
func ProbeX11(ctx context.Context) bool {
	conn, err := xgb.NewConn()
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Close() error { return nil }

func (p *Plugin) state(ctx context.Context, name string) (string, error) {
	probe, ok := p.probes[name]
	if !ok || probe == nil {
		return "", plugin.InvalidArgs("unknown permission %q", name)
	}
	if probe(ctx) {
		return Granted, nil
	}
	return Denied, nil
}

// Invoke runs check, request or check_all
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	var args struct {
		Permission string `json:"permission"`
	}
	if err := plugin.Decode(call, &args); err != nil {
		return nil, err
	}

	switch call.Op {
	case "check":
		return p.state(ctx, args.Permission)

	case "request":
		state, err := p.state(ctx, args.Permission)
		if err != nil {
			return nil, err
		}
		if state == Denied {
			p.logger.Info("permission unavailable", "permission", args.Permission)
		}
		return state, nil

	case "check_all":
		out := make(map[string]string, len(p.probes))
		for name := range p.probes {
			state, err := p.state(ctx, name)
			if err != nil {
				continue
			}
			out[name] = state
		}
		return out, nil

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}
