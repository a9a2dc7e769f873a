// Package notification is the native notification plugin.
package notification

import (
	"context"

	"github.com/driftshell/driftshell/internal/plugin"
)

const Name = "notification"

// Permission states reported to the UI
const (
	Granted = "granted"
	Denied  = "denied"
)

// Plugin implements plugin.Plugin over a Notifier
type Plugin struct {
	appName  string
	notifier Notifier
}

// New creates the notification plugin. A nil notifier uses the session bus.
func New(appName string, notifier Notifier) *Plugin {
	if notifier == nil {
		notifier = NewDBusNotifier()
	}
	if appName == "" {
		appName = "driftshell"
	}
	return &Plugin{appName: appName, notifier: notifier}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Close() error { return p.notifier.Close() }

// PermissionGranted reports whether a notification daemon answers. Linux
// desktops have no per-app notification permission.
func (p *Plugin) PermissionGranted() bool {
	_, err := p.notifier.ServerInfo()
	return err == nil
}

func (p *Plugin) permissionState() string {
	if p.PermissionGranted() {
		return Granted
	}
	return Denied
}

// Invoke runs is_permission_granted, request_permission, notify, dismiss or server_info
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	switch call.Op {
	case "is_permission_granted":
		return p.PermissionGranted(), nil

	case "request_permission":
		return p.permissionState(), nil

	case "notify":
		var msg Message
		if err := plugin.Decode(call, &msg); err != nil {
			return nil, err
		}
		if msg.Title == "" && msg.Body == "" {
			return nil, plugin.InvalidArgs("notify: title or body is required")
		}
		return p.notifier.Notify(p.appName, msg)

	case "dismiss":
		var args struct {
			ID uint32 `json:"id"`
		}
		if err := plugin.Decode(call, &args); err != nil {
			return nil, err
		}
		return nil, p.notifier.Dismiss(args.ID)

	case "server_info":
		return p.notifier.ServerInfo()

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}
