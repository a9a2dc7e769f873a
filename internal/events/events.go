// Package events defines the payloads pushed to the user interface and the
// one-way channel that carries them.
package events

import (
	"github.com/driftshell/driftshell/pkg/window"
)

// Event names emitted to UI sessions.
const (
	EventWindowChanged  = "window_changed"
	EventGlobalShortcut = "global_shortcut"
	EventFSChanged      = "fs_changed"
	EventSession        = "session"
)

// WindowPosition is the geometry of the foreground window
type WindowPosition struct {
	X            int  `json:"x"`
	Y            int  `json:"y"`
	Width        int  `json:"width"`
	Height       int  `json:"height"`
	IsFullScreen bool `json:"is_full_screen"`
}

// WindowChange is published when the foreground application changes.
// Timestamp is in milliseconds since the Unix epoch.
type WindowChange struct {
	AppName     string         `json:"app_name"`
	WindowTitle string         `json:"window_title"`
	Timestamp   int64          `json:"timestamp"`
	Position    WindowPosition `json:"position"`
}

// NewWindowChange builds the payload for an active window observed at timestamp
func NewWindowChange(active *window.ActiveWindow, timestamp int64) WindowChange {
	return WindowChange{
		AppName:     active.AppName,
		WindowTitle: active.Title,
		Timestamp:   timestamp,
		Position: WindowPosition{
			X:            active.Position.X,
			Y:            active.Position.Y,
			Width:        active.Position.Width,
			Height:       active.Position.Height,
			IsFullScreen: active.Position.IsFullScreen,
		},
	}
}

// Emitter delivers a named event to whatever listener is bound to it.
// Delivery is best effort; an error means the event was not delivered.
type Emitter interface {
	Emit(name string, payload any) error
}

// EmitterFunc adapts a function to the Emitter interface
type EmitterFunc func(name string, payload any) error

// Emit calls f(name, payload)
func (f EmitterFunc) Emit(name string, payload any) error {
	return f(name, payload)
}
