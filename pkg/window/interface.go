package window

import "github.com/pkg/errors"

// ErrNoActiveWindow is returned when the OS reports no focused window.
var ErrNoActiveWindow = errors.New("no active window")

// Position is the on-screen placement of a window
type Position struct {
	X            int
	Y            int
	Width        int
	Height       int
	IsFullScreen bool
}

// ActiveWindow represents the currently focused window and its owning application
type ActiveWindow struct {
	AppName       string
	Title         string
	ProcessName   string
	PID           int
	Position      Position
	DisplayServer string // "x11" or "wayland"
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetActiveWindow returns the currently focused window
	GetActiveWindow() (*ActiveWindow, error)

	// IsAvailable checks if this detector can run on the current system
	IsAvailable() bool

	// GetDisplayServer returns the display server type ("x11" or "wayland")
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}
