package hybrid

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/pkg/integrations/process"
	"github.com/driftshell/driftshell/pkg/integrations/wayland"
	"github.com/driftshell/driftshell/pkg/integrations/x11"
	"github.com/driftshell/driftshell/pkg/window"
)

// ErrNoBackend is returned when neither X11 nor a supported Wayland
// compositor can be reached.
var ErrNoBackend = errors.New("no window detection backend available")

type nameResolver interface {
	Name(pid int) (string, error)
	IsAvailable() bool
}

// Detector combines a display-server backend with PID based name resolution
type Detector struct {
	windowDetector window.Detector
	resolver       nameResolver

	// shared by every tracking loop
	mu                   sync.Mutex
	lastSuccessfulMethod string
}

// NewDetector picks the best available backend for the current session
func NewDetector() (*Detector, error) {
	windowDet := detectWindowDetector()
	if windowDet == nil {
		return nil, ErrNoBackend
	}
	slog.Debug("window detector initialized", "display_server", windowDet.GetDisplayServer())

	return newDetector(windowDet, process.NewResolver()), nil
}

func newDetector(windowDet window.Detector, resolver nameResolver) *Detector {
	return &Detector{
		windowDetector: windowDet,
		resolver:       resolver,
	}
}

func detectWindowDetector() window.Detector {
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	xdgSessionType := os.Getenv("XDG_SESSION_TYPE")

	if waylandDisplay != "" || xdgSessionType == "wayland" {
		det := wayland.NewDetector()
		if det.IsAvailable() {
			return det
		}
		_ = det.Close()
	}

	// XWayland sessions also land here when the compositor is unsupported.
	if os.Getenv("DISPLAY") != "" {
		det := x11.NewDetector()
		if det.IsAvailable() {
			return det
		}
	}

	return nil
}

// GetActiveWindow queries the backend and fills in the process name, using it
// as the application name when the backend reports none.
func (d *Detector) GetActiveWindow() (*window.ActiveWindow, error) {
	if d.windowDetector == nil {
		return nil, ErrNoBackend
	}

	active, err := d.windowDetector.GetActiveWindow()
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, errors.Wrap(window.ErrNoActiveWindow, "hybrid")
	}
	method := "window"

	if active.PID > 0 && d.resolver != nil {
		if name, err := d.resolver.Name(active.PID); err == nil {
			active.ProcessName = name
			if active.AppName == "" {
				active.AppName = name
				method = "hybrid"
			}
		}
	}

	d.mu.Lock()
	d.lastSuccessfulMethod = method
	d.mu.Unlock()

	return active, nil
}

// LastMethod names how the last successful sample was produced
func (d *Detector) LastMethod() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSuccessfulMethod
}

// IsAvailable reports whether the backend can be used
func (d *Detector) IsAvailable() bool {
	return d.windowDetector != nil && d.windowDetector.IsAvailable()
}

// GetDisplayServer returns the backend's display server
func (d *Detector) GetDisplayServer() string {
	if d.windowDetector != nil {
		return d.windowDetector.GetDisplayServer()
	}
	return "unknown"
}

// Close releases the backend
func (d *Detector) Close() error {
	if d.windowDetector != nil {
		if err := d.windowDetector.Close(); err != nil {
			return errors.Wrap(err, "failed to close window detector")
		}
	}
	return nil
}

// DetectorInfo describes one of the backends used by the hybrid detector
type DetectorInfo struct {
	Name      string
	Type      string
	Available bool
	Priority  int
	Method    string
}

// GetAllDetectors lists the backends in priority order
func (d *Detector) GetAllDetectors() []DetectorInfo {
	var detectors []DetectorInfo

	if d.windowDetector != nil {
		detectors = append(detectors, DetectorInfo{
			Name:      "Window Detector",
			Type:      "window",
			Available: d.windowDetector.IsAvailable(),
			Priority:  100,
			Method:    d.windowDetector.GetDisplayServer(),
		})
	}

	if d.resolver != nil {
		detectors = append(detectors, DetectorInfo{
			Name:      "Process Resolver",
			Type:      "process",
			Available: d.resolver.IsAvailable(),
			Priority:  50,
			Method:    "pid",
		})
	}

	sort.Slice(detectors, func(i, j int) bool {
		return detectors[i].Priority > detectors[j].Priority
	})

	return detectors
}

// GetStatus renders a human readable summary of the backends
func (d *Detector) GetStatus() string {
	status := "Hybrid Detector Status:\n"
	for _, info := range d.GetAllDetectors() {
		status += fmt.Sprintf("  %s: %s (available: %v)\n", info.Name, info.Method, info.Available)
	}
	if method := d.LastMethod(); method != "" {
		status += fmt.Sprintf("  Last successful method: %s\n", method)
	}
	return status
}
