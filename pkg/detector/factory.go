package detector

import (
	"os"

	"github.com/driftshell/driftshell/pkg/integrations/hybrid"
	"github.com/driftshell/driftshell/pkg/window"
)

// New returns the detector for the current desktop session
func New() (window.Detector, error) {
	det, err := hybrid.NewDetector()
	if err != nil {
		return nil, err
	}
	return det, nil
}

// DetectDisplayServer reports the display server advertised by the session environment
func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
