package wayland

import (
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/pkg/window"
)

const gnomeScript = `
(function () {
	let w = global.display.get_focus_window();
	if (!w) { return ''; }
	let r = w.get_frame_rect();
	return JSON.stringify({
		wm_class: w.get_wm_class() || '',
		title: w.get_title() || '',
		pid: w.get_pid() || 0,
		x: r.x, y: r.y, width: r.width, height: r.height,
		fullscreen: w.is_fullscreen()
	});
})()`

// Detector implements window.Detector for Wayland compositors
type Detector struct {
	compositor string
	hasSwaymsg bool
	hasHyprctl bool

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewDetector creates a new Wayland detector
func NewDetector() *Detector {
	d := &Detector{}
	d.hasSwaymsg = commandExists("swaymsg")
	d.hasHyprctl = commandExists("hyprctl")
	d.compositor = detectCompositor()
	return d
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// detectCompositor uses the compositor's own environment first and falls back
// to looking for its process.
func detectCompositor() string {
	if os.Getenv("SWAYSOCK") != "" {
		return "sway"
	}
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return "hyprland"
	}
	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	if strings.Contains(desktop, "gnome") || strings.Contains(desktop, "ubuntu") {
		return "gnome"
	}

	compositors := []struct{ process, name string }{
		{"sway", "sway"},
		{"Hyprland", "hyprland"},
		{"gnome-shell", "gnome"},
		{"kwin_wayland", "kde"},
	}
	for _, c := range compositors {
		if err := exec.Command("pgrep", "-x", c.process).Run(); err == nil {
			return c.name
		}
	}

	return "unknown"
}

// Compositor returns the detected compositor name
func (d *Detector) Compositor() string {
	return d.compositor
}

// IsAvailable checks if Wayland detection is available
func (d *Detector) IsAvailable() bool {
	switch d.compositor {
	case "sway":
		return d.hasSwaymsg
	case "hyprland":
		return d.hasHyprctl
	case "gnome":
		return true
	default:
		return false
	}
}

// GetDisplayServer returns "wayland"
func (d *Detector) GetDisplayServer() string {
	return "wayland"
}

// GetActiveWindow returns the focused window as reported by the compositor
func (d *Detector) GetActiveWindow() (*window.ActiveWindow, error) {
	var (
		active *window.ActiveWindow
		err    error
	)

	switch d.compositor {
	case "sway":
		active, err = d.activeWindowSway()
	case "hyprland":
		active, err = d.activeWindowHyprland()
	case "gnome":
		active, err = d.activeWindowGnome()
	default:
		return nil, errors.Errorf("unsupported wayland compositor: %s", d.compositor)
	}
	if err != nil {
		return nil, err
	}

	active.DisplayServer = "wayland"
	return active, nil
}

func (d *Detector) activeWindowSway() (*window.ActiveWindow, error) {
	output, err := exec.Command("swaymsg", "-t", "get_tree", "-r").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute swaymsg")
	}
	return parseSwayTree(output)
}

type swayRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type swayNode struct {
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Focused          bool     `json:"focused"`
	AppID            string   `json:"app_id"`
	PID              int      `json:"pid"`
	FullscreenMode   int      `json:"fullscreen_mode"`
	Rect             swayRect `json:"rect"`
	WindowProperties *struct {
		Class    string `json:"class"`
		Instance string `json:"instance"`
	} `json:"window_properties"`
	Nodes         []swayNode `json:"nodes"`
	FloatingNodes []swayNode `json:"floating_nodes"`
}

func findFocused(node *swayNode) *swayNode {
	if node.Focused && (node.Type == "con" || node.Type == "floating_con") {
		return node
	}
	for i := range node.Nodes {
		if n := findFocused(&node.Nodes[i]); n != nil {
			return n
		}
	}
	for i := range node.FloatingNodes {
		if n := findFocused(&node.FloatingNodes[i]); n != nil {
			return n
		}
	}
	return nil
}

// parseSwayTree walks the sway layout tree for the focused container
func parseSwayTree(data []byte) (*window.ActiveWindow, error) {
	var root swayNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(err, "failed to decode sway tree")
	}

	node := findFocused(&root)
	if node == nil {
		return nil, errors.Wrap(window.ErrNoActiveWindow, "sway")
	}

	appName := node.AppID
	if appName == "" && node.WindowProperties != nil {
		appName = node.WindowProperties.Class
	}

	return &window.ActiveWindow{
		AppName: appName,
		Title:   node.Name,
		PID:     node.PID,
		Position: window.Position{
			X:            node.Rect.X,
			Y:            node.Rect.Y,
			Width:        node.Rect.Width,
			Height:       node.Rect.Height,
			IsFullScreen: node.FullscreenMode != 0,
		},
	}, nil
}

func (d *Detector) activeWindowHyprland() (*window.ActiveWindow, error) {
	output, err := exec.Command("hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute hyprctl")
	}
	return parseHyprlandWindow(output)
}

type hyprlandWindow struct {
	Class      string          `json:"class"`
	Title      string          `json:"title"`
	PID        int             `json:"pid"`
	At         [2]int          `json:"at"`
	Size       [2]int          `json:"size"`
	Fullscreen json.RawMessage `json:"fullscreen"`
}

// parseHyprlandWindow decodes `hyprctl activewindow -j`. Older releases
// report fullscreen as a bool, newer ones as a mode number.
func parseHyprlandWindow(data []byte) (*window.ActiveWindow, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" || strings.HasPrefix(trimmed, "Invalid") {
		return nil, errors.Wrap(window.ErrNoActiveWindow, "hyprland")
	}

	var w hyprlandWindow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode hyprland window")
	}

	return &window.ActiveWindow{
		AppName: w.Class,
		Title:   w.Title,
		PID:     w.PID,
		Position: window.Position{
			X:            w.At[0],
			Y:            w.At[1],
			Width:        w.Size[0],
			Height:       w.Size[1],
			IsFullScreen: isFullscreenValue(w.Fullscreen),
		},
	}, nil
}

func isFullscreenValue(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	return false
}

func (d *Detector) sessionBus() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil && d.conn.Connected() {
		return d.conn, nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}
	d.conn = conn
	return conn, nil
}

// activeWindowGnome evaluates a script inside GNOME Shell. Recent GNOME
// releases only allow Eval in unsafe mode; the error is returned as-is.
func (d *Detector) activeWindowGnome() (*window.ActiveWindow, error) {
	conn, err := d.sessionBus()
	if err != nil {
		return nil, err
	}

	var (
		ok     bool
		result string
	)
	obj := conn.Object("org.gnome.Shell", "/org/gnome/Shell")
	if err := obj.Call("org.gnome.Shell.Eval", 0, gnomeScript).Store(&ok, &result); err != nil {
		return nil, errors.Wrap(err, "org.gnome.Shell.Eval failed")
	}
	if !ok {
		return nil, errors.Errorf("GNOME Shell rejected eval: %s", result)
	}

	return parseGnomeEval(result)
}

type gnomeWindow struct {
	WMClass    string `json:"wm_class"`
	Title      string `json:"title"`
	PID        int    `json:"pid"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Fullscreen bool   `json:"fullscreen"`
}

// parseGnomeEval decodes the Eval result, which is the JSON encoding of the
// script's string return value.
func parseGnomeEval(result string) (*window.ActiveWindow, error) {
	payload := result
	var inner string
	if err := json.Unmarshal([]byte(result), &inner); err == nil {
		payload = inner
	}
	if payload == "" {
		return nil, errors.Wrap(window.ErrNoActiveWindow, "gnome")
	}

	var w gnomeWindow
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode GNOME window")
	}

	return &window.ActiveWindow{
		AppName: w.WMClass,
		Title:   w.Title,
		PID:     w.PID,
		Position: window.Position{
			X:            w.X,
			Y:            w.Y,
			Width:        w.Width,
			Height:       w.Height,
			IsFullScreen: w.Fullscreen,
		},
	}, nil
}

// Close releases the session bus connection
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		err := d.conn.Close()
		d.conn = nil
		return err
	}
	return nil
}
