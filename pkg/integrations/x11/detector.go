package x11

import (
	"encoding/binary"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/pkg/window"
)

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"_NET_WM_STATE",
	"_NET_WM_STATE_FULLSCREEN",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// ErrClosed is returned by a detector after Close
var ErrClosed = errors.New("x11 detector closed")

// Detector implements window.Detector by talking the X11 protocol directly.
// A lost connection is re-established on the next sample.
type Detector struct {
	mu     sync.Mutex
	dial   func() (*xgb.Conn, error)
	conn   *xgb.Conn
	root   xproto.Window
	screen *xproto.ScreenInfo
	atoms  map[string]xproto.Atom
	err    error
	closed bool
}

// NewDetector connects to the X server named by $DISPLAY. A failed connection
// leaves the detector unavailable rather than returning an error.
func NewDetector() *Detector {
	d := &Detector{dial: xgb.NewConn}
	if err := d.connect(); err != nil {
		d.err = err
		slog.Debug("x11 connection unavailable", "error", err)
	}
	return d
}

func (d *Detector) connect() error {
	dial := d.dial
	if dial == nil {
		dial = xgb.NewConn
	}
	conn, err := dial()
	if err != nil {
		return errors.Wrap(err, "failed to connect to X server")
	}
	if d.atoms == nil {
		d.atoms = make(map[string]xproto.Atom)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return errors.Wrapf(err, "failed to intern atom %s", name)
		}
		d.atoms[name] = reply.Atom
	}

	d.conn = conn
	d.screen = screen
	d.root = screen.Root
	d.err = nil
	return nil
}

// disconnect drops a connection the server no longer answers on
func (d *Detector) disconnect() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}

// Root returns the root window of the default screen
func (d *Detector) Root() xproto.Window {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// IsAvailable reports whether the detector holds a live X connection
func (d *Detector) IsAvailable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn != nil
}

// GetDisplayServer returns "x11"
func (d *Detector) GetDisplayServer() string {
	return "x11"
}

// GetActiveWindow returns the focused top-level window with its geometry
func (d *Detector) GetActiveWindow() (*window.ActiveWindow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.conn == nil {
		if err := d.connect(); err != nil {
			d.err = err
			return nil, err
		}
		slog.Debug("x11 connection established")
	}

	win, err := d.activeWindow()
	if err != nil {
		if _, pingErr := xproto.GetInputFocus(d.conn).Reply(); pingErr != nil {
			slog.Debug("x11 connection lost", "error", pingErr)
			d.disconnect()
		}
		return nil, err
	}

	instance, class := parseWMClass(d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, 256))
	appName := class
	if appName == "" {
		appName = instance
	}

	pos, err := d.position(win)
	if err != nil {
		return nil, err
	}

	return &window.ActiveWindow{
		AppName:       appName,
		Title:         d.windowName(win),
		PID:           int(d.windowPID(win)),
		Position:      pos,
		DisplayServer: "x11",
	}, nil
}

func (d *Detector) property(win xproto.Window, atom, atomType xproto.Atom, length uint32) []byte {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, atomType, 0, length).Reply()
	if err != nil || reply == nil {
		return nil
	}
	return reply.Value
}

// activeWindow prefers _NET_ACTIVE_WINDOW and falls back to the input focus,
// walking up to the top-level parent. Reparenting window managers can briefly
// report a frame without a name, so a few attempts are made.
func (d *Detector) activeWindow() (xproto.Window, error) {
	for i := 0; i < 3; i++ {
		data := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
		if len(data) >= 4 {
			if win := xproto.Window(binary.LittleEndian.Uint32(data)); win != 0 && d.hasName(win) {
				return win, nil
			}
		}

		if focus, err := xproto.GetInputFocus(d.conn).Reply(); err == nil {
			if focus.Focus != 0 && focus.Focus != d.root {
				top := d.topLevel(focus.Focus)
				if top != 0 && d.hasName(top) {
					return top, nil
				}
			}
		}

		time.Sleep(20 * time.Millisecond)
	}

	return 0, errors.Wrap(window.ErrNoActiveWindow, "x11")
}

func (d *Detector) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Detector) hasName(win xproto.Window) bool {
	if len(d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 1)) > 0 {
		return true
	}
	return len(d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 1)) > 0
}

func (d *Detector) windowName(win xproto.Window) string {
	if data := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256); len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return strings.TrimRight(string(d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 256)), "\x00")
}

func (d *Detector) windowPID(win xproto.Window) uint32 {
	data := d.property(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

func (d *Detector) position(win xproto.Window) (window.Position, error) {
	geom, err := xproto.GetGeometry(d.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return window.Position{}, errors.Wrap(err, "failed to get window geometry")
	}

	x, y := int(geom.X), int(geom.Y)
	if abs, err := xproto.TranslateCoordinates(d.conn, win, d.root, 0, 0).Reply(); err == nil {
		x, y = int(abs.DstX), int(abs.DstY)
	}

	pos := window.Position{
		X:      x,
		Y:      y,
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}

	state := d.property(win, d.atoms["_NET_WM_STATE"], xproto.AtomAtom, 32)
	pos.IsFullScreen = hasAtom(state, d.atoms["_NET_WM_STATE_FULLSCREEN"]) ||
		coversScreen(pos, int(d.screen.WidthInPixels), int(d.screen.HeightInPixels))

	return pos, nil
}

// Close releases the X connection
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.disconnect()
	return nil
}

// parseWMClass splits the NUL separated WM_CLASS value into instance and class
func parseWMClass(data []byte) (instance, class string) {
	if len(data) == 0 {
		return "", ""
	}
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	instance = parts[0]
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

func hasAtom(data []byte, atom xproto.Atom) bool {
	if atom == 0 {
		return false
	}
	for i := 0; i+4 <= len(data); i += 4 {
		if xproto.Atom(binary.LittleEndian.Uint32(data[i:])) == atom {
			return true
		}
	}
	return false
}

func coversScreen(pos window.Position, width, height int) bool {
	if width == 0 || height == 0 {
		return false
	}
	return pos.X <= 0 && pos.Y <= 0 && pos.Width >= width && pos.Height >= height
}
