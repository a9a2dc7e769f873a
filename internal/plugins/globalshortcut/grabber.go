package globalshortcut

import (
	"log/slog"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// KeyEvent is a grabbed key going down or up
type KeyEvent struct {
	Keycode uint8
	State   uint16
	Pressed bool
}

// Grabber owns passive key grabs on the desktop
type Grabber interface {
	Keycode(keysym uint32) (uint8, error)
	Grab(keycode uint8, mods uint16) error
	Ungrab(keycode uint8, mods uint16) error
	Events() <-chan KeyEvent
	Close() error
}

// xgbGrabber grabs keys on the X root window over its own connection
type xgbGrabber struct {
	conn   *xgb.Conn
	root   xproto.Window
	min    xproto.Keycode
	max    xproto.Keycode
	events chan KeyEvent
	logger *slog.Logger

	mu      sync.Mutex
	keymap  []xproto.Keysym
	perCode int
}

// NewX11Grabber connects to $DISPLAY and starts reading key events
func NewX11Grabber(logger *slog.Logger) (Grabber, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	g := &xgbGrabber{
		conn:   conn,
		root:   setup.DefaultScreen(conn).Root,
		min:    setup.MinKeycode,
		max:    setup.MaxKeycode,
		events: make(chan KeyEvent, 16),
		logger: logger,
	}

	go g.read()
	return g, nil
}

func (g *xgbGrabber) loadKeymap() error {
	if g.keymap != nil {
		return nil
	}
	count := byte(g.max - g.min + 1)
	reply, err := xproto.GetKeyboardMapping(g.conn, g.min, count).Reply()
	if err != nil {
		return errors.Wrap(err, "failed to read keyboard mapping")
	}
	g.keymap = reply.Keysyms
	g.perCode = int(reply.KeysymsPerKeycode)
	return nil
}

func (g *xgbGrabber) Keycode(keysym uint32) (uint8, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.loadKeymap(); err != nil {
		return 0, err
	}
	if g.perCode == 0 {
		return 0, errors.New("empty keyboard mapping")
	}

	for i, sym := range g.keymap {
		if uint32(sym) == keysym {
			return uint8(int(g.min) + i/g.perCode), nil
		}
	}
	return 0, errors.Errorf("no keycode for keysym 0x%x", keysym)
}

func (g *xgbGrabber) Grab(keycode uint8, mods uint16) error {
	err := xproto.GrabKeyChecked(g.conn, true, g.root, mods, xproto.Keycode(keycode),
		xproto.GrabModeAsync, xproto.GrabModeAsync).Check()
	if err != nil {
		return errors.Wrap(err, "key grab refused")
	}
	return nil
}

func (g *xgbGrabber) Ungrab(keycode uint8, mods uint16) error {
	err := xproto.UngrabKeyChecked(g.conn, xproto.Keycode(keycode), g.root, mods).Check()
	return errors.Wrap(err, "failed to release key grab")
}

func (g *xgbGrabber) Events() <-chan KeyEvent {
	return g.events
}

func (g *xgbGrabber) read() {
	defer close(g.events)
	for {
		ev, xerr := g.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return
		}
		if xerr != nil {
			g.logger.Debug("x11 error on shortcut connection", "error", xerr)
			continue
		}

		switch e := ev.(type) {
		case xproto.KeyPressEvent:
			g.events <- KeyEvent{Keycode: uint8(e.Detail), State: e.State, Pressed: true}
		case xproto.KeyReleaseEvent:
			g.events <- KeyEvent{Keycode: uint8(e.Detail), State: e.State, Pressed: false}
		}
	}
}

func (g *xgbGrabber) Close() error {
	g.conn.Close()
	return nil
}
