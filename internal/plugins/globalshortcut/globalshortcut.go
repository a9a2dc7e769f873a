// Package globalshortcut registers desktop-wide keyboard shortcuts and pushes
// a global_shortcut event to the registering session when one fires.
package globalshortcut

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/plugin"
)

const Name = "globalshortcut"

// ErrTaken is returned when another session already holds a shortcut
var ErrTaken = errors.New("shortcut already registered")

// Shortcut event states
const (
	Pressed  = "Pressed"
	Released = "Released"
)

// Event is the payload of a global_shortcut event
type Event struct {
	Shortcut string `json:"shortcut"`
	State    string `json:"state"`
}

type binding struct {
	acc     Accelerator
	keycode uint8
	session string
	emitter events.Emitter
}

// Plugin implements plugin.Plugin
type Plugin struct {
	open   func() (Grabber, error)
	logger *slog.Logger

	mu       sync.Mutex
	grabber  Grabber
	loopDone chan struct{}
	bindings map[string]*binding
}

// New creates the plugin. open is called once, on the first registration; a
// nil open grabs keys on the X server.
func New(open func() (Grabber, error), logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("plugin", Name)
	if open == nil {
		open = func() (Grabber, error) { return NewX11Grabber(logger) }
	}
	return &Plugin{
		open:     open,
		logger:   logger,
		bindings: make(map[string]*binding),
	}
}

func (p *Plugin) Name() string { return Name }

type args struct {
	Shortcut  string   `json:"shortcut"`
	Shortcuts []string `json:"shortcuts"`
}

func (a args) list() []string {
	if a.Shortcut != "" {
		return append([]string{a.Shortcut}, a.Shortcuts...)
	}
	return a.Shortcuts
}

// Invoke runs register, unregister, unregister_all, is_registered or list
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	var a args
	if err := plugin.Decode(call, &a); err != nil {
		return nil, err
	}

	switch call.Op {
	case "register":
		if call.Emitter == nil {
			return nil, errors.Wrap(plugin.ErrNoSession, "globalshortcut.register")
		}
		shortcuts := a.list()
		if len(shortcuts) == 0 {
			return nil, plugin.InvalidArgs("register: shortcut is required")
		}
		for _, s := range shortcuts {
			if err := p.register(call.SessionID, s, call.Emitter); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case "unregister":
		shortcuts := a.list()
		if len(shortcuts) == 0 {
			return nil, plugin.InvalidArgs("unregister: shortcut is required")
		}
		for _, s := range shortcuts {
			if err := p.unregister(call.SessionID, s); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case "unregister_all":
		p.CloseSession(call.SessionID)
		return nil, nil

	case "is_registered":
		acc, err := ParseAccelerator(a.Shortcut)
		if err != nil {
			return nil, plugin.InvalidArgs("%v", err)
		}
		p.mu.Lock()
		_, ok := p.bindings[acc.Canonical]
		p.mu.Unlock()
		return ok, nil

	case "list":
		return p.registered(call.SessionID), nil

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}

func (p *Plugin) ensureGrabber() (Grabber, error) {
	if p.grabber != nil {
		return p.grabber, nil
	}
	g, err := p.open()
	if err != nil {
		return nil, err
	}
	p.grabber = g
	p.loopDone = make(chan struct{})
	go p.dispatch(g, p.loopDone)
	return g, nil
}

func (p *Plugin) register(session, shortcut string, emitter events.Emitter) error {
	acc, err := ParseAccelerator(shortcut)
	if err != nil {
		return plugin.InvalidArgs("%v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if b, ok := p.bindings[acc.Canonical]; ok {
		if b.session == session {
			b.emitter = emitter
			return nil
		}
		return errors.Wrap(ErrTaken, acc.Canonical)
	}

	g, err := p.ensureGrabber()
	if err != nil {
		return err
	}
	keycode, err := g.Keycode(acc.Keysym)
	if err != nil {
		return errors.Wrapf(err, "cannot map %s", acc.Canonical)
	}

	for i, lock := range lockVariants {
		if err := g.Grab(keycode, acc.Mods|lock); err != nil {
			for _, undo := range lockVariants[:i] {
				_ = g.Ungrab(keycode, acc.Mods|undo)
			}
			return errors.Wrapf(err, "cannot register %s", acc.Canonical)
		}
	}

	p.bindings[acc.Canonical] = &binding{acc: acc, keycode: keycode, session: session, emitter: emitter}
	p.logger.Debug("shortcut registered", "shortcut", acc.Canonical, "session", session)
	return nil
}

func (p *Plugin) unregister(session, shortcut string) error {
	acc, err := ParseAccelerator(shortcut)
	if err != nil {
		return plugin.InvalidArgs("%v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bindings[acc.Canonical]
	if !ok || b.session != session {
		return nil
	}
	p.release(b)
	return nil
}

// release drops a binding; the caller holds p.mu
func (p *Plugin) release(b *binding) {
	for _, lock := range lockVariants {
		if err := p.grabber.Ungrab(b.keycode, b.acc.Mods|lock); err != nil {
			p.logger.Debug("ungrab failed", "shortcut", b.acc.Canonical, "error", err)
		}
	}
	delete(p.bindings, b.acc.Canonical)
}

func (p *Plugin) registered(session string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := []string{}
	for name, b := range p.bindings {
		if b.session == session {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (p *Plugin) dispatch(g Grabber, done chan struct{}) {
	defer close(done)
	for ev := range g.Events() {
		state := ev.State & significantMods

		p.mu.Lock()
		var target *binding
		for _, b := range p.bindings {
			if b.keycode == ev.Keycode && b.acc.Mods == state {
				target = b
				break
			}
		}
		p.mu.Unlock()

		if target == nil {
			continue
		}
		payload := Event{Shortcut: target.acc.Canonical, State: Released}
		if ev.Pressed {
			payload.State = Pressed
		}
		if err := target.emitter.Emit(events.EventGlobalShortcut, payload); err != nil {
			p.logger.Debug("shortcut event not delivered", "shortcut", payload.Shortcut, "error", err)
		}
	}
}

// CloseSession releases every shortcut held by session
func (p *Plugin) CloseSession(session string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range p.bindings {
		if b.session == session {
			p.release(b)
		}
	}
}

// Close releases all shortcuts and the X connection
func (p *Plugin) Close() error {
	p.mu.Lock()
	for _, b := range p.bindings {
		p.release(b)
	}
	g, done := p.grabber, p.loopDone
	p.grabber = nil
	p.mu.Unlock()

	if g == nil {
		return nil
	}
	err := g.Close()
	<-done
	return err
}
