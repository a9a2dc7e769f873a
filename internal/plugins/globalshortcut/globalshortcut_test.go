package globalshortcut

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/internal/plugin"
)

type grab struct {
	keycode uint8
	mods    uint16
}

type fakeGrabber struct {
	mu     sync.Mutex
	grabs  map[grab]bool
	events chan KeyEvent
	refuse bool
}

func newFakeGrabber() *fakeGrabber {
	return &fakeGrabber{grabs: make(map[grab]bool), events: make(chan KeyEvent, 8)}
}

func (f *fakeGrabber) Keycode(keysym uint32) (uint8, error) {
	if keysym > 0xff {
		return 0, errors.New("unmapped")
	}
	return uint8(keysym), nil
}

func (f *fakeGrabber) Grab(keycode uint8, mods uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return errors.New("BadAccess")
	}
	f.grabs[grab{keycode, mods}] = true
	return nil
}

func (f *fakeGrabber) Ungrab(keycode uint8, mods uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.grabs, grab{keycode, mods})
	return nil
}

func (f *fakeGrabber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grabs)
}

func (f *fakeGrabber) Events() <-chan KeyEvent { return f.events }

func (f *fakeGrabber) Close() error { close(f.events); return nil }

type sink struct {
	mu  sync.Mutex
	got []Event
}

func (s *sink) Emit(name string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, payload.(Event))
	return nil
}

func (s *sink) events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.got...)
}

func newTestPlugin(t *testing.T) (*Plugin, *fakeGrabber) {
	t.Helper()
	g := newFakeGrabber()
	opened := 0
	p := New(func() (Grabber, error) {
		opened++
		require.Equal(t, 1, opened, "grabber opened twice")
		return g, nil
	}, nil)
	return p, g
}

func invoke(p *Plugin, session string, em *sink, op, args string) (any, error) {
	call := plugin.Call{Op: op, Args: json.RawMessage(args), SessionID: session}
	if em != nil {
		call.Emitter = em
	}
	return p.Invoke(context.Background(), call)
}

func TestRegisterAndFire(t *testing.T) {
	p, g := newTestPlugin(t)
	em := &sink{}

	_, err := invoke(p, "s1", em, "register", `{"shortcut":"Ctrl+Shift+K"}`)
	require.NoError(t, err)
	assert.Equal(t, len(lockVariants), g.count())

	registered, err := invoke(p, "s1", nil, "is_registered", `{"shortcut":"control+shift+k"}`)
	require.NoError(t, err)
	assert.Equal(t, true, registered)

	// NumLock on must not matter
	g.events <- KeyEvent{Keycode: 'k', State: modControl | modShift | 16, Pressed: true}
	g.events <- KeyEvent{Keycode: 'k', State: modControl, Pressed: true}
	g.events <- KeyEvent{Keycode: 'k', State: modControl | modShift, Pressed: false}

	assert.Eventually(t, func() bool { return len(em.events()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []Event{
		{Shortcut: "Control+Shift+K", State: Pressed},
		{Shortcut: "Control+Shift+K", State: Released},
	}, em.events())

	require.NoError(t, p.Close())
	assert.Equal(t, 0, g.count())
}

func TestShortcutOwnership(t *testing.T) {
	p, g := newTestPlugin(t)
	defer p.Close()

	_, err := invoke(p, "s1", &sink{}, "register", `{"shortcuts":["Alt+1","Alt+2"]}`)
	require.NoError(t, err)

	_, err = invoke(p, "s2", &sink{}, "register", `{"shortcut":"alt+1"}`)
	assert.True(t, errors.Is(err, ErrTaken))

	// another session cannot release it
	_, err = invoke(p, "s2", nil, "unregister", `{"shortcut":"Alt+1"}`)
	require.NoError(t, err)
	list, err := invoke(p, "s1", nil, "list", ``)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alt+1", "Alt+2"}, list)

	_, err = invoke(p, "s1", nil, "unregister", `{"shortcut":"Alt+1"}`)
	require.NoError(t, err)
	assert.Equal(t, len(lockVariants), g.count())

	_, err = invoke(p, "s1", nil, "unregister_all", ``)
	require.NoError(t, err)
	assert.Equal(t, 0, g.count())
}

func TestRegisterErrors(t *testing.T) {
	p, g := newTestPlugin(t)
	defer p.Close()

	_, err := invoke(p, "s1", nil, "register", `{"shortcut":"Alt+1"}`)
	assert.True(t, errors.Is(err, plugin.ErrNoSession))

	_, err = invoke(p, "s1", &sink{}, "register", `{"shortcut":"Alt+Nope"}`)
	assert.True(t, errors.Is(err, plugin.ErrInvalidArgs))

	_, err = invoke(p, "s1", &sink{}, "register", `{}`)
	assert.True(t, errors.Is(err, plugin.ErrInvalidArgs))

	g.refuse = true
	_, err = invoke(p, "s1", &sink{}, "register", `{"shortcut":"Alt+3"}`)
	assert.Error(t, err)
	assert.Equal(t, 0, g.count())
}

func TestCloseSessionReleases(t *testing.T) {
	p, g := newTestPlugin(t)
	defer p.Close()

	_, err := invoke(p, "s1", &sink{}, "register", `{"shortcut":"Super+A"}`)
	require.NoError(t, err)
	_, err = invoke(p, "s2", &sink{}, "register", `{"shortcut":"Super+F2"}`)
	require.Error(t, err, "F-keys are outside the fake keymap")

	p.CloseSession("s1")
	assert.Equal(t, 0, g.count())
}
