package shell

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/plugin"
	"github.com/driftshell/driftshell/internal/watcher"
	"github.com/driftshell/driftshell/pkg/window"
)

func fixedQuerier(app string) watcher.Querier {
	return watcher.QuerierFunc(func() (*window.ActiveWindow, error) {
		return &window.ActiveWindow{
			AppName:  app,
			Title:    app + " - main",
			Position: window.Position{X: 10, Y: 20, Width: 800, Height: 600},
		}, nil
	})
}

func newTestShell(t *testing.T, q watcher.Querier, reg *plugin.Registry) *Shell {
	t.Helper()
	sh := New(q, reg, WithWatcherOptions(watcher.WithInterval(5*time.Millisecond)))
	t.Cleanup(func() { _ = sh.Close() })
	return sh
}

func nextMessage(t *testing.T, s *Session) events.Message {
	t.Helper()
	select {
	case msg, ok := <-s.Messages():
		require.True(t, ok, "session stream closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return events.Message{}
	}
}

func TestStartTrackingEmitsToSession(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("editor"), nil)
	s, err := sh.OpenSession()
	require.NoError(t, err)

	out, err := sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)
	assert.Equal(t, CommandResult{Status: StatusStarted}, out)

	msg := nextMessage(t, s)
	assert.Equal(t, events.EventWindowChanged, msg.Name)
	change := msg.Payload.(events.WindowChange)
	assert.Equal(t, "editor", change.AppName)
	assert.Equal(t, "editor - main", change.WindowTitle)
	assert.Equal(t, 800, change.Position.Width)
	assert.True(t, s.Tracking())
}

func TestStartTrackingOncePerSession(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("editor"), nil)
	s, err := sh.OpenSession()
	require.NoError(t, err)

	_, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)
	out, err := sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)
	assert.Equal(t, CommandResult{Status: StatusAlreadyRunning}, out)

	nextMessage(t, s)

	// a second loop would emit its own first observation
	select {
	case msg := <-s.Messages():
		t.Fatalf("unexpected second event %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, 1, sh.Status().Tracking)
}

func TestSessionsTrackIndependently(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("terminal"), nil)
	a, err := sh.OpenSession()
	require.NoError(t, err)
	b, err := sh.OpenSession()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	for _, s := range []*Session{a, b} {
		_, err := sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, "terminal", nextMessage(t, a).Payload.(events.WindowChange).AppName)
	assert.Equal(t, "terminal", nextMessage(t, b).Payload.(events.WindowChange).AppName)
	assert.Equal(t, 2, sh.Status().Tracking)
}

func TestStopTracking(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("editor"), nil)
	s, err := sh.OpenSession()
	require.NoError(t, err)

	out, err := sh.Invoke(context.Background(), s.ID, CmdStopTracking, nil)
	require.NoError(t, err)
	assert.Equal(t, CommandResult{Status: StatusNotRunning}, out)

	_, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)

	out, err = sh.Invoke(context.Background(), s.ID, CmdStopTracking, nil)
	require.NoError(t, err)
	assert.Equal(t, CommandResult{Status: StatusStopped}, out)
	assert.False(t, s.Tracking())

	// restarting after a stop begins from nothing observed
	for len(s.Messages()) > 0 {
		<-s.Messages()
	}
	out, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)
	assert.Equal(t, CommandResult{Status: StatusStarted}, out)
	assert.Equal(t, "editor", nextMessage(t, s).Payload.(events.WindowChange).AppName)
}

func TestTrackingStatus(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("editor"), nil)
	s, err := sh.OpenSession()
	require.NoError(t, err)

	out, err := sh.Invoke(context.Background(), s.ID, CmdTrackingStatus, nil)
	require.NoError(t, err)
	assert.False(t, out.(TrackingStatus).Running)

	_, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)
	nextMessage(t, s)

	out, err = sh.Invoke(context.Background(), s.ID, CmdTrackingStatus, nil)
	require.NoError(t, err)
	status := out.(TrackingStatus)
	assert.True(t, status.Running)
	require.NotNil(t, status.Stats)
	assert.GreaterOrEqual(t, status.Stats.Published, uint64(1))
}

func TestCurrentWindow(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("browser"), nil)

	out, err := sh.Invoke(context.Background(), "", CmdCurrentWindow, nil)
	require.NoError(t, err)
	change := out.(events.WindowChange)
	assert.Equal(t, "browser", change.AppName)
	assert.InDelta(t, time.Now().UnixMilli(), change.Timestamp, 5000)

	failing := newTestShell(t, nil, nil)
	_, err = failing.Invoke(context.Background(), "", CmdCurrentWindow, nil)
	assert.True(t, errors.Is(err, window.ErrNoActiveWindow))
}

func TestInvokeErrors(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("x"), nil)

	_, err := sh.Invoke(context.Background(), "", "launch_rockets", nil)
	assert.True(t, errors.Is(err, ErrUnknownCommand))

	_, err = sh.Invoke(context.Background(), "", CmdStartTracking, nil)
	assert.True(t, errors.Is(err, ErrNoSession))

	_, err = sh.Invoke(context.Background(), "no-such-session", CmdStartTracking, nil)
	assert.True(t, errors.Is(err, ErrUnknownSession))
}

func TestCloseSessionStopsLoop(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("editor"), nil)
	s, err := sh.OpenSession()
	require.NoError(t, err)

	_, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)

	sh.CloseSession(s.ID)
	assert.False(t, s.Tracking())
	assert.Equal(t, 0, sh.SessionCount())

	_, ok := sh.Session(s.ID)
	assert.False(t, ok)
}

type recordingEmitter struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingEmitter) Emit(name string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	return nil
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}

func TestOpenSessionWithEmitter(t *testing.T) {
	sh := newTestShell(t, fixedQuerier("editor"), nil)
	em := &recordingEmitter{}
	s, err := sh.OpenSessionWith(em)
	require.NoError(t, err)
	assert.Nil(t, s.Messages())

	_, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return em.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

type sessionPlugin struct {
	mu     sync.Mutex
	calls  []plugin.Call
	closed []string
}

func (p *sessionPlugin) Name() string { return "probe" }

func (p *sessionPlugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return call.SessionID, nil
}

func (p *sessionPlugin) Close() error { return nil }

func (p *sessionPlugin) CloseSession(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, id)
}

func TestInvokePlugin(t *testing.T) {
	reg := plugin.NewRegistry()
	probe := &sessionPlugin{}
	reg.Register(probe)
	sh := newTestShell(t, fixedQuerier("x"), reg)

	s, err := sh.OpenSession()
	require.NoError(t, err)

	out, err := sh.InvokePlugin(context.Background(), s.ID, "probe", "ping", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, s.ID, out)
	require.Len(t, probe.calls, 1)
	assert.Equal(t, "ping", probe.calls[0].Op)
	assert.NotNil(t, probe.calls[0].Emitter)

	out, err = sh.InvokePlugin(context.Background(), "", "probe", "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Nil(t, probe.calls[1].Emitter)

	_, err = sh.InvokePlugin(context.Background(), "", "missing", "ping", nil)
	assert.True(t, errors.Is(err, plugin.ErrUnknownPlugin))

	sh.CloseSession(s.ID)
	assert.Equal(t, []string{s.ID}, probe.closed)
}

func TestCloseShell(t *testing.T) {
	sh := New(fixedQuerier("editor"), nil, WithWatcherOptions(watcher.WithInterval(5*time.Millisecond)))
	s, err := sh.OpenSession()
	require.NoError(t, err)
	_, err = sh.Invoke(context.Background(), s.ID, CmdStartTracking, nil)
	require.NoError(t, err)

	require.NoError(t, sh.Close())
	require.NoError(t, sh.Close())
	assert.False(t, s.Tracking())

	var names []string
	for msg := range s.Messages() {
		names = append(names, msg.Name)
	}
	assert.Contains(t, names, EventShutdown)

	_, err = sh.OpenSession()
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = sh.Invoke(context.Background(), "", CmdCurrentWindow, nil)
	assert.True(t, errors.Is(err, ErrClosed))
}
