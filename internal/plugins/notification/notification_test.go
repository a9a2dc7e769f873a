package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/internal/plugin"
)

type fakeNotifier struct {
	down      bool
	sent      []Message
	apps      []string
	dismissed []uint32
	closed    bool
}

func (f *fakeNotifier) ServerInfo() (ServerInfo, error) {
	if f.down {
		return ServerInfo{}, errors.New("no daemon")
	}
	return ServerInfo{Name: "dunst", SpecVersion: "1.2"}, nil
}

func (f *fakeNotifier) Notify(app string, msg Message) (uint32, error) {
	if f.down {
		return 0, errors.New("no daemon")
	}
	f.apps = append(f.apps, app)
	f.sent = append(f.sent, msg)
	return uint32(len(f.sent)), nil
}

func (f *fakeNotifier) Dismiss(id uint32) error {
	f.dismissed = append(f.dismissed, id)
	return nil
}

func (f *fakeNotifier) Close() error { f.closed = true; return nil }

func invoke(p *Plugin, op, args string) (any, error) {
	return p.Invoke(context.Background(), plugin.Call{Op: op, Args: json.RawMessage(args)})
}

func TestPermission(t *testing.T) {
	tests := []struct {
		name    string
		down    bool
		granted bool
		state   string
	}{
		{"daemon running", false, true, Granted},
		{"no daemon", true, false, Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("", &fakeNotifier{down: tt.down})

			out, err := invoke(p, "is_permission_granted", "")
			require.NoError(t, err)
			assert.Equal(t, tt.granted, out)

			out, err = invoke(p, "request_permission", "")
			require.NoError(t, err)
			assert.Equal(t, tt.state, out)
		})
	}
}

func TestNotify(t *testing.T) {
	f := &fakeNotifier{}
	p := New("tracker", f)

	out, err := invoke(p, "notify", `{"title":"Focus","body":"Editor is active","urgency":"low"}`)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), out)
	require.Len(t, f.sent, 1)
	assert.Equal(t, "Focus", f.sent[0].Title)
	assert.Equal(t, "tracker", f.apps[0])

	_, err = invoke(p, "notify", `{}`)
	assert.True(t, errors.Is(err, plugin.ErrInvalidArgs))

	_, err = invoke(p, "dismiss", `{"id":1}`)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, f.dismissed)

	info, err := invoke(p, "server_info", "")
	require.NoError(t, err)
	assert.Equal(t, "dunst", info.(ServerInfo).Name)

	require.NoError(t, p.Close())
	assert.True(t, f.closed)
}

func TestUrgencyLevel(t *testing.T) {
	level, ok := urgencyLevel("critical")
	assert.True(t, ok)
	assert.Equal(t, byte(2), level)

	_, ok = urgencyLevel("loud")
	assert.False(t, ok)
}
