package permissions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/internal/plugin"
)

func always(v bool) Probe {
	return func(context.Context) bool { return v }
}

func invoke(p *Plugin, op, args string) (any, error) {
	return p.Invoke(context.Background(), plugin.Call{Op: op, Args: json.RawMessage(args)})
}

func TestCheck(t *testing.T) {
	p := NewWithProbes(map[string]Probe{
		ScreenRecording: always(true),
		Notifications:   always(false),
	}, nil)

	tests := []struct {
		permission string
		want       string
	}{
		{ScreenRecording, Granted},
		{Notifications, Denied},
	}

	for _, tt := range tests {
		t.Run(tt.permission, func(t *testing.T) {
			out, err := invoke(p, "check", `{"permission":"`+tt.permission+`"}`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)

			out, err = invoke(p, "request", `{"permission":"`+tt.permission+`"}`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestUnknownPermission(t *testing.T) {
	p := New(always(true), always(true), nil)

	_, err := invoke(p, "check", `{"permission":"camera"}`)
	assert.True(t, errors.Is(err, plugin.ErrInvalidArgs))

	_, err = invoke(p, "grant", `{}`)
	assert.True(t, errors.Is(err, plugin.ErrUnknownOp))
}

func TestCheckAll(t *testing.T) {
	p := NewWithProbes(map[string]Probe{
		WindowEnumeration: always(true),
		Accessibility:     always(false),
		Notifications:     nil,
	}, nil)

	out, err := invoke(p, "check_all", ``)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		WindowEnumeration: Granted,
		Accessibility:     Denied,
	}, out)
}
