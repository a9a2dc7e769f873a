package process

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/internal/daemon"
	"github.com/driftshell/driftshell/internal/plugin"
)

func TestPIDAndInfo(t *testing.T) {
	dm := daemon.New(filepath.Join(t.TempDir(), "p.pid"))
	p := New(dm, nil)

	out, err := p.Invoke(context.Background(), plugin.Call{Op: "pid"})
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), out)

	out, err = p.Invoke(context.Background(), plugin.Call{Op: "info"})
	require.NoError(t, err)
	info := out.(Info)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.Equal(t, dm.PIDFile(), info.PIDFile)
}

func TestExitRunsHooks(t *testing.T) {
	codes := make(chan int, 1)
	var hooked bool
	p := New(nil, nil,
		WithDelay(0),
		WithBeforeExit(func() { hooked = true }),
		WithExit(func(code int) { codes <- code }),
	)

	_, err := p.Invoke(context.Background(), plugin.Call{Op: "exit", Args: json.RawMessage(`{"code":3}`)})
	require.NoError(t, err)

	select {
	case code := <-codes:
		assert.Equal(t, 3, code)
		assert.True(t, hooked)
	case <-time.After(time.Second):
		t.Fatal("exit was not called")
	}
}

func TestRestartFailureExits(t *testing.T) {
	codes := make(chan int, 1)
	p := New(nil, nil,
		WithDelay(0),
		WithRestart(func() error { return errors.New("exec failed") }),
		WithExit(func(code int) { codes <- code }),
	)

	_, err := p.Invoke(context.Background(), plugin.Call{Op: "restart"})
	require.NoError(t, err)

	select {
	case code := <-codes:
		assert.Equal(t, 1, code)
	case <-time.After(time.Second):
		t.Fatal("exit was not called after failed restart")
	}
}

func TestUnknownOp(t *testing.T) {
	_, err := New(nil, nil).Invoke(context.Background(), plugin.Call{Op: "kill"})
	assert.True(t, errors.Is(err, plugin.ErrUnknownOp))
}
