package hybrid

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/pkg/window"
)

type stubWindowDetector struct {
	active *window.ActiveWindow
	err    error
	closed bool
}

func (s *stubWindowDetector) GetActiveWindow() (*window.ActiveWindow, error) {
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.active
	return &copied, nil
}
func (s *stubWindowDetector) IsAvailable() bool        { return true }
func (s *stubWindowDetector) GetDisplayServer() string { return "x11" }
func (s *stubWindowDetector) Close() error             { s.closed = true; return nil }

type stubResolver map[int]string

func (s stubResolver) Name(pid int) (string, error) {
	if name, ok := s[pid]; ok {
		return name, nil
	}
	return "", errors.New("unknown pid")
}
func (s stubResolver) IsAvailable() bool { return true }

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}

func TestGetActiveWindowEnrichesProcessName(t *testing.T) {
	backend := &stubWindowDetector{active: &window.ActiveWindow{AppName: "Firefox", Title: "Docs", PID: 10}}
	d := newDetector(backend, stubResolver{10: "firefox-bin"})

	active, err := d.GetActiveWindow()
	require.NoError(t, err)
	assert.Equal(t, "Firefox", active.AppName)
	assert.Equal(t, "firefox-bin", active.ProcessName)
	assert.Equal(t, "window", d.LastMethod())
}

func TestGetActiveWindowFallsBackToProcessName(t *testing.T) {
	backend := &stubWindowDetector{active: &window.ActiveWindow{Title: "untitled", PID: 20}}
	d := newDetector(backend, stubResolver{20: "gedit"})

	active, err := d.GetActiveWindow()
	require.NoError(t, err)
	assert.Equal(t, "gedit", active.AppName)
	assert.Equal(t, "hybrid", d.LastMethod())
}

func TestGetActiveWindowPropagatesBackendError(t *testing.T) {
	backend := &stubWindowDetector{err: errors.Wrap(window.ErrNoActiveWindow, "x11")}
	d := newDetector(backend, stubResolver{})

	_, err := d.GetActiveWindow()
	assert.True(t, errors.Is(err, window.ErrNoActiveWindow))
}

func TestGetActiveWindowFromConcurrentLoops(t *testing.T) {
	d := newDetector(
		&stubWindowDetector{active: &window.ActiveWindow{Title: "untitled", PID: 20}},
		stubResolver{20: "gedit"},
	)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				active, err := d.GetActiveWindow()
				if assert.NoError(t, err) {
					assert.Equal(t, "gedit", active.AppName)
				}
				_ = d.GetStatus()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "hybrid", d.LastMethod())
}

func TestNoBackend(t *testing.T) {
	d := &Detector{}
	_, err := d.GetActiveWindow()
	assert.Equal(t, ErrNoBackend, err)
	assert.False(t, d.IsAvailable())
	assert.Equal(t, "unknown", d.GetDisplayServer())
}

func TestGetAllDetectorsSorted(t *testing.T) {
	d := newDetector(&stubWindowDetector{}, stubResolver{})

	infos := d.GetAllDetectors()
	require.Len(t, infos, 2)
	assert.Equal(t, "window", infos[0].Type)
	assert.Equal(t, "process", infos[1].Type)
	assert.Contains(t, d.GetStatus(), "Window Detector: x11")
}

func TestClose(t *testing.T) {
	backend := &stubWindowDetector{}
	d := newDetector(backend, stubResolver{})
	require.NoError(t, d.Close())
	assert.True(t, backend.closed)
}
