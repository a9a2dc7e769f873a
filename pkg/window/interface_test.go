package window

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockDetector struct {
	active        *ActiveWindow
	err           error
	isAvailable   bool
	displayServer string
	closeError    error
}

func (m *MockDetector) GetActiveWindow() (*ActiveWindow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.active, nil
}

func (m *MockDetector) IsAvailable() bool {
	return m.isAvailable
}

func (m *MockDetector) GetDisplayServer() string {
	return m.displayServer
}

func (m *MockDetector) Close() error {
	return m.closeError
}

func TestMockDetector(t *testing.T) {
	var _ Detector = (*MockDetector)(nil)

	mock := &MockDetector{
		active: &ActiveWindow{
			AppName:       "TestApp",
			Title:         "Test Window",
			ProcessName:   "test",
			Position:      Position{X: 10, Y: 20, Width: 800, Height: 600},
			DisplayServer: "x11",
		},
		isAvailable:   true,
		displayServer: "x11",
	}

	active, err := mock.GetActiveWindow()
	require.NoError(t, err)
	assert.Equal(t, "TestApp", active.AppName)
	assert.Equal(t, 800, active.Position.Width)
	assert.False(t, active.Position.IsFullScreen)

	assert.True(t, mock.IsAvailable())
	assert.Equal(t, "x11", mock.GetDisplayServer())
	assert.NoError(t, mock.Close())
}

func TestNoActiveWindowIsMatchable(t *testing.T) {
	mock := &MockDetector{err: errors.Wrap(ErrNoActiveWindow, "x11")}

	_, err := mock.GetActiveWindow()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoActiveWindow))
	assert.Equal(t, "x11: no active window", err.Error())
}

func TestPositionFullScreen(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{name: "Windowed", pos: Position{Width: 1280, Height: 720}, want: false},
		{name: "Full screen", pos: Position{Width: 1920, Height: 1080, IsFullScreen: true}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pos.IsFullScreen)
		})
	}
}

func BenchmarkActiveWindowCreation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ActiveWindow{
			AppName:       "TestApp",
			Title:         "Test Window",
			Position:      Position{Width: 100, Height: 100},
			DisplayServer: "x11",
		}
	}
}
