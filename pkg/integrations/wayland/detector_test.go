package wayland

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/pkg/window"
)

func TestDetectorInterface(t *testing.T) {
	var _ window.Detector = (*Detector)(nil)
}

func TestGetDisplayServer(t *testing.T) {
	d := &Detector{compositor: "unknown"}
	assert.Equal(t, "wayland", d.GetDisplayServer())
	assert.False(t, d.IsAvailable())

	_, err := d.GetActiveWindow()
	assert.Error(t, err)
}

func TestIsAvailable(t *testing.T) {
	tests := []struct {
		name string
		d    Detector
		want bool
	}{
		{name: "sway with swaymsg", d: Detector{compositor: "sway", hasSwaymsg: true}, want: true},
		{name: "sway without swaymsg", d: Detector{compositor: "sway"}, want: false},
		{name: "hyprland with hyprctl", d: Detector{compositor: "hyprland", hasHyprctl: true}, want: true},
		{name: "gnome", d: Detector{compositor: "gnome"}, want: true},
		{name: "kde", d: Detector{compositor: "kde"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.IsAvailable())
		})
	}
}

const swayTree = `{
  "type": "root", "name": "root", "focused": false,
  "nodes": [{
    "type": "output", "name": "eDP-1", "focused": false,
    "nodes": [{
      "type": "workspace", "name": "1", "focused": false,
      "nodes": [
        {"type": "con", "name": "vim", "focused": false, "app_id": "foot", "pid": 10,
         "rect": {"x": 0, "y": 0, "width": 960, "height": 1080}, "nodes": []},
        {"type": "con", "name": "Mozilla Firefox", "focused": true, "app_id": null, "pid": 42,
         "fullscreen_mode": 1,
         "window_properties": {"class": "firefox", "instance": "Navigator"},
         "rect": {"x": 960, "y": 0, "width": 960, "height": 1080}, "nodes": []}
      ],
      "floating_nodes": []
    }]
  }]
}`

func TestParseSwayTree(t *testing.T) {
	active, err := parseSwayTree([]byte(swayTree))
	require.NoError(t, err)

	assert.Equal(t, "firefox", active.AppName)
	assert.Equal(t, "Mozilla Firefox", active.Title)
	assert.Equal(t, 42, active.PID)
	assert.Equal(t, window.Position{X: 960, Y: 0, Width: 960, Height: 1080, IsFullScreen: true}, active.Position)
}

func TestParseSwayTreeNoFocus(t *testing.T) {
	_, err := parseSwayTree([]byte(`{"type": "root", "focused": true, "nodes": []}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, window.ErrNoActiveWindow))

	_, err = parseSwayTree([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseHyprlandWindow(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantFullscreen bool
	}{
		{
			name:           "Bool fullscreen",
			input:          `{"class": "kitty", "title": "~", "pid": 7, "at": [10, 40], "size": [800, 600], "fullscreen": false}`,
			wantFullscreen: false,
		},
		{
			name:           "Numeric fullscreen",
			input:          `{"class": "kitty", "title": "~", "pid": 7, "at": [10, 40], "size": [800, 600], "fullscreen": 2}`,
			wantFullscreen: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active, err := parseHyprlandWindow([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, "kitty", active.AppName)
			assert.Equal(t, 10, active.Position.X)
			assert.Equal(t, 40, active.Position.Y)
			assert.Equal(t, 800, active.Position.Width)
			assert.Equal(t, tt.wantFullscreen, active.Position.IsFullScreen)
		})
	}
}

func TestParseHyprlandWindowEmpty(t *testing.T) {
	_, err := parseHyprlandWindow([]byte("{}"))
	assert.True(t, errors.Is(err, window.ErrNoActiveWindow))

	_, err = parseHyprlandWindow([]byte("Invalid"))
	assert.True(t, errors.Is(err, window.ErrNoActiveWindow))
}

func TestParseGnomeEval(t *testing.T) {
	result := `"{\"wm_class\":\"org.gnome.Nautilus\",\"title\":\"Home\",\"pid\":99,\"x\":5,\"y\":6,\"width\":700,\"height\":500,\"fullscreen\":false}"`

	active, err := parseGnomeEval(result)
	require.NoError(t, err)
	assert.Equal(t, "org.gnome.Nautilus", active.AppName)
	assert.Equal(t, "Home", active.Title)
	assert.Equal(t, 99, active.PID)
	assert.Equal(t, window.Position{X: 5, Y: 6, Width: 700, Height: 500}, active.Position)
}

func TestParseGnomeEvalNoWindow(t *testing.T) {
	_, err := parseGnomeEval(`""`)
	assert.True(t, errors.Is(err, window.ErrNoActiveWindow))
}
