package globalshortcut

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		in        string
		mods      uint16
		keysym    uint32
		canonical string
	}{
		{"CommandOrControl+Shift+K", modControl | modShift, 'k', "Control+Shift+K"},
		{"cmdorctrl+k", modControl, 'k', "Control+K"},
		{"Alt+F4", modAlt, 0xffc1, "Alt+F4"},
		{"Super+Space", modSuper, 0x20, "Super+Space"},
		{"F12", 0, 0xffc9, "F12"},
		{"Shift+Alt+Ctrl+Meta+1", modShift | modAlt | modControl | modSuper, '1', "Control+Alt+Shift+Super+1"},
		{"Ctrl+KeyA", modControl, 'a', "Control+A"},
		{"Ctrl+Digit5", modControl, '5', "Control+5"},
		{"Ctrl++", modControl, '+', "Control+Plus"},
		{"Control+MediaPlayPause", modControl, 0x1008ff14, "Control+MediaPlayPause"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			acc, err := ParseAccelerator(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.mods, acc.Mods)
			assert.Equal(t, tt.keysym, acc.Keysym)
			assert.Equal(t, tt.canonical, acc.Canonical)
		})
	}
}

func TestParseAcceleratorErrors(t *testing.T) {
	for _, in := range []string{"", "Ctrl+Shift", "Ctrl+A+B", "Ctrl+F25", "Ctrl+Banana"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAccelerator(in)
			assert.True(t, errors.Is(err, ErrBadAccelerator), "got %v", err)
		})
	}
}
