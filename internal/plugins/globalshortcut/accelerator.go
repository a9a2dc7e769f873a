package globalshortcut

import (
	"strings"

	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"
)

// ErrBadAccelerator is returned for shortcut strings that cannot be parsed
var ErrBadAccelerator = errors.New("invalid accelerator")

const (
	modShift   = uint16(xproto.ModMaskShift)
	modControl = uint16(xproto.ModMaskControl)
	modAlt     = uint16(xproto.ModMask1)
	modSuper   = uint16(xproto.ModMask4)

	// modifiers that count when matching a key press
	significantMods = modShift | modControl | modAlt | modSuper
)

// lock modifiers that must not prevent a shortcut from firing
var lockVariants = []uint16{
	0,
	uint16(xproto.ModMaskLock),
	uint16(xproto.ModMask2),
	uint16(xproto.ModMaskLock | xproto.ModMask2),
}

// Accelerator is a parsed shortcut such as "CmdOrCtrl+Shift+K"
type Accelerator struct {
	Mods      uint16
	Keysym    uint32
	Canonical string
}

var modifierNames = map[string]uint16{
	"shift":            modShift,
	"ctrl":             modControl,
	"control":          modControl,
	"commandorcontrol": modControl,
	"cmdorctrl":        modControl,
	"alt":              modAlt,
	"option":           modAlt,
	"altgr":            modAlt,
	"super":            modSuper,
	"meta":             modSuper,
	"cmd":              modSuper,
	"command":          modSuper,
}

var namedKeys = map[string]struct {
	keysym uint32
	label  string
}{
	"space":              {0x0020, "Space"},
	"enter":              {0xff0d, "Enter"},
	"return":             {0xff0d, "Enter"},
	"tab":                {0xff09, "Tab"},
	"esc":                {0xff1b, "Escape"},
	"escape":             {0xff1b, "Escape"},
	"backspace":          {0xff08, "Backspace"},
	"delete":             {0xffff, "Delete"},
	"insert":             {0xff63, "Insert"},
	"home":               {0xff50, "Home"},
	"end":                {0xff57, "End"},
	"pageup":             {0xff55, "PageUp"},
	"pagedown":           {0xff56, "PageDown"},
	"left":               {0xff51, "Left"},
	"up":                 {0xff52, "Up"},
	"right":              {0xff53, "Right"},
	"down":               {0xff54, "Down"},
	"printscreen":        {0xff61, "PrintScreen"},
	"pause":              {0xff13, "Pause"},
	"minus":              {0x002d, "Minus"},
	"-":                  {0x002d, "Minus"},
	"equal":              {0x003d, "Equal"},
	"=":                  {0x003d, "Equal"},
	"comma":              {0x002c, "Comma"},
	",":                  {0x002c, "Comma"},
	"period":             {0x002e, "Period"},
	".":                  {0x002e, "Period"},
	"slash":              {0x002f, "Slash"},
	"/":                  {0x002f, "Slash"},
	"semicolon":          {0x003b, "Semicolon"},
	";":                  {0x003b, "Semicolon"},
	"quote":              {0x0027, "Quote"},
	"backquote":          {0x0060, "Backquote"},
	"`":                  {0x0060, "Backquote"},
	"bracketleft":        {0x005b, "BracketLeft"},
	"[":                  {0x005b, "BracketLeft"},
	"bracketright":       {0x005d, "BracketRight"},
	"]":                  {0x005d, "BracketRight"},
	"backslash":          {0x005c, "Backslash"},
	"\\":                 {0x005c, "Backslash"},
	"mediaplaypause":     {0x1008ff14, "MediaPlayPause"},
	"mediastop":          {0x1008ff15, "MediaStop"},
	"mediatrackprevious": {0x1008ff16, "MediaTrackPrevious"},
	"mediatracknext":     {0x1008ff17, "MediaTrackNext"},
	"audiovolumedown":    {0x1008ff11, "AudioVolumeDown"},
	"audiovolumemute":    {0x1008ff12, "AudioVolumeMute"},
	"audiovolumeup":      {0x1008ff13, "AudioVolumeUp"},
}

// ParseAccelerator parses a "+"-separated modifier and key list. Names are
// case-insensitive; exactly one non-modifier key is required.
func ParseAccelerator(s string) (Accelerator, error) {
	var acc Accelerator
	var keyLabel string

	parts := strings.Split(strings.TrimSpace(s), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			// "Ctrl++" names the plus key
			if i == len(parts)-1 && i > 0 && strings.TrimSpace(parts[i-1]) == "" {
				part = "+"
			} else {
				continue
			}
		}
		lower := strings.ToLower(part)

		if mod, ok := modifierNames[lower]; ok && keyLabel == "" {
			acc.Mods |= mod
			continue
		}
		if keyLabel != "" {
			return Accelerator{}, errors.Wrapf(ErrBadAccelerator, "%q has more than one key", s)
		}

		keysym, label, ok := lookupKey(lower)
		if !ok {
			return Accelerator{}, errors.Wrapf(ErrBadAccelerator, "%q: unknown key %q", s, part)
		}
		acc.Keysym = keysym
		keyLabel = label
	}

	if keyLabel == "" {
		return Accelerator{}, errors.Wrapf(ErrBadAccelerator, "%q has no key", s)
	}

	acc.Canonical = canonical(acc.Mods, keyLabel)
	return acc, nil
}

func lookupKey(lower string) (uint32, string, bool) {
	if k, ok := namedKeys[lower]; ok {
		return k.keysym, k.label, true
	}
	if lower == "+" || lower == "plus" {
		return 0x002b, "Plus", true
	}
	if len(lower) == 1 {
		c := lower[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint32(c), strings.ToUpper(lower), true
		case c >= '0' && c <= '9':
			return uint32(c), lower, true
		}
	}
	if strings.HasPrefix(lower, "key") && len(lower) == 4 {
		return lookupKey(lower[3:])
	}
	if strings.HasPrefix(lower, "digit") && len(lower) == 6 {
		return lookupKey(lower[5:])
	}
	if strings.HasPrefix(lower, "f") {
		var n int
		for _, c := range lower[1:] {
			if c < '0' || c > '9' {
				return 0, "", false
			}
			n = n*10 + int(c-'0')
		}
		if n >= 1 && n <= 24 {
			return 0xffbe + uint32(n-1), strings.ToUpper(lower), true
		}
	}
	return 0, "", false
}

func canonical(mods uint16, key string) string {
	var parts []string
	if mods&modControl != 0 {
		parts = append(parts, "Control")
	}
	if mods&modAlt != 0 {
		parts = append(parts, "Alt")
	}
	if mods&modShift != 0 {
		parts = append(parts, "Shift")
	}
	if mods&modSuper != 0 {
		parts = append(parts, "Super")
	}
	return strings.Join(append(parts, key), "+")
}
