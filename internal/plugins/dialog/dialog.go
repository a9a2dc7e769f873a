// Package dialog is the native file and message dialog plugin. Dialogs are
// drawn by zenity, which every mainstream Linux desktop ships.
package dialog

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/plugin"
)

const Name = "dialog"

// ErrUnavailable is returned when no dialog helper is installed
var ErrUnavailable = errors.New("dialog helper not available")

// Runner executes the dialog helper with args and returns its stdout and exit
// code. err is reserved for failures to run the helper at all.
type Runner func(ctx context.Context, args []string) (stdout string, code int, err error)

// Filter restricts a file dialog to a set of extensions
type Filter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

type fileArgs struct {
	Title       string   `json:"title"`
	DefaultPath string   `json:"default_path"`
	Directory   bool     `json:"directory"`
	Multiple    bool     `json:"multiple"`
	Filters     []Filter `json:"filters"`
}

type messageArgs struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Kind        string `json:"kind"` // info, warning or error
	OkLabel     string `json:"ok_label"`
	CancelLabel string `json:"cancel_label"`
}

// Plugin implements plugin.Plugin
type Plugin struct {
	run Runner
}

// New creates the dialog plugin. A nil runner executes zenity from PATH.
func New(run Runner) *Plugin {
	if run == nil {
		run = zenity
	}
	return &Plugin{run: run}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Close() error { return nil }

// Invoke runs open, save, message, ask or confirm
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	switch call.Op {
	case "open", "save":
		var a fileArgs
		if err := plugin.Decode(call, &a); err != nil {
			return nil, err
		}
		return p.file(ctx, call.Op == "save", a)

	case "message":
		var a messageArgs
		if err := plugin.Decode(call, &a); err != nil {
			return nil, err
		}
		kind, err := messageKind(a.Kind)
		if err != nil {
			return nil, err
		}
		_, _, err = p.run(ctx, withTitle(a.Title, kind, "--text="+a.Message))
		return nil, err

	case "ask", "confirm":
		var a messageArgs
		if err := plugin.Decode(call, &a); err != nil {
			return nil, err
		}
		ok, cancel := "Yes", "No"
		if call.Op == "confirm" {
			ok, cancel = "Ok", "Cancel"
		}
		if a.OkLabel != "" {
			ok = a.OkLabel
		}
		if a.CancelLabel != "" {
			cancel = a.CancelLabel
		}
		_, code, err := p.run(ctx, withTitle(a.Title, "--question", "--text="+a.Message,
			"--ok-label="+ok, "--cancel-label="+cancel))
		if err != nil {
			return nil, err
		}
		return code == 0, nil

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}

func (p *Plugin) file(ctx context.Context, save bool, a fileArgs) (any, error) {
	args := []string{"--file-selection"}
	if save {
		args = append(args, "--save")
	} else {
		if a.Directory {
			args = append(args, "--directory")
		}
		if a.Multiple {
			args = append(args, "--multiple", "--separator=\n")
		}
	}
	if a.DefaultPath != "" {
		args = append(args, "--filename="+a.DefaultPath)
	}
	for _, f := range a.Filters {
		if pattern := filterPattern(f); pattern != "" {
			args = append(args, "--file-filter="+pattern)
		}
	}

	out, code, err := p.run(ctx, withTitle(a.Title, args...))
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, nil
	}

	out = strings.TrimRight(out, "\n")
	if !save && a.Multiple {
		return strings.Split(out, "\n"), nil
	}
	return out, nil
}

func withTitle(title string, args ...string) []string {
	if title != "" {
		args = append(args, "--title="+title)
	}
	return args
}

func messageKind(kind string) (string, error) {
	switch kind {
	case "", "info":
		return "--info", nil
	case "warning":
		return "--warning", nil
	case "error":
		return "--error", nil
	default:
		return "", plugin.InvalidArgs("message: unknown kind %q", kind)
	}
}

// filterPattern renders a filter in zenity's "Name | *.a *.b" form
func filterPattern(f Filter) string {
	globs := make([]string, 0, len(f.Extensions))
	for _, ext := range f.Extensions {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		globs = append(globs, "*."+ext)
	}
	if len(globs) == 0 {
		return ""
	}
	if f.Name == "" {
		return strings.Join(globs, " ")
	}
	return f.Name + " | " + strings.Join(globs, " ")
}

func zenity(ctx context.Context, args []string) (string, int, error) {
	path, err := exec.LookPath("zenity")
	if err != nil {
		return "", 0, errors.Wrap(ErrUnavailable, "zenity not found in PATH")
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	err = cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to run zenity")
	}
	return stdout.String(), 0, nil
}
