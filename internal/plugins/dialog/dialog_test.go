package dialog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftshell/driftshell/internal/plugin"
)

type scripted struct {
	out  string
	code int
	args []string
}

func (s *scripted) run(ctx context.Context, args []string) (string, int, error) {
	s.args = args
	return s.out, s.code, nil
}

func invoke(p *Plugin, op, args string) (any, error) {
	return p.Invoke(context.Background(), plugin.Call{Op: op, Args: json.RawMessage(args)})
}

func TestOpenSingle(t *testing.T) {
	s := &scripted{out: "/home/me/a.txt\n"}
	p := New(s.run)

	out, err := invoke(p, "open", `{"title":"Pick","filters":[{"name":"Text","extensions":["txt",".md"]}]}`)
	require.NoError(t, err)
	assert.Equal(t, "/home/me/a.txt", out)
	assert.Equal(t, []string{
		"--file-selection",
		"--file-filter=Text | *.txt *.md",
		"--title=Pick",
	}, s.args)
}

func TestOpenMultiple(t *testing.T) {
	s := &scripted{out: "/a\n/b\n"}
	p := New(s.run)

	out, err := invoke(p, "open", `{"multiple":true,"directory":true}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, out)
	assert.Contains(t, s.args, "--directory")
	assert.Contains(t, s.args, "--multiple")
}

func TestCancelledDialogs(t *testing.T) {
	s := &scripted{code: 1}
	p := New(s.run)

	out, err := invoke(p, "save", `{"default_path":"/tmp/out.json"}`)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, []string{"--file-selection", "--save", "--filename=/tmp/out.json"}, s.args)

	out, err = invoke(p, "ask", `{"message":"Continue?"}`)
	require.NoError(t, err)
	assert.Equal(t, false, out)
}

func TestAskAndConfirmLabels(t *testing.T) {
	s := &scripted{}
	p := New(s.run)

	out, err := invoke(p, "ask", `{"message":"Sure?"}`)
	require.NoError(t, err)
	assert.Equal(t, true, out)
	assert.Contains(t, s.args, "--ok-label=Yes")
	assert.Contains(t, s.args, "--cancel-label=No")

	_, err = invoke(p, "confirm", `{"message":"Delete?","ok_label":"Delete"}`)
	require.NoError(t, err)
	assert.Contains(t, s.args, "--ok-label=Delete")
	assert.Contains(t, s.args, "--cancel-label=Cancel")
}

func TestMessageKinds(t *testing.T) {
	s := &scripted{}
	p := New(s.run)

	_, err := invoke(p, "message", `{"message":"Saved","kind":"warning","title":"Note"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"--warning", "--text=Saved", "--title=Note"}, s.args)

	_, err = invoke(p, "message", `{"message":"x","kind":"shout"}`)
	assert.True(t, errors.Is(err, plugin.ErrInvalidArgs))
}

func TestFilterPattern(t *testing.T) {
	assert.Equal(t, "*.png *.jpg", filterPattern(Filter{Extensions: []string{"png", "jpg"}}))
	assert.Equal(t, "", filterPattern(Filter{Name: "Empty"}))
}
