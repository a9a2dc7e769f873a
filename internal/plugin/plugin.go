// Package plugin defines the call/return contract shared by the bundled
// desktop-integration plugins and the registry the shell dispatches through.
package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/events"
)

var (
	// ErrUnknownPlugin is returned for a plugin name that was never registered
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrUnknownOp is returned when a plugin has no such operation
	ErrUnknownOp = errors.New("unknown operation")

	// ErrInvalidArgs wraps argument decoding and validation failures
	ErrInvalidArgs = errors.New("invalid arguments")

	// ErrNoSession is returned by operations that push events but were
	// called without a session to push them to
	ErrNoSession = errors.New("operation requires a session")
)

// Call is a single plugin invocation
type Call struct {
	Op        string
	Args      json.RawMessage
	SessionID string
	Emitter   events.Emitter // nil when the caller has no event session
}

// Plugin is a black-box desktop service with a narrow call/return contract
type Plugin interface {
	Name() string
	Invoke(ctx context.Context, call Call) (any, error)
	Close() error
}

// SessionCloser is implemented by plugins holding per-session resources
type SessionCloser interface {
	CloseSession(sessionID string)
}

// Decode unmarshals call arguments into v. Empty arguments leave v untouched.
func Decode(call Call, v any) error {
	if len(bytes.TrimSpace(call.Args)) == 0 || string(bytes.TrimSpace(call.Args)) == "null" {
		return nil
	}
	if err := json.Unmarshal(call.Args, v); err != nil {
		return errors.Wrapf(ErrInvalidArgs, "%s: %v", call.Op, err)
	}
	return nil
}

// InvalidArgs builds an ErrInvalidArgs with a message
func InvalidArgs(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgs, format, args...)
}

// UnknownOp builds an ErrUnknownOp naming the plugin and op
func UnknownOp(plugin, op string) error {
	return errors.Wrapf(ErrUnknownOp, "%s.%s", plugin, op)
}

// Registry holds the plugins wired in at startup
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds p, replacing any plugin with the same name
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.Name()] = p
}

// Get returns the plugin named name
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names lists the registered plugins in alphabetical order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke dispatches call to the plugin named name
func (r *Registry) Invoke(ctx context.Context, name string, call Call) (any, error) {
	p, ok := r.Get(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownPlugin, name)
	}
	return p.Invoke(ctx, call)
}

// CloseSession releases per-session resources in every plugin that holds them
func (r *Registry) CloseSession(sessionID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if sc, ok := p.(SessionCloser); ok {
			sc.CloseSession(sessionID)
		}
	}
}

// Close closes every plugin, returning the first error
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	for name, p := range r.plugins {
		if err := p.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "failed to close plugin %s", name)
		}
	}
	return first
}
