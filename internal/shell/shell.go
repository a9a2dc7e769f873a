// Package shell is the application core the user interface talks to. It owns
// UI sessions, dispatches named commands and plugin calls, and runs at most
// one active-window tracking loop per session.
package shell

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/plugin"
	"github.com/driftshell/driftshell/internal/watcher"
	"github.com/driftshell/driftshell/pkg/window"
)

var (
	// ErrUnknownCommand is returned for a command name with no handler
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnknownSession is returned for a session id that is not open
	ErrUnknownSession = errors.New("unknown session")

	// ErrClosed is returned once the shell has shut down
	ErrClosed = errors.New("shell closed")
)

// EventShutdown is broadcast to bus-backed sessions when the shell closes
const EventShutdown = "shutdown"

// Command handles one named UI command. s is nil when the caller has no session.
type Command func(ctx context.Context, s *Session, args json.RawMessage) (any, error)

// Option configures a Shell
type Option func(*Shell)

// WithLogger sets the logger used by the shell and its tracking loops
func WithLogger(logger *slog.Logger) Option {
	return func(sh *Shell) {
		if logger != nil {
			sh.logger = logger
		}
	}
}

// WithWatcherOptions passes opts to every tracking loop the shell starts
func WithWatcherOptions(opts ...watcher.Option) Option {
	return func(sh *Shell) {
		sh.watcherOpts = append(sh.watcherOpts, opts...)
	}
}

// WithBuffer sets how many undelivered events a session may queue
func WithBuffer(n int) Option {
	return func(sh *Shell) {
		sh.bus = events.NewBus(n)
	}
}

// Shell is the application core
type Shell struct {
	ctx    context.Context
	cancel context.CancelFunc

	querier     watcher.Querier
	plugins     *plugin.Registry
	bus         *events.Bus
	logger      *slog.Logger
	watcherOpts []watcher.Option
	started     time.Time

	mu       sync.RWMutex
	closed   bool
	sessions map[string]*Session
	commands map[string]Command
}

// New creates a Shell that samples the foreground window through q and
// dispatches plugin calls through plugins. The built-in commands are
// registered.
func New(q watcher.Querier, plugins *plugin.Registry, opts ...Option) *Shell {
	if plugins == nil {
		plugins = plugin.NewRegistry()
	}
	if q == nil {
		q = watcher.QuerierFunc(func() (*window.ActiveWindow, error) {
			return nil, errors.Wrap(window.ErrNoActiveWindow, "no window detector")
		})
	}
	ctx, cancel := context.WithCancel(context.Background())
	sh := &Shell{
		ctx:      ctx,
		cancel:   cancel,
		querier:  q,
		plugins:  plugins,
		bus:      events.NewBus(0),
		logger:   slog.Default(),
		started:  time.Now(),
		sessions: make(map[string]*Session),
		commands: make(map[string]Command),
	}
	for _, opt := range opts {
		opt(sh)
	}
	sh.registerBuiltins()
	return sh
}

// Plugins returns the plugin registry
func (sh *Shell) Plugins() *plugin.Registry {
	return sh.plugins
}

// RegisterCommand installs or replaces a command handler
func (sh *Shell) RegisterCommand(name string, fn Command) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.commands[name] = fn
}

// Commands lists registered command names
func (sh *Shell) Commands() []string {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	names := make([]string, 0, len(sh.commands))
	for name := range sh.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenSession creates a session whose events are queued for Messages
func (sh *Shell) OpenSession() (*Session, error) {
	sub := sh.bus.Subscribe()
	s, err := sh.addSession(sub, sub)
	if err != nil {
		sh.bus.Unsubscribe(sub)
		return nil, err
	}
	return s, nil
}

// OpenSessionWith creates a session that pushes events into emitter
func (sh *Shell) OpenSessionWith(emitter events.Emitter) (*Session, error) {
	return sh.addSession(emitter, nil)
}

func (sh *Shell) addSession(emitter events.Emitter, sub *events.Subscription) (*Session, error) {
	s := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		emitter: emitter,
		sub:     sub,
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.closed {
		return nil, ErrClosed
	}
	sh.sessions[s.ID] = s
	sh.logger.Debug("session opened", "session", s.ID)
	return s, nil
}

// Session looks up an open session
func (sh *Shell) Session(id string) (*Session, bool) {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// SessionCount returns the number of open sessions
func (sh *Shell) SessionCount() int {
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.sessions)
}

// CloseSession stops the session's tracking loop, releases plugin resources
// it holds and closes its event stream. Unknown ids are ignored.
func (sh *Shell) CloseSession(id string) {
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	delete(sh.sessions, id)
	sh.mu.Unlock()

	if !ok {
		return
	}
	s.stopTracking()
	sh.plugins.CloseSession(id)
	if s.sub != nil {
		sh.bus.Unsubscribe(s.sub)
	}
	sh.logger.Debug("session closed", "session", id)
}

// resolve maps an optional session id to a session
func (sh *Shell) resolve(id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	s, ok := sh.Session(id)
	if !ok {
		return nil, errors.Wrap(ErrUnknownSession, id)
	}
	return s, nil
}

// Invoke runs a named command on behalf of session id ("" for none)
func (sh *Shell) Invoke(ctx context.Context, sessionID, command string, args json.RawMessage) (any, error) {
	sh.mu.RLock()
	fn, ok := sh.commands[command]
	closed := sh.closed
	sh.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, errors.Wrap(ErrUnknownCommand, command)
	}

	s, err := sh.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	return fn(ctx, s, args)
}

// InvokePlugin calls op on the named plugin on behalf of session id
func (sh *Shell) InvokePlugin(ctx context.Context, sessionID, name, op string, args json.RawMessage) (any, error) {
	s, err := sh.resolve(sessionID)
	if err != nil {
		return nil, err
	}
	call := plugin.Call{Op: op, Args: args}
	if s != nil {
		call.SessionID = s.ID
		call.Emitter = s.emitter
	}
	return sh.plugins.Invoke(ctx, name, call)
}

// Status summarises the shell for status endpoints
type Status struct {
	StartedAt time.Time `json:"started_at"`
	Sessions  int       `json:"sessions"`
	Tracking  int       `json:"tracking"`
	Plugins   []string  `json:"plugins"`
	Commands  []string  `json:"commands"`
}

// Status reports open sessions and running loops
func (sh *Shell) Status() Status {
	sh.mu.RLock()
	sessions := make([]*Session, 0, len(sh.sessions))
	for _, s := range sh.sessions {
		sessions = append(sessions, s)
	}
	sh.mu.RUnlock()

	tracking := 0
	for _, s := range sessions {
		if s.Tracking() {
			tracking++
		}
	}

	return Status{
		StartedAt: sh.started,
		Sessions:  len(sessions),
		Tracking:  tracking,
		Plugins:   sh.plugins.Names(),
		Commands:  sh.Commands(),
	}
}

// Close notifies sessions, stops every loop and closes every session and
// plugin. It is safe to call more than once.
func (sh *Shell) Close() error {
	sh.mu.Lock()
	if sh.closed {
		sh.mu.Unlock()
		return nil
	}
	sh.closed = true
	ids := make([]string, 0, len(sh.sessions))
	for id := range sh.sessions {
		ids = append(ids, id)
	}
	sh.mu.Unlock()

	if err := sh.bus.Emit(EventShutdown, nil); err != nil {
		sh.logger.Debug("shutdown notice not delivered", "error", err)
	}

	sh.cancel()
	for _, id := range ids {
		sh.CloseSession(id)
	}
	return sh.plugins.Close()
}
