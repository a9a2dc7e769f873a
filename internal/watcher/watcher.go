// Package watcher samples the foreground window and publishes a
// window_changed event whenever the owning application changes.
package watcher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/pkg/window"
)

// DefaultInterval is the pause between two samples.
const DefaultInterval = time.Second

// Querier reports the current foreground window
type Querier interface {
	GetActiveWindow() (*window.ActiveWindow, error)
}

// QuerierFunc adapts a function to the Querier interface
type QuerierFunc func() (*window.ActiveWindow, error)

// GetActiveWindow calls f()
func (f QuerierFunc) GetActiveWindow() (*window.ActiveWindow, error) {
	return f()
}

type options struct {
	interval time.Duration
	now      func() time.Time
	sink     Sink
}

// Option configures a tracking loop
type Option func(*options)

// WithInterval overrides the pause between samples
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithClock overrides the clock used for event timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithSink routes suppressed failures and publications to sink
func WithSink(sink Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// Handle controls one running tracking loop
type Handle struct {
	cancel    context.CancelFunc
	done      chan struct{}
	stats     *Stats
	startedAt time.Time
}

// Stop ends the loop and waits for it to exit. It is safe to call more than once.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed once the loop has exited
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Running reports whether the loop is still sampling
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// StartedAt returns when the loop was started
func (h *Handle) StartedAt() time.Time {
	return h.startedAt
}

// Stats returns a snapshot of the loop counters
func (h *Handle) Stats() Snapshot {
	return h.stats.Snapshot()
}

// Start spawns a tracking loop and returns immediately. Every call creates an
// independent loop with its own notion of the last seen application. The loop
// runs until ctx is cancelled or the handle is stopped.
func Start(ctx context.Context, q Querier, emitter events.Emitter, opts ...Option) *Handle {
	o := options{
		interval: DefaultInterval,
		now:      time.Now,
		sink:     NewLogSink(slog.Default()),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(ctx)
	l := &loop{
		querier: q,
		emitter: emitter,
		opts:    o,
		stats:   &Stats{},
	}
	h := &Handle{
		cancel:    cancel,
		done:      make(chan struct{}),
		stats:     l.stats,
		startedAt: o.now(),
	}

	go func() {
		defer close(h.done)
		l.run(ctx)
	}()

	return h
}

// lastSeen distinguishes "nothing observed yet" from an observed empty name.
type lastSeen struct {
	app      string
	observed bool
}

func (l lastSeen) differs(app string) bool {
	return !l.observed || l.app != app
}

type loop struct {
	querier Querier
	emitter events.Emitter
	opts    options
	stats   *Stats

	last          lastSeen
	lastTimestamp int64
}

func (l *loop) run(ctx context.Context) {
	timer := time.NewTimer(l.opts.interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		l.tick()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(l.opts.interval)

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// tick performs one sample. A failed query is not an observation.
func (l *loop) tick() {
	atomic.AddUint64(&l.stats.Ticks, 1)

	active, err := l.querier.GetActiveWindow()
	if err == nil && active == nil {
		err = window.ErrNoActiveWindow
	}
	if err != nil {
		atomic.AddUint64(&l.stats.QueryFailures, 1)
		consecutive := atomic.AddUint64(&l.stats.ConsecutiveFailures, 1)
		l.opts.sink.QueryFailed(err, consecutive)
		return
	}
	atomic.StoreUint64(&l.stats.ConsecutiveFailures, 0)

	if !l.last.differs(active.AppName) {
		return
	}

	change := events.NewWindowChange(active, l.timestamp())
	if err := l.emitter.Emit(events.EventWindowChanged, change); err != nil {
		atomic.AddUint64(&l.stats.PublishFailures, 1)
		l.opts.sink.PublishFailed(change, err)
	} else {
		atomic.AddUint64(&l.stats.Published, 1)
		l.opts.sink.Published(change)
	}

	l.last = lastSeen{app: active.AppName, observed: true}
}

// timestamp samples the clock, never going backwards within one loop.
func (l *loop) timestamp() int64 {
	ts := l.opts.now().UnixMilli()
	if ts < l.lastTimestamp {
		ts = l.lastTimestamp
	}
	l.lastTimestamp = ts
	return ts
}
