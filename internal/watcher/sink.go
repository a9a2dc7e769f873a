package watcher

import (
	"log/slog"
	"sync/atomic"

	"github.com/driftshell/driftshell/internal/events"
)

// persistentFailureThreshold is the number of consecutive failed samples
// after which query failures are logged as warnings.
const persistentFailureThreshold = 30

// Sink observes what a loop suppresses. Implementations must not block.
type Sink interface {
	QueryFailed(err error, consecutive uint64)
	PublishFailed(change events.WindowChange, err error)
	Published(change events.WindowChange)
}

// Stats are the counters of one loop
type Stats struct {
	Ticks               uint64
	QueryFailures       uint64
	ConsecutiveFailures uint64
	PublishFailures     uint64
	Published           uint64
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	Ticks               uint64 `json:"ticks"`
	QueryFailures       uint64 `json:"query_failures"`
	ConsecutiveFailures uint64 `json:"consecutive_failures"`
	PublishFailures     uint64 `json:"publish_failures"`
	Published           uint64 `json:"published"`
}

// Snapshot reads the counters atomically
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Ticks:               atomic.LoadUint64(&s.Ticks),
		QueryFailures:       atomic.LoadUint64(&s.QueryFailures),
		ConsecutiveFailures: atomic.LoadUint64(&s.ConsecutiveFailures),
		PublishFailures:     atomic.LoadUint64(&s.PublishFailures),
		Published:           atomic.LoadUint64(&s.Published),
	}
}

// LogSink writes suppressed failures to a structured logger. Single failures
// are debug noise; a run of failures is surfaced once as a warning.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// QueryFailed implements Sink
func (s *LogSink) QueryFailed(err error, consecutive uint64) {
	if consecutive == persistentFailureThreshold {
		s.logger.Warn("active window query keeps failing", "consecutive", consecutive, "error", err)
		return
	}
	s.logger.Debug("active window query failed", "consecutive", consecutive, "error", err)
}

// PublishFailed implements Sink
func (s *LogSink) PublishFailed(change events.WindowChange, err error) {
	s.logger.Debug("window change not delivered", "app", change.AppName, "error", err)
}

// Published implements Sink
func (s *LogSink) Published(change events.WindowChange) {
	s.logger.Debug("window changed", "app", change.AppName, "title", change.WindowTitle)
}
