package shell

import (
	"sync"
	"time"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/watcher"
)

// Session is one connected user interface. Events pushed by its tracking
// loop and plugins reach only this session.
type Session struct {
	ID      string
	Created time.Time

	emitter events.Emitter
	sub     *events.Subscription

	mu      sync.Mutex
	tracker *watcher.Handle
}

// Emitter returns the channel events for this session are pushed into
func (s *Session) Emitter() events.Emitter {
	return s.emitter
}

// Messages streams the session's events. It is nil for sessions opened with
// an external emitter.
func (s *Session) Messages() <-chan events.Message {
	if s.sub == nil {
		return nil
	}
	return s.sub.Messages()
}

// Tracking reports whether the session has a live tracking loop
func (s *Session) Tracking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker != nil && s.tracker.Running()
}

// TrackingStatus describes a session's tracking loop
type TrackingStatus struct {
	Running   bool              `json:"running"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	Stats     *watcher.Snapshot `json:"stats,omitempty"`
}

func (s *Session) status() TrackingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker == nil {
		return TrackingStatus{}
	}
	started := s.tracker.StartedAt()
	stats := s.tracker.Stats()
	return TrackingStatus{
		Running:   s.tracker.Running(),
		StartedAt: &started,
		Stats:     &stats,
	}
}

// stopTracking stops the loop if there is one and reports whether it was running
func (s *Session) stopTracking() bool {
	s.mu.Lock()
	h := s.tracker
	s.tracker = nil
	s.mu.Unlock()

	if h == nil {
		return false
	}
	wasRunning := h.Running()
	h.Stop()
	return wasRunning
}
