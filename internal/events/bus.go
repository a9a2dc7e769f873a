package events

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrSubscriberGone is returned when emitting to a closed subscription
	ErrSubscriberGone = errors.New("subscriber gone")

	// ErrDropped is returned when the subscriber's buffer is full
	ErrDropped = errors.New("event dropped: subscriber buffer full")
)

// Message is a named event as seen by a subscriber
type Message struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"-"`
}

// Subscription is a buffered stream of messages for one listener. Emit never
// blocks: a full buffer drops the message.
type Subscription struct {
	mu     sync.RWMutex
	ch     chan Message
	closed bool
	once   sync.Once
}

func newSubscription(buffer int) *Subscription {
	return &Subscription{ch: make(chan Message, buffer)}
}

// Messages returns the channel of delivered messages; it is closed by Close
func (s *Subscription) Messages() <-chan Message {
	return s.ch
}

// Emit implements Emitter
func (s *Subscription) Emit(name string, payload any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSubscriberGone
	}

	select {
	case s.ch <- Message{Name: name, Payload: payload, SentAt: time.Now()}:
		return nil
	default:
		return ErrDropped
	}
}

// Close stops delivery; later Emit calls return ErrSubscriberGone
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// Closed reports whether Close has been called
func (s *Subscription) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Bus fans events out to every open subscription
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

// NewBus creates a Bus whose subscriptions buffer up to buffer messages
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe opens a new subscription
func (b *Bus) Subscribe() *Subscription {
	sub := newSubscription(b.buffer)
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe closes sub and removes it from the bus
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	sub.Close()
}

// Emit delivers to every subscription. It fails only when nobody received it.
func (b *Bus) Emit(name string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.subs) == 0 {
		return ErrSubscriberGone
	}

	delivered := 0
	var lastErr error
	for sub := range b.subs {
		if err := sub.Emit(name, payload); err != nil {
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return lastErr
	}
	return nil
}

// Len returns the number of open subscriptions
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
