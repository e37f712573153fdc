// Package notify is the process-wide error channel that queries and mutations
// report failures to, decoupled from the caller that triggered them.
package notify

import (
	"sync"

	"github.com/bassista/go_cast/internal/logger"
)

// Notifier receives errors. Implementations must not block or panic.
type Notifier interface {
	Notify(err error)
}

// Subscriber is called synchronously for every delivered error.
type Subscriber func(err error)

// Sink fans errors out to its current subscribers.
// It keeps no queue: an error published while nobody listens is dropped,
// and a subscriber only sees errors published after it subscribed.
type Sink struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Subscriber
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{subs: map[uint64]Subscriber{}}
}

// Subscribe registers fn and returns the function that removes it.
func (s *Sink) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

// SubscribeChan delivers errors to a buffered channel. Errors that do not fit
// in the buffer are dropped rather than blocking the publisher.
func (s *Sink) SubscribeChan(buffer int) (<-chan error, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan error, buffer)
	var mu sync.Mutex
	closed := false
	unsubscribe := s.Subscribe(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- err:
		default:
			logger.WithComponent("notify").Debugf("subscriber buffer full, dropping error: %v", err)
		}
	})
	return ch, func() {
		unsubscribe()
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
}

// Subscribers returns the number of current subscribers.
func (s *Sink) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Notify delivers err to every current subscriber. Nil errors are ignored.
// A panicking subscriber is logged and skipped.
func (s *Sink) Notify(err error) {
	if err == nil {
		return
	}

	s.mu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	logger.WithComponent("notify").Debugf("delivering error to %d subscribers: %v", len(subs), err)
	for _, fn := range subs {
		deliver(fn, err)
	}
}

func deliver(fn Subscriber, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithComponent("notify").Errorf("error subscriber panicked: %v", rec)
		}
	}()
	fn(err)
}

// Discard is a Notifier that drops every error.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(error) {}
