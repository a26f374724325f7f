package cart

import (
	"sync"

	"storefront_service/internal/domain"
)

// subscriber is an unbounded, ordered mailbox. enqueue never blocks, so a
// slow view cannot stall a mutation, and no version is dropped while the
// subscription is live.
type subscriber struct {
	fn func(domain.CartState)

	mu      sync.Mutex
	queue   []domain.CartState
	stopped bool

	wake chan struct{}
	done chan struct{}
}

func newSubscriber(fn func(domain.CartState)) *subscriber {
	return &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *subscriber) enqueue(state domain.CartState) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, state)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if s.stopped || len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			batch := s.queue
			s.queue = nil
			s.mu.Unlock()

			for _, state := range batch {
				s.fn(state)
			}
		}
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.queue = nil
	close(s.done)
}
