package cart

import (
	"context"
	"sync"
	"time"

	"storefront_service/internal/domain"
	"storefront_service/internal/metrics"

	"github.com/sirupsen/logrus"
)

// persister writes cart snapshots to a repository off the caller's path.
// Only the newest pending snapshot is kept: each record is a full state, so
// a burst of mutations coalesces into one write of the latest version.
// A failed write is logged and counted, never retried.
type persister struct {
	repo    domain.CartRepository
	key     string
	timeout time.Duration
	metrics *metrics.Metrics
	log     *logrus.Logger

	mu      sync.Mutex
	pending *domain.CartState
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newPersister(repo domain.CartRepository, key string, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *persister {
	return &persister{
		repo:    repo,
		key:     key,
		timeout: timeout,
		metrics: m,
		log:     logger,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (p *persister) schedule(state domain.CartState) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.pending = &state
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.stop:
			p.flush()
			return
		}
	}
}

func (p *persister) flush() {
	p.mu.Lock()
	state := p.pending
	p.pending = nil
	p.mu.Unlock()

	if state == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.repo.Save(ctx, p.key, *state); err != nil {
		p.metrics.PersistWrite(false)
		p.log.WithFields(logrus.Fields{
			"key":     p.key,
			"version": state.Version,
		}).Warnf("Cart Persister: failed to save cart, in-memory state stays authoritative: %v", err)
		return
	}
	p.metrics.PersistWrite(true)
	p.log.WithFields(logrus.Fields{
		"key":     p.key,
		"version": state.Version,
	}).Debug("Cart Persister: cart saved")
}

// close performs a last flush of the pending snapshot and stops the loop.
func (p *persister) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	<-p.done
}
