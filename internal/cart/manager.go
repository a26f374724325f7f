package cart

import (
	"context"
	"sync"
	"time"

	"storefront_service/internal/domain"
	"storefront_service/internal/metrics"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "cart:"

type managedStore struct {
	store    *Store
	lastUsed time.Time
}

// Manager owns one Store per visitor session. It is the initialization and
// teardown boundary for carts: Get creates (and rehydrates) lazily, Sweep
// evicts idle stores, Reset drops a session, Close flushes everything on
// shutdown.
type Manager struct {
	mu      sync.Mutex
	stores  map[string]*managedStore
	closing map[string]chan struct{}
	closed  bool
	now     func() time.Time

	repo           domain.CartRepository
	persistTimeout time.Duration
	metrics        *metrics.Metrics
	log            *logrus.Logger
}

func NewManager(repo domain.CartRepository, persistTimeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Manager {
	return &Manager{
		stores:         make(map[string]*managedStore),
		closing:        make(map[string]chan struct{}),
		now:            time.Now,
		repo:           repo,
		persistTimeout: persistTimeout,
		metrics:        m,
		log:            logger,
	}
}

func SessionKey(sessionID string) string {
	return keyPrefix + sessionID
}

// lookup returns the live store for sessionID and marks it used. If the
// session is being torn down it waits for the final flush first, so a later
// rehydrate sees the latest record.
func (m *Manager) lookup(sessionID string) (*Store, bool) {
	for {
		m.mu.Lock()
		if e, ok := m.stores[sessionID]; ok {
			e.lastUsed = m.now()
			m.mu.Unlock()
			return e.store, true
		}
		wait, closing := m.closing[sessionID]
		m.mu.Unlock()
		if !closing {
			return nil, false
		}
		<-wait
	}
}

// Get returns the store for sessionID, rehydrating it from the repository on
// first use.
func (m *Manager) Get(ctx context.Context, sessionID string) *Store {
	if s, ok := m.lookup(sessionID); ok {
		return s
	}

	// Load outside the lock so a slow repository does not stall other sessions.
	key := SessionKey(sessionID)
	state, corrected := Rehydrate(ctx, m.repo, key, m.log)
	m.metrics.RehydrateCorrected(corrected)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.stores[sessionID]; ok {
		e.lastUsed = m.now()
		return e.store
	}

	persist := m.repo != nil && !m.closed
	opts := []Option{WithInitialState(state), WithMetrics(m.metrics)}
	if persist {
		opts = append(opts, WithPersistence(m.repo, key, m.persistTimeout))
	}
	s := NewStore(m.log, opts...)
	if persist && corrected > 0 {
		// Write the sanitized lines back so the stored record is repaired.
		s.persistCurrent()
	}
	m.stores[sessionID] = &managedStore{store: s, lastUsed: m.now()}
	m.metrics.SessionOpened()
	m.log.Infof("Cart Manager: opened cart for session %s (%d lines)", sessionID, len(state.Lines))
	return s
}

// Peek returns the session's cart state without creating a store. Unknown
// sessions are read straight from the repository.
func (m *Manager) Peek(ctx context.Context, sessionID string) domain.CartState {
	if s, ok := m.lookup(sessionID); ok {
		return s.Snapshot()
	}
	state, _ := Rehydrate(ctx, m.repo, SessionKey(sessionID), m.log)
	return state
}

// Reset clears the session's cart, deletes its persisted record and forgets
// the store. A later Get starts from an empty cart.
func (m *Manager) Reset(ctx context.Context, sessionID string) {
	m.mu.Lock()
	e, ok := m.stores[sessionID]
	delete(m.stores, sessionID)
	done := m.beginClosingLocked(sessionID)
	m.mu.Unlock()
	defer m.endClosing(sessionID, done)

	if ok {
		e.store.Close()
		m.metrics.SessionClosed()
	}
	if m.repo != nil {
		if err := m.repo.Delete(ctx, SessionKey(sessionID)); err != nil {
			m.log.Warnf("Cart Manager: failed to delete stored cart for session %s: %v", sessionID, err)
		}
	}
	m.log.Infof("Cart Manager: reset cart for session %s", sessionID)
}

// Sweep closes stores unused for at least idle and returns how many it
// evicted. Stores with live subscribers are kept. Closing flushes the
// pending write, so an evicted session comes back intact on the next Get.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	evicted := make(map[string]*Store)
	done := make(map[string]chan struct{})
	for id, e := range m.stores {
		if e.lastUsed.After(cutoff) || e.store.subscriberCount() > 0 {
			continue
		}
		evicted[id] = e.store
		delete(m.stores, id)
		done[id] = m.beginClosingLocked(id)
	}
	m.mu.Unlock()

	for id, s := range evicted {
		s.Close()
		m.metrics.SessionClosed()
		m.endClosing(id, done[id])
		m.log.Debugf("Cart Manager: evicted idle cart for session %s", id)
	}
	if len(evicted) > 0 {
		m.log.Infof("Cart Manager: evicted %d idle carts", len(evicted))
	}
	return len(evicted)
}

// Run sweeps idle stores every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(idle)
		}
	}
}

func (m *Manager) beginClosingLocked(sessionID string) chan struct{} {
	done := make(chan struct{})
	m.closing[sessionID] = done
	return done
}

func (m *Manager) endClosing(sessionID string, done chan struct{}) {
	m.mu.Lock()
	if m.closing[sessionID] == done {
		delete(m.closing, sessionID)
	}
	m.mu.Unlock()
	close(done)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Close flushes and stops every store.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	stores := m.stores
	m.stores = make(map[string]*managedStore)
	m.mu.Unlock()

	for id, e := range stores {
		e.store.Close()
		m.metrics.SessionClosed()
		m.log.Debugf("Cart Manager: closed cart for session %s", id)
	}
	m.log.Infof("Cart Manager: closed %d carts", len(stores))
}
