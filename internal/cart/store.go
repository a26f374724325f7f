package cart

import (
	"sync"
	"time"

	"storefront_service/internal/domain"
	"storefront_service/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Operation names, used for logging and metrics.
const (
	OpAddItem        = "add_item"
	OpRemoveItem     = "remove_item"
	OpUpdateQuantity = "update_quantity"
	OpClearCart      = "clear_cart"
	OpOpenCart       = "open_cart"
	OpCloseCart      = "close_cart"
	OpToggleCart     = "toggle_cart"
)

const defaultPersistTimeout = 2 * time.Second

// Store is the authoritative cart for one session. Every mutation is applied
// and committed under a single lock, so callers observe a total order of
// state versions. Subscribers receive every committed version in that order.
//
// Persistence, when configured, is scheduled after the commit and runs in the
// background; it never blocks or rolls back a mutation.
type Store struct {
	mu      sync.Mutex
	lines   []domain.CartLine
	isOpen  bool
	version uint64

	subs    map[uint64]*subscriber
	nextSub uint64
	closed  bool

	persist *persister
	metrics *metrics.Metrics
	log     *logrus.Logger

	repo           domain.CartRepository
	persistKey     string
	persistTimeout time.Duration
}

type Option func(*Store)

// WithInitialState seeds the store, typically with a rehydrated state. The
// lines are copied; the visibility flag always starts closed.
func WithInitialState(state domain.CartState) Option {
	return func(s *Store) {
		s.lines = cloneLines(state.Lines)
	}
}

// WithPersistence saves every committed cart change to repo under key,
// each write bounded by timeout.
func WithPersistence(repo domain.CartRepository, key string, timeout time.Duration) Option {
	return func(s *Store) {
		s.repo = repo
		s.persistKey = key
		s.persistTimeout = timeout
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func NewStore(logger *logrus.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Store{
		subs: make(map[uint64]*subscriber),
		log:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.repo != nil {
		if s.persistTimeout <= 0 {
			s.persistTimeout = defaultPersistTimeout
		}
		s.persist = newPersister(s.repo, s.persistKey, s.persistTimeout, s.metrics, s.log)
		go s.persist.run()
	}
	return s
}

// AddItem increments the line for p.ID, or appends a new line with
// quantity 1 at the end of the cart.
func (s *Store) AddItem(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(p.ID); i >= 0 {
		s.lines[i].Quantity++
	} else {
		s.lines = append(s.lines, domain.CartLine{Product: p, Quantity: 1})
	}
	s.commitLocked(OpAddItem, true)
}

// AddItemN adds n units of p in a single commit, so observers see one new
// version. n <= 0 is a no-op.
func (s *Store) AddItemN(p domain.Product, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(p.ID); i >= 0 {
		s.lines[i].Quantity += n
	} else {
		s.lines = append(s.lines, domain.CartLine{Product: p, Quantity: n})
	}
	s.commitLocked(OpAddItem, true)
}

// RemoveItem deletes the line for productID. Absent IDs are a no-op.
func (s *Store) RemoveItem(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeLocked(productID) {
		s.commitLocked(OpRemoveItem, true)
	}
}

// UpdateQuantity sets the quantity of productID's line to exactly quantity.
// A quantity <= 0 removes the line. Absent IDs are a no-op.
func (s *Store) UpdateQuantity(productID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		if s.removeLocked(productID) {
			s.commitLocked(OpRemoveItem, true)
		}
		return
	}

	i := s.indexLocked(productID)
	if i < 0 || s.lines[i].Quantity == quantity {
		return
	}
	s.lines[i].Quantity = quantity
	s.commitLocked(OpUpdateQuantity, true)
}

// ClearCart empties the cart. Visibility is left as is.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return
	}
	s.lines = nil
	s.commitLocked(OpClearCart, true)
}

func (s *Store) OpenCart() {
	s.setOpen(OpOpenCart, func(bool) bool { return true })
}

func (s *Store) CloseCart() {
	s.setOpen(OpCloseCart, func(bool) bool { return false })
}

func (s *Store) ToggleCart() {
	s.setOpen(OpToggleCart, func(open bool) bool { return !open })
}

func (s *Store) setOpen(op string, next func(bool) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	open := next(s.isOpen)
	if open == s.isOpen {
		return
	}
	s.isOpen = open
	// Visibility is ephemeral UI state; it rides along in the next cart write
	// but does not schedule one on its own.
	s.commitLocked(op, false)
}

// TotalPrice is the sum of price x quantity over the current lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// TotalItems is the number of units in the cart, not distinct products.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns a copy of the current lines in cart order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) Snapshot() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive the current state followed by every
// later state version, in commit order. fn runs on a goroutine owned by the
// subscription, never on the mutating caller. The returned func cancels it.
func (s *Store) Subscribe(fn func(domain.CartState)) (unsubscribe func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	sub := newSubscriber(fn)
	s.subs[id] = sub
	sub.enqueue(s.snapshotLocked())
	s.mu.Unlock()

	go sub.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			sub.stop()
		})
	}
}

// Close stops all subscriptions and flushes any pending persistence write.
// The store must not be mutated afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[uint64]*subscriber)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	if s.persist != nil {
		s.persist.close()
	}
}

// persistCurrent schedules a write of the current state without committing
// a new version.
func (s *Store) persistCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persist != nil && !s.closed {
		s.persist.schedule(s.snapshotLocked())
	}
}

func (s *Store) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) commitLocked(op string, persist bool) {
	s.version++
	snap := s.snapshotLocked()

	for _, sub := range s.subs {
		sub.enqueue(snap)
	}
	if persist && s.persist != nil {
		s.persist.schedule(snap)
	}

	s.metrics.CartOperation(op)
	s.log.WithFields(logrus.Fields{
		"op":      op,
		"version": snap.Version,
		"lines":   len(snap.Lines),
	}).Debug("Cart Store: state committed")
}

func (s *Store) snapshotLocked() domain.CartState {
	return domain.CartState{
		Lines:   cloneLines(s.lines),
		IsOpen:  s.isOpen,
		Version: s.version,
	}
}

func (s *Store) indexLocked(productID int) int {
	for i := range s.lines {
		if s.lines[i].ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(productID int) bool {
	i := s.indexLocked(productID)
	if i < 0 {
		return false
	}
	s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
	return true
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}
