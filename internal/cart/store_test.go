package cart

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func product(id int, price string) domain.Product {
	return domain.Product{
		ID:       id,
		Title:    "Product " + strconv.Itoa(id),
		Price:    decimal.RequireFromString(price),
		Category: "electronics",
		Image:    "https://example.com/img.png",
	}
}

func ids(lines []domain.CartLine) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.ID
	}
	return out
}

func quantities(lines []domain.CartLine) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.Quantity
	}
	return out
}

// fakeRepo is an in-memory CartRepository whose failures and latency can be
// controlled by tests.
type fakeRepo struct {
	mu      sync.Mutex
	saved   map[string]domain.CartState
	saves   int
	loadErr error
	saveErr error
	block   chan struct{}
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saved: make(map[string]domain.CartState)}
}

func (r *fakeRepo) Load(_ context.Context, key string) (*domain.CartState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	st, ok := r.saved[key]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return &st, nil
}

func (r *fakeRepo) Save(_ context.Context, key string, state domain.CartState) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved[key] = state
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved, key)
	return nil
}

func (r *fakeRepo) stored(key string) (domain.CartState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.saved[key]
	return st, ok
}

func (r *fakeRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func TestAddItemSameProductKeepsOneLine(t *testing.T) {
	for _, n := range []int{1, 2, 7} {
		s := NewStore(quietLogger())
		p := product(1, "10")
		for i := 0; i < n; i++ {
			s.AddItem(p)
		}

		lines := s.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, 1, lines[0].ID)
		assert.Equal(t, n, lines[0].Quantity)
	}
}

func TestUpdateQuantityNonPositiveRemovesLine(t *testing.T) {
	for _, q := range []int{0, -5} {
		viaUpdate := NewStore(quietLogger())
		viaRemove := NewStore(quietLogger())
		for _, s := range []*Store{viaUpdate, viaRemove} {
			s.AddItem(product(1, "10"))
			s.AddItem(product(2, "5"))
		}

		viaUpdate.UpdateQuantity(1, q)
		viaRemove.RemoveItem(1)

		assert.Equal(t, viaRemove.Lines(), viaUpdate.Lines(), "quantity %d", q)
		assert.Equal(t, []int{2}, ids(viaUpdate.Lines()))
	}
}

func TestUpdateQuantityIsAbsoluteSet(t *testing.T) {
	s := NewStore(quietLogger())
	s.AddItem(product(1, "10"))
	s.AddItem(product(1, "10"))

	s.UpdateQuantity(1, 3)

	assert.Equal(t, []int{3}, quantities(s.Lines()))
}

func TestUpdateQuantityMissingIsNoop(t *testing.T) {
	s := NewStore(quietLogger())
	s.AddItem(product(1, "10"))
	before := s.Version()

	s.UpdateQuantity(42, 3)

	assert.Equal(t, before, s.Version())
	assert.Equal(t, []int{1}, ids(s.Lines()))
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := NewStore(quietLogger())
	s.AddItem(product(1, "10"))
	s.AddItem(product(2, "5"))
	before := s.Lines()

	assert.NotPanics(t, func() { s.RemoveItem(99) })

	assert.Equal(t, before, s.Lines())
}

func TestInsertionOrderSurvivesIncrement(t *testing.T) {
	s := NewStore(quietLogger())
	a, b := product(1, "10"), product(2, "5")

	s.AddItem(a)
	s.AddItem(b)
	s.AddItem(a)

	assert.Equal(t, []int{1, 2}, ids(s.Lines()))
	assert.Equal(t, []int{2, 1}, quantities(s.Lines()))
}

func TestRemovedThenReaddedGoesToEnd(t *testing.T) {
	s := NewStore(quietLogger())
	s.AddItem(product(1, "10"))
	s.AddItem(product(2, "5"))

	s.RemoveItem(1)
	s.AddItem(product(1, "10"))

	assert.Equal(t, []int{2, 1}, ids(s.Lines()))
	assert.Equal(t, []int{1, 1}, quantities(s.Lines()))
}

func TestTotalsFollowLines(t *testing.T) {
	s := NewStore(quietLogger())
	assert.True(t, s.TotalPrice().IsZero())
	assert.Equal(t, 0, s.TotalItems())

	s.AddItem(product(1, "19.99"))
	s.AddItem(product(1, "19.99"))
	s.AddItem(product(2, "0.10"))
	s.AddItem(product(3, "0.20"))

	want := decimal.Zero
	units := 0
	for _, l := range s.Lines() {
		want = want.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		units += l.Quantity
	}
	assert.True(t, want.Equal(s.TotalPrice()), "got %s want %s", s.TotalPrice(), want)
	assert.True(t, decimal.RequireFromString("40.28").Equal(s.TotalPrice()))
	assert.Equal(t, units, s.TotalItems())

	s.ClearCart()
	assert.True(t, s.TotalPrice().IsZero())
	assert.Equal(t, 0, s.TotalItems())
}

func TestEndToEndScenarios(t *testing.T) {
	s := NewStore(quietLogger())
	p1, p2 := product(1, "10"), product(2, "5")

	// Scenario 1
	s.AddItem(p1)
	s.AddItem(p1)
	s.AddItem(p2)
	assert.Equal(t, []int{1, 2}, ids(s.Lines()))
	assert.Equal(t, []int{2, 1}, quantities(s.Lines()))
	assert.True(t, decimal.NewFromInt(25).Equal(s.TotalPrice()))
	assert.Equal(t, 3, s.TotalItems())

	// Scenario 2
	s.UpdateQuantity(1, 5)
	assert.True(t, decimal.NewFromInt(55).Equal(s.TotalPrice()))
	assert.Equal(t, 6, s.TotalItems())

	// Scenario 3
	s.UpdateQuantity(2, 0)
	assert.Equal(t, []int{1}, ids(s.Lines()))
	assert.Equal(t, []int{5}, quantities(s.Lines()))
	assert.Equal(t, 5, s.TotalItems())

	// Scenario 4
	s.OpenCart()
	s.ClearCart()
	assert.Empty(t, s.Lines())
	assert.True(t, s.TotalPrice().IsZero())
	assert.True(t, s.IsOpen())
}

func TestVisibilityStateMachine(t *testing.T) {
	s := NewStore(quietLogger())
	assert.False(t, s.IsOpen(), "initial state is closed")

	s.OpenCart()
	assert.True(t, s.IsOpen())
	s.OpenCart()
	assert.True(t, s.IsOpen())

	s.ToggleCart()
	assert.False(t, s.IsOpen())
	s.ToggleCart()
	assert.True(t, s.IsOpen())

	s.CloseCart()
	assert.False(t, s.IsOpen())
	s.CloseCart()
	assert.False(t, s.IsOpen())
}

func TestLinesAreSnapshots(t *testing.T) {
	s := NewStore(quietLogger())
	s.AddItem(product(1, "10"))

	lines := s.Lines()
	lines[0].Quantity = 100

	assert.Equal(t, []int{1}, quantities(s.Lines()))

	snap := s.Snapshot()
	snap.Lines[0].Quantity = 50
	assert.Equal(t, 1, s.TotalItems())
}

func TestVersionIncrementsOnlyOnChange(t *testing.T) {
	s := NewStore(quietLogger())
	assert.Equal(t, uint64(0), s.Version())

	s.AddItem(product(1, "10"))
	s.RemoveItem(5)
	s.CloseCart()
	s.ClearCart()
	s.ClearCart()

	assert.Equal(t, uint64(2), s.Version())
}

func TestSubscribersSeeEveryVersionInOrder(t *testing.T) {
	s := NewStore(quietLogger())
	defer s.Close()

	var mu sync.Mutex
	var seen []uint64
	var totals []int
	unsubscribe := s.Subscribe(func(st domain.CartState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st.Version)
		n := 0
		for _, l := range st.Lines {
			n += l.Quantity
		}
		totals = append(totals, n)
	})
	defer unsubscribe()

	const mutations = 200
	for i := 0; i < mutations; i++ {
		s.AddItem(product(i%7+1, "1"))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == mutations+1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range seen {
		assert.Equal(t, uint64(i), v)
		assert.Equal(t, i, totals[i])
	}
}

func TestSlowSubscriberDoesNotBlockMutations(t *testing.T) {
	s := NewStore(quietLogger())
	defer s.Close()

	release := make(chan struct{})
	delivered := make(chan uint64, 16)
	unsubscribe := s.Subscribe(func(st domain.CartState) {
		<-release
		delivered <- st.Version
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			s.AddItem(product(1, "1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutations blocked on a slow subscriber")
	}
	assert.Equal(t, 5, s.TotalItems())

	close(release)
	for want := uint64(0); want <= 5; want++ {
		select {
		case got := <-delivered:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("version %d never delivered", want)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewStore(quietLogger())
	defer s.Close()

	var mu sync.Mutex
	count := 0
	unsubscribe := s.Subscribe(func(domain.CartState) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	s.AddItem(product(1, "1"))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestPersistenceWritesLatestState(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(quietLogger(), WithPersistence(repo, "cart:a", time.Second))

	s.AddItem(product(1, "10"))
	s.AddItem(product(2, "5"))
	s.UpdateQuantity(1, 4)
	s.Close()

	stored, ok := repo.stored("cart:a")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, ids(stored.Lines))
	assert.Equal(t, []int{4, 1}, quantities(stored.Lines))
	assert.Equal(t, uint64(3), stored.Version)
}

func TestPersistenceFailureKeepsLiveState(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("quota exceeded")
	s := NewStore(quietLogger(), WithPersistence(repo, "cart:a", time.Second))
	defer s.Close()

	s.AddItem(product(1, "10"))
	require.Eventually(t, func() bool { return repo.saveCount() >= 1 }, time.Second, 5*time.Millisecond)

	s.AddItem(product(1, "10"))
	s.AddItem(product(2, "5"))

	assert.Equal(t, []int{2, 1}, quantities(s.Lines()))
	assert.True(t, decimal.NewFromInt(25).Equal(s.TotalPrice()))
	_, ok := repo.stored("cart:a")
	assert.False(t, ok)
}

func TestSlowPersistenceDoesNotBlockCaller(t *testing.T) {
	repo := newFakeRepo()
	repo.block = make(chan struct{})
	s := NewStore(quietLogger(), WithPersistence(repo, "cart:a", time.Second))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.AddItem(product(1, "1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mutation waited on persistence")
	}
	assert.Equal(t, 10, s.TotalItems())

	close(repo.block)
	s.Close()
	stored, ok := repo.stored("cart:a")
	require.True(t, ok)
	assert.Equal(t, []int{10}, quantities(stored.Lines))
}

func TestVisibilityAloneDoesNotPersist(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(quietLogger(), WithPersistence(repo, "cart:a", time.Second))

	s.OpenCart()
	s.ToggleCart()
	s.Close()

	assert.Equal(t, 0, repo.saveCount())
}

func TestInitialStateStartsClosed(t *testing.T) {
	s := NewStore(quietLogger(), WithInitialState(domain.CartState{
		Lines:  []domain.CartLine{{Product: product(3, "2"), Quantity: 2}},
		IsOpen: true,
	}))

	assert.False(t, s.IsOpen())
	assert.Equal(t, 2, s.TotalItems())
}

func TestAddItemNCommitsOnce(t *testing.T) {
	s := NewStore(quietLogger())
	s.AddItem(product(1, "10"))

	s.AddItemN(product(1, "10"), 4)
	s.AddItemN(product(2, "5"), 3)
	s.AddItemN(product(3, "1"), 0)

	assert.Equal(t, uint64(3), s.Version())
	assert.Equal(t, []int{1, 2}, ids(s.Lines()))
	assert.Equal(t, []int{5, 3}, quantities(s.Lines()))
}
