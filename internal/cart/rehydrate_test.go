package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront_service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeDropsAndMerges(t *testing.T) {
	bad := product(4, "3")
	bad.Price = bad.Price.Neg()

	lines, corrected := Sanitize([]domain.CartLine{
		{Product: product(1, "10"), Quantity: 2},
		{Product: product(2, "5"), Quantity: 0},
		{Product: product(3, "1"), Quantity: -3},
		{Product: product(1, "10"), Quantity: 3},
		{Product: bad, Quantity: 1},
		{Product: product(0, "1"), Quantity: 1},
		{Product: product(5, "2"), Quantity: 1},
	})

	assert.Equal(t, 5, corrected)
	assert.Equal(t, []int{1, 5}, ids(lines))
	assert.Equal(t, []int{5, 1}, quantities(lines))
}

func TestSanitizeKeepsValidInput(t *testing.T) {
	in := []domain.CartLine{
		{Product: product(2, "5"), Quantity: 1},
		{Product: product(1, "10"), Quantity: 4},
	}

	lines, corrected := Sanitize(in)

	assert.Zero(t, corrected)
	assert.Equal(t, in, lines)
}

func TestRehydrateMissingCartIsEmpty(t *testing.T) {
	state, corrected := Rehydrate(context.Background(), newFakeRepo(), "cart:none", quietLogger())

	assert.Empty(t, state.Lines)
	assert.False(t, state.IsOpen)
	assert.Zero(t, corrected)
}

func TestRehydrateReadFailureFallsBackToEmpty(t *testing.T) {
	repo := newFakeRepo()
	repo.loadErr = errors.New("storage unavailable")

	state, _ := Rehydrate(context.Background(), repo, "cart:a", quietLogger())

	assert.Empty(t, state.Lines)
}

func TestRehydrateCorrectsMalformedPayload(t *testing.T) {
	repo := newFakeRepo()
	repo.saved["cart:a"] = domain.CartState{
		IsOpen: true,
		Lines: []domain.CartLine{
			{Product: product(7, "1"), Quantity: 1},
			{Product: product(7, "1"), Quantity: 1},
			{Product: product(8, "1"), Quantity: 0},
		},
	}

	state, corrected := Rehydrate(context.Background(), repo, "cart:a", quietLogger())

	assert.Equal(t, 2, corrected)
	assert.Equal(t, []int{7}, ids(state.Lines))
	assert.Equal(t, []int{2}, quantities(state.Lines))
	assert.False(t, state.IsOpen)
}

func TestPersistThenRehydrateRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	s := NewStore(quietLogger(), WithPersistence(repo, "cart:a", time.Second))
	s.AddItem(product(3, "1.50"))
	s.AddItem(product(1, "10"))
	s.AddItem(product(3, "1.50"))
	s.AddItem(product(2, "5"))
	s.UpdateQuantity(1, 6)
	want := s.Lines()
	s.Close()

	state, corrected := Rehydrate(context.Background(), repo, "cart:a", quietLogger())
	require.Zero(t, corrected)

	reloaded := NewStore(quietLogger(), WithInitialState(state))
	assert.Equal(t, ids(want), ids(reloaded.Lines()))
	assert.Equal(t, quantities(want), quantities(reloaded.Lines()))
	assert.True(t, s.TotalPrice().Equal(reloaded.TotalPrice()))
}
