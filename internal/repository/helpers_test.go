package repository

import (
	"io"
	"testing"

	"storefront_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sampleState() domain.CartState {
	return domain.CartState{
		IsOpen: true,
		Lines: []domain.CartLine{
			{
				Product: domain.Product{
					ID:       3,
					Title:    "Mens Cotton Jacket",
					Price:    decimal.RequireFromString("55.99"),
					Category: "men's clothing",
					Image:    "https://fakestoreapi.com/img/3.jpg",
				},
				Quantity: 2,
			},
			{
				Product: domain.Product{
					ID:       9,
					Title:    "WD 2TB Elements Portable External Hard Drive",
					Price:    decimal.RequireFromString("64"),
					Category: "electronics",
					Image:    "https://fakestoreapi.com/img/9.jpg",
				},
				Quantity: 1,
			},
		},
	}
}

func assertSameCart(t *testing.T, want domain.CartState, got *domain.CartState) {
	t.Helper()
	if !assert.NotNil(t, got) {
		return
	}
	assert.Equal(t, want.IsOpen, got.IsOpen)
	if !assert.Len(t, got.Lines, len(want.Lines)) {
		return
	}
	for i := range want.Lines {
		w, g := want.Lines[i], got.Lines[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Title, g.Title)
		assert.Equal(t, w.Category, g.Category)
		assert.Equal(t, w.Image, g.Image)
		assert.Equal(t, w.Quantity, g.Quantity)
		assert.True(t, w.Price.Equal(g.Price), "line %d price %s != %s", i, g.Price, w.Price)
	}
}
