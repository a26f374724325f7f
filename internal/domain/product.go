package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Rating struct {
	Rate  float64 `json:"rate"`  // average score, 0-5
	Count int     `json:"count"` // number of reviews
}

// Product is a catalog record. The cart copies it into a line and never
// writes back to the catalog.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      Rating          `json:"rating"`
}

// CatalogClient is the read-only view of the remote product catalog.
type CatalogClient interface {
	ListProducts(ctx context.Context, limit int, sort string) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListProductsByCategory(ctx context.Context, category string) ([]Product, error)
}
