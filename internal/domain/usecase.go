package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Sort keys accepted by CatalogUseCase.Browse.
const (
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortName      = "name"
	SortRating    = "rating"

	DefaultProductLimit = 30
)

type ProductQuery struct {
	Limit    int
	Category string
	Search   string
	Sort     string
}

type CartLineView struct {
	CartLine
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the rendered cart: lines with their totals plus the cart-wide
// derived values.
type CartView struct {
	Items      []CartLineView  `json:"items"`
	IsOpen     bool            `json:"isOpen"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Version    uint64          `json:"version"`
}

// NewCartView derives the view of a state snapshot.
func NewCartView(state CartState) CartView {
	view := CartView{
		Items:      make([]CartLineView, 0, len(state.Lines)),
		IsOpen:     state.IsOpen,
		TotalPrice: decimal.Zero,
		Version:    state.Version,
	}
	for _, l := range state.Lines {
		total := l.LineTotal()
		view.Items = append(view.Items, CartLineView{CartLine: l, LineTotal: total})
		view.TotalItems += l.Quantity
		view.TotalPrice = view.TotalPrice.Add(total)
	}
	return view
}

type Visibility string

const (
	VisibilityOpen   Visibility = "open"
	VisibilityClose  Visibility = "close"
	VisibilityToggle Visibility = "toggle"
)

type CatalogUseCase interface {
	Browse(ctx context.Context, q ProductQuery) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// CartUseCase drives the cart of one visitor session. The returned string
// is the short notice shown to the visitor after the action.
type CartUseCase interface {
	View(ctx context.Context, sessionID string) CartView
	AddProduct(ctx context.Context, sessionID string, productID, quantity int) (CartView, string, error)
	RemoveProduct(ctx context.Context, sessionID string, productID int) (CartView, string)
	UpdateQuantity(ctx context.Context, sessionID string, productID, quantity int) (CartView, string)
	Clear(ctx context.Context, sessionID string) (CartView, string)
	SetVisibility(ctx context.Context, sessionID string, v Visibility) (CartView, error)
	Subscribe(ctx context.Context, sessionID string, fn func(CartView)) (unsubscribe func())
	EndSession(ctx context.Context, sessionID string) string
}

type CheckoutUseCase interface {
	Summary(ctx context.Context, sessionID string) CheckoutSummary
	PlaceOrder(ctx context.Context, sessionID string, form CheckoutForm) (*Order, error)
}
