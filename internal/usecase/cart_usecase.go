package usecase

import (
	"context"
	"fmt"

	"storefront_service/internal/cart"
	"storefront_service/internal/domain"

	"github.com/sirupsen/logrus"
)

// MaxAddQuantity bounds a single add-to-cart request.
const MaxAddQuantity = 99

const (
	MsgAdded           = "Added to cart!"
	MsgRemoved         = "Item removed"
	MsgCleared         = "Cart cleared"
	MsgQuantityUpdated = "Quantity updated"
	MsgSessionEnded    = "Session ended"
)

var _ domain.CartUseCase = (*cartUseCase)(nil)

type cartUseCase struct {
	carts   *cart.Manager
	catalog domain.CatalogClient
	log     *logrus.Logger
}

func NewCartUseCase(carts *cart.Manager, catalog domain.CatalogClient, logger *logrus.Logger) domain.CartUseCase {
	return &cartUseCase{
		carts:   carts,
		catalog: catalog,
		log:     logger,
	}
}

// View reads the cart without opening a store for the session.
func (uc *cartUseCase) View(ctx context.Context, sessionID string) domain.CartView {
	return domain.NewCartView(uc.carts.Peek(ctx, sessionID))
}

// AddProduct looks the product up in the catalog and adds quantity units in
// one commit. A zero quantity means one.
func (uc *cartUseCase) AddProduct(ctx context.Context, sessionID string, productID, quantity int) (domain.CartView, string, error) {
	if productID <= 0 {
		return domain.CartView{}, "", fmt.Errorf("%w: invalid product ID", domain.ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 || quantity > MaxAddQuantity {
		return domain.CartView{}, "", fmt.Errorf("%w: quantity must be between 1 and %d", domain.ErrInvalidInput, MaxAddQuantity)
	}

	product, err := uc.catalog.GetProduct(ctx, productID)
	if err != nil {
		uc.log.Warnf("Use Case: Catalog lookup failed for Product ID %d: %v", productID, err)
		return domain.CartView{}, "", fmt.Errorf("could not add product %d: %w", productID, err)
	}

	store := uc.carts.Get(ctx, sessionID)
	store.AddItemN(*product, quantity)
	uc.log.Infof("Use Case: Added product %d x%d to cart of session %s", productID, quantity, sessionID)
	return domain.NewCartView(store.Snapshot()), MsgAdded, nil
}

func (uc *cartUseCase) RemoveProduct(ctx context.Context, sessionID string, productID int) (domain.CartView, string) {
	store := uc.carts.Get(ctx, sessionID)
	store.RemoveItem(productID)
	uc.log.Infof("Use Case: Removed product %d from cart of session %s", productID, sessionID)
	return domain.NewCartView(store.Snapshot()), MsgRemoved
}

func (uc *cartUseCase) UpdateQuantity(ctx context.Context, sessionID string, productID, quantity int) (domain.CartView, string) {
	store := uc.carts.Get(ctx, sessionID)
	store.UpdateQuantity(productID, quantity)
	if quantity <= 0 {
		return domain.NewCartView(store.Snapshot()), MsgRemoved
	}
	return domain.NewCartView(store.Snapshot()), MsgQuantityUpdated
}

func (uc *cartUseCase) Clear(ctx context.Context, sessionID string) (domain.CartView, string) {
	store := uc.carts.Get(ctx, sessionID)
	store.ClearCart()
	uc.log.Infof("Use Case: Cleared cart of session %s", sessionID)
	return domain.NewCartView(store.Snapshot()), MsgCleared
}

func (uc *cartUseCase) SetVisibility(ctx context.Context, sessionID string, v domain.Visibility) (domain.CartView, error) {
	store := uc.carts.Get(ctx, sessionID)
	switch v {
	case domain.VisibilityOpen:
		store.OpenCart()
	case domain.VisibilityClose:
		store.CloseCart()
	case domain.VisibilityToggle:
		store.ToggleCart()
	default:
		return domain.CartView{}, fmt.Errorf("%w: unknown visibility action %q", domain.ErrInvalidInput, v)
	}
	return domain.NewCartView(store.Snapshot()), nil
}

func (uc *cartUseCase) Subscribe(ctx context.Context, sessionID string, fn func(domain.CartView)) func() {
	return uc.carts.Get(ctx, sessionID).Subscribe(func(state domain.CartState) {
		fn(domain.NewCartView(state))
	})
}

// EndSession drops the session's cart and its stored record.
func (uc *cartUseCase) EndSession(ctx context.Context, sessionID string) string {
	uc.carts.Reset(ctx, sessionID)
	uc.log.Infof("Use Case: Ended session %s", sessionID)
	return MsgSessionEnded
}
