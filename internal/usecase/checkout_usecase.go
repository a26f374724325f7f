package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront_service/internal/cart"
	"storefront_service/internal/domain"
	"storefront_service/internal/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ domain.CheckoutUseCase = (*checkoutUseCase)(nil)

type checkoutUseCase struct {
	carts     *cart.Manager
	publisher domain.OrderPublisher
	metrics   *metrics.Metrics
	log       *logrus.Logger
	now       func() time.Time
}

func NewCheckoutUseCase(carts *cart.Manager, publisher domain.OrderPublisher, m *metrics.Metrics, logger *logrus.Logger) domain.CheckoutUseCase {
	return &checkoutUseCase{
		carts:     carts,
		publisher: publisher,
		metrics:   m,
		log:       logger,
		now:       time.Now,
	}
}

func (uc *checkoutUseCase) Summary(ctx context.Context, sessionID string) domain.CheckoutSummary {
	view := domain.NewCartView(uc.carts.Peek(ctx, sessionID))
	return domain.NewCheckoutSummary(view.TotalPrice, view.TotalItems)
}

// PlaceOrder validates the form, publishes the order and then empties the
// cart. If publishing fails the cart is left as it was.
func (uc *checkoutUseCase) PlaceOrder(ctx context.Context, sessionID string, form domain.CheckoutForm) (*domain.Order, error) {
	if err := form.Validate(); err != nil {
		uc.log.Warnf("Use Case: Checkout form rejected for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	store := uc.carts.Get(ctx, sessionID)
	state := store.Snapshot()
	if len(state.Lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	view := domain.NewCartView(state)
	order := &domain.Order{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Email:        form.Email,
		CustomerName: strings.TrimSpace(form.FirstName + " " + form.LastName),
		ShippingAddress: fmt.Sprintf("%s, %s, %s %s",
			form.Address, form.City, form.State, form.ZipCode),
		Items:    make([]domain.OrderItem, 0, len(view.Items)),
		Summary:  domain.NewCheckoutSummary(view.TotalPrice, view.TotalItems),
		PlacedAt: uc.now().UTC(),
	}
	for _, l := range view.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: l.ID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
			LineTotal: l.LineTotal,
		})
	}
	uc.log.Infof("Use Case: Placing order %s for session %s (%d items, total %s)", order.ID, sessionID, order.Summary.TotalItems, order.Summary.Total)

	if err := uc.publisher.Publish(ctx, order); err != nil {
		uc.log.Errorf("Use Case: Failed to publish order %s: %v", order.ID, err)
		return nil, fmt.Errorf("could not place order: %w", err)
	}

	store.ClearCart()
	uc.metrics.OrderPlaced()
	uc.log.Infof("Use Case: Order %s placed, cart cleared for session %s", order.ID, sessionID)
	return order, nil
}
