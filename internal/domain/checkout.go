package domain

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShippingRate      = decimal.RequireFromString("9.99")
	TaxRate               = decimal.RequireFromString("0.08")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CheckoutForm is the data collected by the checkout page. Card fields are
// only checked for shape; no payment is taken.
type CheckoutForm struct {
	Email      string `json:"email"       validate:"required,email"`
	FirstName  string `json:"first_name"  validate:"required"`
	LastName   string `json:"last_name"   validate:"required"`
	Address    string `json:"address"     validate:"required"`
	City       string `json:"city"        validate:"required"`
	State      string `json:"state"       validate:"required"`
	ZipCode    string `json:"zip_code"    validate:"required"`
	CardNumber string `json:"card_number" validate:"required,credit_card"`
	ExpiryDate string `json:"expiry_date" validate:"required"`
	CVV        string `json:"cvv"         validate:"required,numeric,min=3,max=4"`
	NameOnCard string `json:"name_on_card" validate:"required"`
}

func (f *CheckoutForm) Validate() error {
	return validate.Struct(f)
}

// CheckoutSummary is the priced view of a cart at checkout.
type CheckoutSummary struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"total_items"`
}

// NewCheckoutSummary prices a subtotal: free shipping above the threshold,
// flat tax on the subtotal, total rounded to cents.
func NewCheckoutSummary(subtotal decimal.Decimal, totalItems int) CheckoutSummary {
	shipping := FlatShippingRate
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	return CheckoutSummary{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		Total:      subtotal.Add(shipping).Add(tax).Round(2),
		TotalItems: totalItems,
	}
}

type OrderItem struct {
	ProductID int             `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Order is what checkout hands to the order pipeline. It carries no card data.
type Order struct {
	ID              string          `json:"order_id"`
	SessionID       string          `json:"session_id"`
	Email           string          `json:"email"`
	CustomerName    string          `json:"customer_name"`
	ShippingAddress string          `json:"shipping_address"`
	Items           []OrderItem     `json:"items"`
	Summary         CheckoutSummary `json:"summary"`
	PlacedAt        time.Time       `json:"placed_at"`
}

type OrderPublisher interface {
	Publish(ctx context.Context, order *Order) error
	Close() error
}
