package repository

import (
	"encoding/json"
	"fmt"

	"storefront_service/internal/domain"

	"github.com/shopspring/decimal"
)

// payloadVersion is the layout version written into every record. Readers
// accept records at or below it.
const payloadVersion = 0

type payload struct {
	State   payloadState `json:"state"`
	Version int          `json:"version"`
}

type payloadState struct {
	Items  []payloadItem `json:"items"`
	IsOpen bool          `json:"isOpen"`
}

type payloadItem struct {
	ID       int             `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// EncodeCart serializes state into the stored record layout. Only the fields
// needed to render a line are kept.
func EncodeCart(state domain.CartState) ([]byte, error) {
	p := payload{
		State: payloadState{
			Items:  make([]payloadItem, 0, len(state.Lines)),
			IsOpen: state.IsOpen,
		},
		Version: payloadVersion,
	}
	for _, l := range state.Lines {
		p.State.Items = append(p.State.Items, payloadItem{
			ID:       l.ID,
			Title:    l.Title,
			Price:    l.Price,
			Category: l.Category,
			Image:    l.Image,
			Quantity: l.Quantity,
		})
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("could not encode cart: %w", err)
	}
	return data, nil
}

// DecodeCart parses a stored record. It does not validate the lines; callers
// run them through cart.Sanitize.
func DecodeCart(data []byte) (*domain.CartState, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("could not decode cart: %w", err)
	}
	if p.Version > payloadVersion {
		return nil, fmt.Errorf("could not decode cart: unsupported layout version %d", p.Version)
	}

	state := &domain.CartState{
		Lines:  make([]domain.CartLine, 0, len(p.State.Items)),
		IsOpen: p.State.IsOpen,
	}
	for _, it := range p.State.Items {
		state.Lines = append(state.Lines, domain.CartLine{
			Product: domain.Product{
				ID:       it.ID,
				Title:    it.Title,
				Price:    it.Price,
				Category: it.Category,
				Image:    it.Image,
			},
			Quantity: it.Quantity,
		})
	}
	return state, nil
}
