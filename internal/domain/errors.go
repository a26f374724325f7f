package domain

import "errors"

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidInput    = errors.New("invalid input")
	ErrCatalogDown     = errors.New("catalog unavailable")
)
