package repository

import (
	"context"
	"sync"

	"storefront_service/internal/domain"
)

// memoryCartRepository keeps encoded records in a map, so it round-trips
// through the same layout as the durable backends.
type memoryCartRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryCartRepository() domain.CartRepository {
	return &memoryCartRepository{records: make(map[string][]byte)}
}

func (r *memoryCartRepository) Load(_ context.Context, key string) (*domain.CartState, error) {
	r.mu.RLock()
	data, ok := r.records[key]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return DecodeCart(data)
}

func (r *memoryCartRepository) Save(_ context.Context, key string, state domain.CartState) error {
	data, err := EncodeCart(state)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.records[key] = data
	r.mu.Unlock()
	return nil
}

func (r *memoryCartRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.records, key)
	r.mu.Unlock()
	return nil
}
