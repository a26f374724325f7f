package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront_service/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type redisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedisCartRepository stores each cart as a string value that expires
// after ttl without writes. A zero ttl keeps records forever.
func NewRedisCartRepository(client *redis.Client, ttl time.Duration, logger *logrus.Logger) domain.CartRepository {
	return &redisCartRepository{
		client: client,
		ttl:    ttl,
		log:    logger,
	}
}

func (r *redisCartRepository) Load(ctx context.Context, key string) (*domain.CartState, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCartNotFound
		}
		r.log.Errorf("Failed to load cart from redis for key %s: %v", key, err)
		return nil, fmt.Errorf("could not load cart: %w", err)
	}
	return DecodeCart(data)
}

func (r *redisCartRepository) Save(ctx context.Context, key string, state domain.CartState) error {
	data, err := EncodeCart(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.log.Errorf("Failed to save cart to redis for key %s: %v", key, err)
		return fmt.Errorf("could not save cart: %w", err)
	}
	return nil
}

func (r *redisCartRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Errorf("Failed to delete cart from redis for key %s: %v", key, err)
		return fmt.Errorf("could not delete cart: %w", err)
	}
	return nil
}
