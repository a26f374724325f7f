package clients

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"storefront_service/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds one shared upstream load. It is detached from the
// callers so one of them leaving does not fail the others.
const fetchTimeout = 15 * time.Second

type cacheEntry struct {
	value   any
	expires time.Time
}

// cachedCatalog keeps catalog reads for a while and collapses concurrent
// misses for the same key into one upstream call. Errors are never cached.
type cachedCatalog struct {
	next        domain.CatalogClient
	productTTL  time.Duration
	categoryTTL time.Duration
	log         *logrus.Logger

	sf      singleflight.Group
	mu      sync.RWMutex
	entries      map[string]cacheEntry
	now          func() time.Time
	fetchTimeout time.Duration
}

func NewCachedCatalog(next domain.CatalogClient, productTTL, categoryTTL time.Duration, logger *logrus.Logger) domain.CatalogClient {
	return &cachedCatalog{
		next:        next,
		productTTL:  productTTL,
		categoryTTL: categoryTTL,
		log:         logger,
		entries:     make(map[string]cacheEntry),
		now:         time.Now,

		fetchTimeout: fetchTimeout,
	}
}

func (c *cachedCatalog) ListProducts(ctx context.Context, limit int, sort string) ([]domain.Product, error) {
	key := fmt.Sprintf("products:%d:%s", limit, sort)
	v, err := c.load(ctx, key, c.productTTL, func(ctx context.Context) (any, error) {
		return c.next.ListProducts(ctx, limit, sort)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.Product)), nil
}

func (c *cachedCatalog) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	v, err := c.load(ctx, fmt.Sprintf("product:%d", id), c.productTTL, func(ctx context.Context) (any, error) {
		return c.next.GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*domain.Product)
	return &p, nil
}

func (c *cachedCatalog) ListCategories(ctx context.Context) ([]string, error) {
	v, err := c.load(ctx, "categories", c.categoryTTL, func(ctx context.Context) (any, error) {
		return c.next.ListCategories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]string)), nil
}

func (c *cachedCatalog) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	v, err := c.load(ctx, "category:"+category, c.productTTL, func(ctx context.Context) (any, error) {
		return c.next.ListProductsByCategory(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.Product)), nil
}

func (c *cachedCatalog) load(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		return e.value, nil
	}

	ch := c.sf.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: v, expires: c.now().Add(ttl)}
		c.mu.Unlock()
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debugf("CatalogCache: shared in-flight load for %s", key)
		}
		return res.Val, nil
	}
}
