package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront_service/internal/domain"
	"storefront_service/internal/metrics"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Endpoint labels used in logs and metrics.
const (
	endpointProducts   = "products"
	endpointProduct    = "product"
	endpointCategories = "categories"
	endpointCategory   = "category"
)

type catalogHTTPClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// NewCatalogHTTPClient talks to a Fake Store compatible catalog API. Calls go
// through a circuit breaker; a missing product does not count as a failure.
func NewCatalogHTTPClient(baseURL string, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) domain.CatalogClient {
	st := gobreaker.Settings{
		Name:        "CatalogCircuitBreaker",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrProductNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("CatalogClient: circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &catalogHTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		cb:      gobreaker.NewCircuitBreaker(st),
		metrics: m,
		log:     logger,
	}
}

func (c *catalogHTTPClient) ListProducts(ctx context.Context, limit int, sort string) ([]domain.Product, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var products []domain.Product
	if err := c.get(ctx, endpointProducts, path, &products); err != nil {
		return nil, err
	}
	c.log.Infof("CatalogClient: Fetched %d products", len(products))
	return products, nil
}

func (c *catalogHTTPClient) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", domain.ErrInvalidInput)
	}

	var product domain.Product
	if err := c.get(ctx, endpointProduct, fmt.Sprintf("/products/%d", id), &product); err != nil {
		return nil, err
	}
	// The API answers unknown IDs with 200 and an empty body.
	if product.ID == 0 {
		c.log.Warnf("CatalogClient: Product with ID %d not found", id)
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrProductNotFound)
	}
	if product.ID != id {
		c.log.Warnf("CatalogClient: Mismatched product ID in response. Requested %d, got %d", id, product.ID)
	}
	return &product, nil
}

func (c *catalogHTTPClient) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.get(ctx, endpointCategories, "/products/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *catalogHTTPClient) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}

	var products []domain.Product
	if err := c.get(ctx, endpointCategory, "/products/category/"+url.PathEscape(category), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// get fetches path and decodes the JSON body into out. An empty body leaves
// out untouched.
func (c *catalogHTTPClient) get(ctx context.Context, endpoint, path string, out any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.fetch(ctx, path, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.log.Warnf("CatalogClient: Circuit open, skipping request to %s", path)
		err = fmt.Errorf("%w: %w", domain.ErrCatalogDown, err)
	}
	c.metrics.CatalogRequest(endpoint, err)
	return err
}

func (c *catalogHTTPClient) fetch(ctx context.Context, path string, out any) error {
	u := c.baseURL + path
	c.log.Debugf("CatalogClient: Requesting %s", u)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.log.Errorf("CatalogClient: Failed to create request for %s: %v", u, err)
		return fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Errorf("CatalogClient: Failed to execute request for %s: %v", u, err)
		return fmt.Errorf("%w: %w", domain.ErrCatalogDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Warnf("CatalogClient: %s not found (status %d)", path, resp.StatusCode)
		return fmt.Errorf("%s: %w", path, domain.ErrProductNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Errorf("CatalogClient: Request for %s failed with status %d. Response body: %s", path, resp.StatusCode, string(bodyBytes))
		return fmt.Errorf("%w: catalog returned status %d", domain.ErrCatalogDown, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Errorf("CatalogClient: Failed to read response for %s: %v", path, err)
		return fmt.Errorf("%w: %w", domain.ErrCatalogDown, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.log.Errorf("CatalogClient: Failed to decode response for %s: %v", path, err)
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}
