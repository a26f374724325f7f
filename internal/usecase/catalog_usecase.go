package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"storefront_service/internal/domain"

	"github.com/sirupsen/logrus"
)

var _ domain.CatalogUseCase = (*catalogUseCase)(nil)

type catalogUseCase struct {
	catalog domain.CatalogClient
	log     *logrus.Logger
}

func NewCatalogUseCase(catalog domain.CatalogClient, logger *logrus.Logger) domain.CatalogUseCase {
	return &catalogUseCase{
		catalog: catalog,
		log:     logger,
	}
}

func (uc *catalogUseCase) Browse(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: limit cannot be negative", domain.ErrInvalidInput)
	}
	if q.Limit == 0 {
		q.Limit = domain.DefaultProductLimit
	}
	if q.Sort == "" {
		q.Sort = domain.SortName
	}
	if !validSort(q.Sort) {
		return nil, fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidInput, q.Sort)
	}

	var (
		products []domain.Product
		err      error
	)
	if q.Category != "" {
		products, err = uc.catalog.ListProductsByCategory(ctx, q.Category)
	} else {
		products, err = uc.catalog.ListProducts(ctx, q.Limit, "")
	}
	if err != nil {
		uc.log.Warnf("Use Case: Failed to fetch products (category %q): %v", q.Category, err)
		return nil, fmt.Errorf("could not fetch products: %w", err)
	}

	products = filterProducts(products, q.Search)
	sortProducts(products, q.Sort)
	if len(products) > q.Limit {
		products = products[:q.Limit]
	}
	uc.log.Infof("Use Case: Browse returned %d products (category %q, search %q, sort %s)", len(products), q.Category, q.Search, q.Sort)
	return products, nil
}

func (uc *catalogUseCase) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid product ID", domain.ErrInvalidInput)
	}
	p, err := uc.catalog.GetProduct(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to get product %d: %v", id, err)
		return nil, fmt.Errorf("could not get product %d: %w", id, err)
	}
	return p, nil
}

func (uc *catalogUseCase) Categories(ctx context.Context) ([]string, error) {
	categories, err := uc.catalog.ListCategories(ctx)
	if err != nil {
		uc.log.Warnf("Use Case: Failed to list categories: %v", err)
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	return categories, nil
}

func validSort(s string) bool {
	switch s {
	case domain.SortPriceAsc, domain.SortPriceDesc, domain.SortName, domain.SortRating:
		return true
	default:
		return false
	}
}

// filterProducts keeps products whose title, description or category
// contains search, ignoring case.
func filterProducts(products []domain.Product, search string) []domain.Product {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return products
	}
	out := products[:0:0]
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), search) ||
			strings.Contains(strings.ToLower(p.Description), search) ||
			strings.Contains(strings.ToLower(p.Category), search) {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(products []domain.Product, key string) {
	slices.SortStableFunc(products, func(a, b domain.Product) int {
		switch key {
		case domain.SortPriceAsc:
			return a.Price.Cmp(b.Price)
		case domain.SortPriceDesc:
			return b.Price.Cmp(a.Price)
		case domain.SortRating:
			return cmp.Compare(b.Rating.Rate, a.Rating.Rate)
		default:
			return strings.Compare(a.Title, b.Title)
		}
	})
}
