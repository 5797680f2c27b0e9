package service

import (
	"context"
	"fmt"
	"time"

	"image-search-service/internal/models"
	"image-search-service/internal/util"

	"go.uber.org/zap"
)

// CatalogStore is the read interface over the product catalog.
type CatalogStore interface {
	ListProducts(ctx context.Context, filter models.FilterSpec, sort models.SortSpec, page models.PageSpec) ([]models.Product, int, error)
	GetProductsByExternalIDs(ctx context.Context, ids []string) (map[string]models.Product, error)
	DistinctValues(ctx context.Context, field string) ([]string, error)
}

// EnumerationCache caches distinct filter values. A miss is (nil, nil).
type EnumerationCache interface {
	GetEnumeration(ctx context.Context, field string) ([]string, error)
	SetEnumeration(ctx context.Context, field string, values []string, ttl time.Duration) error
}

// ProductService builds, validates and executes catalog queries.
type ProductService struct {
	store    CatalogStore
	cache    EnumerationCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewProductService creates a new product service. cache may be nil, in
// which case enumeration queries always hit the store.
func NewProductService(store CatalogStore, cache EnumerationCache, cacheTTL time.Duration) *ProductService {
	return &ProductService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
	}
}

// ListProducts validates the query, executes it and computes pagination
// metadata. A page beyond the last one yields an empty list, not an error.
func (s *ProductService) ListProducts(ctx context.Context, filter models.FilterSpec, sort models.SortSpec, page models.PageSpec) ([]models.Product, models.PaginationMeta, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListProducts")
	defer span.End()

	if err := validateListRequest(filter, sort, page); err != nil {
		for _, d := range err.Details {
			util.ValidationFailuresTotal.WithLabelValues(d.Field).Inc()
		}
		return nil, models.PaginationMeta{}, err
	}

	start := time.Now()
	products, total, err := s.store.ListProducts(ctx, filter, sort, page)
	if err != nil {
		return nil, models.PaginationMeta{}, err
	}
	util.CatalogQueriesTotal.Inc()
	util.CatalogQueryLatency.Observe(time.Since(start).Seconds())

	return products, models.NewPaginationMeta(page, total), nil
}

// DistinctFilterValues returns the distinct values of a filter axis as
// currently present in the catalog. Cached briefly; a cache failure falls
// through to the store rather than failing the request.
func (s *ProductService) DistinctFilterValues(ctx context.Context, field string) ([]string, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.DistinctFilterValues")
	defer span.End()

	if s.cache != nil {
		values, err := s.cache.GetEnumeration(ctx, field)
		if err != nil {
			util.DistinctCacheHitsTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Enumeration cache read failed, falling back to DB",
				zap.String("field", field),
				zap.Error(err))
		} else if values != nil {
			util.DistinctCacheHitsTotal.WithLabelValues("hit").Inc()
			return values, nil
		} else {
			util.DistinctCacheHitsTotal.WithLabelValues("miss").Inc()
		}
	}

	values, err := s.store.DistinctValues(ctx, field)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetEnumeration(ctx, field, values, s.cacheTTL); err != nil {
			s.logger.Warn("Enumeration cache write failed",
				zap.String("field", field),
				zap.Error(err))
		}
	}

	return values, nil
}

// validateListRequest checks every axis and collects all offending fields.
// Out-of-range values are rejected, never clamped.
func validateListRequest(filter models.FilterSpec, sort models.SortSpec, page models.PageSpec) *models.ValidationError {
	var details []models.FieldError

	if page.Page < 1 {
		details = append(details, models.FieldError{
			Field:   "page",
			Message: fmt.Sprintf("must be >= 1, got %d", page.Page),
		})
	}
	if page.PageSize < 1 || page.PageSize > models.MaxPageSize {
		details = append(details, models.FieldError{
			Field:   "page_size",
			Message: fmt.Sprintf("must be between 1 and %d, got %d", models.MaxPageSize, page.PageSize),
		})
	}
	if filter.MinPrice != nil && *filter.MinPrice < 0 {
		details = append(details, models.FieldError{
			Field:   "min_price",
			Message: "must be non-negative",
		})
	}
	if filter.MaxPrice != nil && *filter.MaxPrice < 0 {
		details = append(details, models.FieldError{
			Field:   "max_price",
			Message: "must be non-negative",
		})
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		details = append(details, models.FieldError{
			Field:   "min_price",
			Message: fmt.Sprintf("must not exceed max_price (%v > %v)", *filter.MinPrice, *filter.MaxPrice),
		})
	}

	switch filter.Gender {
	case "", models.GenderMen, models.GenderWomen, models.GenderUnisex:
	default:
		details = append(details, models.FieldError{
			Field:   "gender",
			Message: fmt.Sprintf("must be one of Men, Women, Unisex; got %q", filter.Gender),
		})
	}

	switch sort.Field {
	case models.SortByName, models.SortByPrice, models.SortByCreatedAt, models.SortByPopularity:
	default:
		details = append(details, models.FieldError{
			Field:   "sort_by",
			Message: fmt.Sprintf("must be one of name, price, created_at, popularity; got %q", sort.Field),
		})
	}

	switch sort.Order {
	case models.SortAsc, models.SortDesc:
	default:
		details = append(details, models.FieldError{
			Field:   "sort_order",
			Message: fmt.Sprintf("must be asc or desc; got %q", sort.Order),
		})
	}

	if len(details) > 0 {
		return &models.ValidationError{Details: details}
	}
	return nil
}
