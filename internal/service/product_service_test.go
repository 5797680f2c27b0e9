package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"image-search-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestListProductsValidation(t *testing.T) {
	svc := NewProductService(&fakeCatalogStore{}, nil, 0)

	tests := []struct {
		name      string
		filter    models.FilterSpec
		sort      models.SortSpec
		page      models.PageSpec
		wantField string
	}{
		{
			name:      "page below one",
			sort:      models.DefaultSortSpec(),
			page:      models.PageSpec{Page: 0, PageSize: 20},
			wantField: "page",
		},
		{
			name:      "page size zero",
			sort:      models.DefaultSortSpec(),
			page:      models.PageSpec{Page: 1, PageSize: 0},
			wantField: "page_size",
		},
		{
			name:      "page size above max",
			sort:      models.DefaultSortSpec(),
			page:      models.PageSpec{Page: 1, PageSize: 101},
			wantField: "page_size",
		},
		{
			name:      "min price above max price",
			filter:    models.FilterSpec{MinPrice: floatPtr(50), MaxPrice: floatPtr(10)},
			sort:      models.DefaultSortSpec(),
			page:      models.DefaultPageSpec(),
			wantField: "min_price",
		},
		{
			name:      "negative min price",
			filter:    models.FilterSpec{MinPrice: floatPtr(-1)},
			sort:      models.DefaultSortSpec(),
			page:      models.DefaultPageSpec(),
			wantField: "min_price",
		},
		{
			name:      "unknown gender",
			filter:    models.FilterSpec{Gender: "Other"},
			sort:      models.DefaultSortSpec(),
			page:      models.DefaultPageSpec(),
			wantField: "gender",
		},
		{
			name:      "unknown sort field",
			sort:      models.SortSpec{Field: "rating", Order: models.SortAsc},
			page:      models.DefaultPageSpec(),
			wantField: "sort_by",
		},
		{
			name:      "unknown sort order",
			sort:      models.SortSpec{Field: models.SortByName, Order: "sideways"},
			page:      models.DefaultPageSpec(),
			wantField: "sort_order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.ListProducts(context.Background(), tt.filter, tt.sort, tt.page)

			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)

			fields := make([]string, 0, len(verr.Details))
			for _, d := range verr.Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestListProductsValidationCollectsAllFields(t *testing.T) {
	svc := NewProductService(&fakeCatalogStore{}, nil, 0)

	_, _, err := svc.ListProducts(context.Background(),
		models.FilterSpec{Gender: "Robot"},
		models.SortSpec{Field: "rating", Order: "sideways"},
		models.PageSpec{Page: 0, PageSize: 0})

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Details, 5)
}

func TestListProductsEmptyCatalog(t *testing.T) {
	svc := NewProductService(&fakeCatalogStore{}, nil, 0)

	for _, pageNum := range []int{1, 7} {
		products, meta, err := svc.ListProducts(context.Background(),
			models.FilterSpec{}, models.DefaultSortSpec(),
			models.PageSpec{Page: pageNum, PageSize: 20})
		require.NoError(t, err)

		assert.Empty(t, products)
		assert.Equal(t, 0, meta.TotalItems)
		assert.Equal(t, 1, meta.TotalPages)
		assert.False(t, meta.HasNext)
	}
}

func TestListProductsPageBeyondLast(t *testing.T) {
	store := &fakeCatalogStore{products: seedProducts(5, 10.0)}
	svc := NewProductService(store, nil, 0)

	products, meta, err := svc.ListProducts(context.Background(),
		models.FilterSpec{}, models.DefaultSortSpec(),
		models.PageSpec{Page: 9, PageSize: 20})
	require.NoError(t, err)

	assert.Empty(t, products)
	assert.Equal(t, 5, meta.TotalItems)
	assert.Equal(t, 1, meta.TotalPages)
	assert.Equal(t, 9, meta.Page)
	assert.False(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)
}

// TestTieBreakPaginationUnion walks every page of a catalog where all rows
// share the sort value; the union must contain each product exactly once.
func TestTieBreakPaginationUnion(t *testing.T) {
	store := &fakeCatalogStore{products: seedProducts(25, 10.0)}
	svc := NewProductService(store, nil, 0)

	for _, order := range []models.SortOrder{models.SortAsc, models.SortDesc} {
		sortSpec := models.SortSpec{Field: models.SortByPrice, Order: order}

		seen := map[string]bool{}
		var pages int

		for pageNum := 1; ; pageNum++ {
			products, meta, err := svc.ListProducts(context.Background(),
				models.FilterSpec{}, sortSpec,
				models.PageSpec{Page: pageNum, PageSize: 10})
			require.NoError(t, err)

			prev := ""
			for _, p := range products {
				assert.False(t, seen[p.ProductID], "duplicate %s on page %d (%s)", p.ProductID, pageNum, order)
				seen[p.ProductID] = true
				// Equal prices everywhere, so ordering is the tie-break itself.
				assert.Greater(t, p.ProductID, prev, "ids must ascend within tied prices")
				prev = p.ProductID
			}

			pages = meta.TotalPages
			if pageNum >= meta.TotalPages {
				break
			}
		}

		assert.Equal(t, 3, pages)
		assert.Len(t, seen, 25, "union of pages must equal the filtered set (%s)", order)
	}
}

func TestListProductsFiltersAndSorts(t *testing.T) {
	men := models.GenderMen
	women := models.GenderWomen
	store := &fakeCatalogStore{products: []models.Product{
		{ProductID: "p1", Title: "Blue Shirt", Category: "Apparel", Gender: &men, Price: 30, InStock: true},
		{ProductID: "p2", Title: "Red Shirt", Category: "Apparel", Gender: &women, Price: 20, InStock: true},
		{ProductID: "p3", Title: "Blue Jeans", Category: "Apparel", Gender: &men, Price: 50, InStock: false},
		{ProductID: "p4", Title: "Toaster", Category: "Home", Price: 25, InStock: true},
	}}
	svc := NewProductService(store, nil, 0)

	inStock := true
	products, meta, err := svc.ListProducts(context.Background(),
		models.FilterSpec{Category: "Apparel", InStock: &inStock},
		models.SortSpec{Field: models.SortByPrice, Order: models.SortAsc},
		models.DefaultPageSpec())
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "p2", products[0].ProductID)
	assert.Equal(t, "p1", products[1].ProductID)
	assert.Equal(t, 2, meta.TotalItems)

	products, _, err = svc.ListProducts(context.Background(),
		models.FilterSpec{Search: "blue"},
		models.DefaultSortSpec(), models.DefaultPageSpec())
	require.NoError(t, err)
	require.Len(t, products, 2)
}

func TestDistinctFilterValuesUsesCache(t *testing.T) {
	store := &fakeCatalogStore{distinct: map[string][]string{"category": {"Apparel", "Home"}}}
	cache := &fakeCache{values: map[string][]string{}}
	svc := NewProductService(store, cache, time.Minute)

	values, err := svc.DistinctFilterValues(context.Background(), "category")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apparel", "Home"}, values)
	assert.Equal(t, 1, store.distinctCalls)
	assert.Equal(t, 1, cache.sets)

	// Second call is served from the cache.
	values, err = svc.DistinctFilterValues(context.Background(), "category")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apparel", "Home"}, values)
	assert.Equal(t, 1, store.distinctCalls)
}

func TestDistinctFilterValuesCacheFailureFallsBack(t *testing.T) {
	store := &fakeCatalogStore{distinct: map[string][]string{"colour": {"Black", "Blue"}}}
	cache := &fakeCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	svc := NewProductService(store, cache, time.Minute)

	values, err := svc.DistinctFilterValues(context.Background(), "colour")
	require.NoError(t, err)
	assert.Equal(t, []string{"Black", "Blue"}, values)
	assert.Equal(t, 1, store.distinctCalls)
}

func seedProducts(n int, price float64) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, models.Product{
			ProductID: fmt.Sprintf("prod_%03d", i),
			Title:     fmt.Sprintf("Product %d", i),
			Category:  "Apparel",
			Price:     price,
			InStock:   true,
		})
	}
	return products
}
