package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"testing"
	"time"

	"image-search-service/internal/models"
	"image-search-service/internal/vectorindex"

	"github.com/stretchr/testify/require"
)

// fakeCatalogStore mirrors the store's filter and ordering semantics
// in memory, including the product_id tie-break.
type fakeCatalogStore struct {
	products []models.Product
	distinct map[string][]string
	listErr  error
	byIDErr  error

	distinctCalls int
}

func (f *fakeCatalogStore) ListProducts(_ context.Context, filter models.FilterSpec, sortSpec models.SortSpec, page models.PageSpec) ([]models.Product, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}

	filtered := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		if matchesFilter(p, filter) {
			filtered = append(filtered, p)
		}
	}

	sortProducts(filtered, sortSpec)

	total := len(filtered)
	start := (page.Page - 1) * page.PageSize
	if start >= total {
		return []models.Product{}, total, nil
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

func (f *fakeCatalogStore) GetProductsByExternalIDs(_ context.Context, ids []string) (map[string]models.Product, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	out := map[string]models.Product{}
	for _, id := range ids {
		for _, p := range f.products {
			if p.ProductID == id {
				out[id] = p
			}
		}
	}
	return out, nil
}

func (f *fakeCatalogStore) DistinctValues(_ context.Context, field string) ([]string, error) {
	f.distinctCalls++
	return f.distinct[field], nil
}

func matchesFilter(p models.Product, filter models.FilterSpec) bool {
	if filter.Search != "" {
		term := strings.ToLower(filter.Search)
		text := strings.ToLower(p.Title)
		if p.Description != nil {
			text += " " + strings.ToLower(*p.Description)
		}
		if p.Brand != nil {
			text += " " + strings.ToLower(*p.Brand)
		}
		if !strings.Contains(text, term) {
			return false
		}
	}
	if filter.Gender != "" && (p.Gender == nil || *p.Gender != filter.Gender) {
		return false
	}
	if filter.Category != "" && p.Category != filter.Category {
		return false
	}
	if filter.SubCategory != "" && (p.SubCategory == nil || *p.SubCategory != filter.SubCategory) {
		return false
	}
	if filter.ProductType != "" && (p.ProductType == nil || *p.ProductType != filter.ProductType) {
		return false
	}
	if filter.Colour != "" && (p.Colour == nil || *p.Colour != filter.Colour) {
		return false
	}
	if filter.MinPrice != nil && p.Price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && p.Price > *filter.MaxPrice {
		return false
	}
	if filter.InStock != nil && p.InStock != *filter.InStock {
		return false
	}
	return true
}

func sortProducts(ps []models.Product, spec models.SortSpec) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		var less, eq bool
		switch spec.Field {
		case models.SortByPrice:
			less, eq = a.Price < b.Price, a.Price == b.Price
		case models.SortByCreatedAt:
			less, eq = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		case models.SortByName:
			la, lb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			less, eq = la < lb, la == lb
		default:
			less, eq = a.ProductID < b.ProductID, a.ProductID == b.ProductID
		}
		// Ties always fall back to the stable identifier, ascending,
		// regardless of the requested direction.
		if eq {
			return a.ProductID < b.ProductID
		}
		if spec.Order == models.SortDesc {
			return !less
		}
		return less
	})
}

type fakeCache struct {
	values map[string][]string
	getErr error
	setErr error

	sets int
}

func (f *fakeCache) GetEnumeration(_ context.Context, field string) ([]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.values[field], nil
}

func (f *fakeCache) SetEnumeration(_ context.Context, field string, values []string, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	if f.values == nil {
		f.values = map[string][]string{}
	}
	f.values[field] = values
	return nil
}

type fakeExtractor struct {
	vector   []float32
	err      error
	probeErr error

	calls int
}

func (f *fakeExtractor) ExtractImage(context.Context, []byte) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeExtractor) Probe(context.Context) error {
	return f.probeErr
}

type fakeIndex struct {
	matches  []vectorindex.Match
	err      error
	probeErr error

	calls    int
	lastTopK int
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]vectorindex.Match, error) {
	f.calls++
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeIndex) Probe(context.Context) error {
	return f.probeErr
}

// pngBytes encodes a small solid image so validation sees a real PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
