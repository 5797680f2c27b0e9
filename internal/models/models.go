package models

import "time"

// Product represents a catalog product. ID is the internal surrogate key;
// ProductID is the stable external identifier assigned at ingestion and is
// what the API and the vector index refer to.
type Product struct {
	ID          string    `db:"id" json:"-"`
	ProductID   string    `db:"product_id" json:"id"`
	Title       string    `db:"product_title" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Category    string    `db:"category" json:"category"`
	SubCategory *string   `db:"sub_category" json:"sub_category,omitempty"`
	ProductType *string   `db:"product_type" json:"product_type,omitempty"`
	Gender      *string   `db:"gender" json:"gender,omitempty"`
	Colour      *string   `db:"colour" json:"colour,omitempty"`
	Brand       *string   `db:"brand" json:"brand,omitempty"`
	Price       float64   `db:"price" json:"price"`
	InStock     bool      `db:"in_stock" json:"in_stock"`
	ImageURL    *string   `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProductImage belongs to exactly one product. At most one image should be
// primary, but queries pick the first found rather than assuming that holds.
type ProductImage struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	IsPrimary bool      `db:"is_primary" json:"is_primary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SearchResult is a product scored by visual similarity, in [0,1],
// higher is more similar. Constructed per request, never persisted.
type SearchResult struct {
	Product
	SimilarityScore float64 `json:"similarity_score"`
}

// Gender enumeration
const (
	GenderMen    = "Men"
	GenderWomen  = "Women"
	GenderUnisex = "Unisex"
)

// SortField is the catalog sort key.
type SortField string

const (
	SortByName       SortField = "name"
	SortByPrice      SortField = "price"
	SortByCreatedAt  SortField = "created_at"
	SortByPopularity SortField = "popularity"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterSpec captures the catalog filter axes. Zero values mean
// "no filtering on that axis"; any combination is legal.
type FilterSpec struct {
	Search      string   `json:"search,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Category    string   `json:"category,omitempty"`
	SubCategory string   `json:"sub_category,omitempty"`
	ProductType string   `json:"product_type,omitempty"`
	Colour      string   `json:"colour,omitempty"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
	InStock     *bool    `json:"in_stock,omitempty"`
}

// SortSpec is the requested ordering. The store always appends the
// product identifier as the final sort key for deterministic pagination.
type SortSpec struct {
	Field SortField `json:"sort_by"`
	Order SortOrder `json:"sort_order"`
}

// DefaultSortSpec returns the default ordering (name ascending).
func DefaultSortSpec() SortSpec {
	return SortSpec{Field: SortByName, Order: SortAsc}
}

// PageSpec is a 1-based page request.
type PageSpec struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Page bounds
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DefaultPageSpec returns the default page request (page 1, 20 items).
func DefaultPageSpec() PageSpec {
	return PageSpec{Page: DefaultPage, PageSize: DefaultPageSize}
}

// PaginationMeta describes the page window of a catalog listing.
type PaginationMeta struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPaginationMeta computes pagination metadata for a filtered total.
// TotalPages is never below 1, even for an empty result set.
func NewPaginationMeta(page PageSpec, totalItems int) PaginationMeta {
	totalPages := (totalItems + page.PageSize - 1) / page.PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return PaginationMeta{
		Page:        page.Page,
		PageSize:    page.PageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page.Page < totalPages,
		HasPrevious: page.Page > 1,
	}
}

// AppliedFilters echoes back the effective query parameters of a listing.
type AppliedFilters struct {
	FilterSpec
	SortBy    SortField `json:"sort_by"`
	SortOrder SortOrder `json:"sort_order"`
	Page      int       `json:"page"`
	PageSize  int       `json:"page_size"`
}

// ServiceStatus reports collaborator health for visual search.
// FallbackMode is derived: true when either collaborator is down.
type ServiceStatus struct {
	ModelLoaded       bool `json:"model_loaded"`
	PineconeConnected bool `json:"pinecone_connected"`
	FallbackMode      bool `json:"fallback_mode"`
}
