package models

import "time"

// Event types
const (
	EventTypeSearchPerformed     = "SEARCH_PERFORMED"
	EventTypeProductDeleted      = "PRODUCT_DELETED"
	EventTypeProductImageUpdated = "PRODUCT_IMAGE_UPDATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SearchPerformedEvent is published after every visual search attempt,
// degraded or not. Best-effort analytics; publishing failures never fail
// the request.
type SearchPerformedEvent struct {
	BaseEvent
	ResultCount   int     `json:"result_count"`
	TopSimilarity float64 `json:"top_similarity"`
	Degraded      bool    `json:"degraded"`
	DurationMs    int64   `json:"duration_ms"`
}

// ProductDeletedEvent is emitted by the catalog ingestion pipeline when a
// product is removed; the index sync worker deletes its vector.
type ProductDeletedEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
}

// ProductImageUpdatedEvent is emitted when a product's primary image
// changes; the index sync worker re-embeds and upserts the vector.
type ProductImageUpdatedEvent struct {
	BaseEvent
	ProductID string `json:"product_id"`
	ImageURL  string `json:"image_url"`
}
