package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"image-search-service/internal/broker"
	"image-search-service/internal/models"
	"image-search-service/internal/service"
	"image-search-service/internal/vectorindex"
)

// VectorWriter is the write side of the vector index.
type VectorWriter interface {
	Upsert(ctx context.Context, vectors []vectorindex.Vector) error
	DeleteIDs(ctx context.Context, ids []string) error
}

// ImageEmbedder converts image bytes into an embedding vector.
type ImageEmbedder interface {
	ExtractImage(ctx context.Context, img []byte) ([]float32, error)
}

// IndexSyncWorker consumes catalog-change events and keeps the vector index
// eventually consistent with the catalog: deleted products lose their
// vectors, updated images get re-embedded and upserted.
type IndexSyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	index        VectorWriter
	embedder     ImageEmbedder
	httpClient   *http.Client
}

// NewIndexSyncWorker creates a new index sync worker
func NewIndexSyncWorker(consumer *broker.Consumer, index VectorWriter, embedder ImageEmbedder) *IndexSyncWorker {
	w := &IndexSyncWorker{
		consumer:   consumer,
		index:      index,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnProductDeleted(w.handleProductDeleted)
	eventHandler.OnProductImageUpdated(w.handleProductImageUpdated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *IndexSyncWorker) Start(ctx context.Context) error {
	log.Println("Starting index sync worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *IndexSyncWorker) Stop() error {
	log.Println("Stopping index sync worker...")
	return w.consumer.Close()
}

func (w *IndexSyncWorker) handleProductDeleted(ctx context.Context, event *models.ProductDeletedEvent) error {
	if event.ProductID == "" {
		return nil
	}
	log.Printf("Removing vector for deleted product: %s", event.ProductID)
	return w.index.DeleteIDs(ctx, []string{event.ProductID})
}

func (w *IndexSyncWorker) handleProductImageUpdated(ctx context.Context, event *models.ProductImageUpdatedEvent) error {
	if event.ProductID == "" || event.ImageURL == "" {
		return nil
	}

	img, err := w.fetchImage(ctx, event.ImageURL)
	if err != nil {
		return fmt.Errorf("fetch image for %s: %w", event.ProductID, err)
	}

	vector, err := w.embedder.ExtractImage(ctx, img)
	if err != nil {
		return fmt.Errorf("embed image for %s: %w", event.ProductID, err)
	}

	log.Printf("Re-indexing vector for product: %s", event.ProductID)
	return w.index.Upsert(ctx, []vectorindex.Vector{{ID: event.ProductID, Values: vector}})
}

func (w *IndexSyncWorker) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch http %d", resp.StatusCode)
	}

	// Read one byte past the cap so an oversized image is rejected instead
	// of being truncated into corrupt bytes.
	img, err := io.ReadAll(io.LimitReader(resp.Body, service.MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(img) > service.MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", service.MaxImageBytes)
	}
	return img, nil
}

// StatusWorker periodically re-probes the search collaborators so fallback
// mode can recover from transient outages without waiting for user traffic.
type StatusWorker struct {
	search   *service.SearchService
	interval time.Duration
}

// NewStatusWorker creates a new status worker
func NewStatusWorker(search *service.SearchService, interval time.Duration) *StatusWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatusWorker{search: search, interval: interval}
}

// Start runs the probe loop until the context is cancelled
func (sw *StatusWorker) Start(ctx context.Context) error {
	log.Println("Starting status probe worker...")

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Status worker context cancelled, stopping...")
			return ctx.Err()
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, sw.interval/2)
			if err := sw.search.ProbeCollaborators(probeCtx); err != nil {
				log.Printf("Collaborator probe failed: %v", err)
			}
			cancel()
		}
	}
}
