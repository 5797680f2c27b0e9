package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"image-search-service/internal/models"
	"image-search-service/internal/util"
	"image-search-service/internal/vectorindex"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxImageBytes is the upload size cap for visual search.
const MaxImageBytes = 10 << 20

// EmbeddingExtractor converts an image into a fixed-length vector.
// Implementations distinguish "this image failed" (ErrInvalidImage) from
// "no image can be embedded" (ErrModelUnavailable).
type EmbeddingExtractor interface {
	ExtractImage(ctx context.Context, img []byte) ([]float32, error)
	Probe(ctx context.Context) error
}

// VectorIndex answers nearest-neighbor queries over stored embeddings.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, topK int) ([]vectorindex.Match, error)
	Probe(ctx context.Context) error
}

// SearchEventPublisher publishes best-effort search analytics events.
type SearchEventPublisher interface {
	PublishSearchPerformed(ctx context.Context, event *models.SearchPerformedEvent) error
}

// SearchService turns an uploaded image into a ranked list of catalog
// products by coordinating the embedding extractor and the vector index,
// tolerating partial failure of either. It owns the status controller that
// gates degraded mode.
type SearchService struct {
	store     CatalogStore
	extractor EmbeddingExtractor
	index     VectorIndex
	status    *StatusController
	events    SearchEventPublisher
	topK      int
	maxResult int
	logger    *zap.Logger
}

// NewSearchService creates a new visual search service. events may be nil
// when no broker is configured.
func NewSearchService(
	store CatalogStore,
	extractor EmbeddingExtractor,
	index VectorIndex,
	status *StatusController,
	events SearchEventPublisher,
	topK, maxResults int,
) *SearchService {
	if topK <= 0 {
		topK = 50
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearchService{
		store:     store,
		extractor: extractor,
		index:     index,
		status:    status,
		events:    events,
		topK:      topK,
		maxResult: maxResults,
		logger:    util.GetLogger(),
	}
}

// Status returns the status controller owned by this service.
func (s *SearchService) Status() *StatusController {
	return s.status
}

// SearchByImage runs the visual search pipeline. It returns the ranked
// results and a degraded flag; degraded=true with an empty result list means
// a collaborator is down, which is distinct from "nothing matched".
//
// Collaborator outages never surface as errors here; they flip the status
// flags and produce a degraded response. Only bad input (ErrInvalidImage)
// and catalog store failures are returned as errors.
func (s *SearchService) SearchByImage(ctx context.Context, img []byte) ([]models.SearchResult, bool, error) {
	ctx, span := util.StartSpan(ctx, "SearchService.SearchByImage")
	defer span.End()

	start := time.Now()

	// Fail fast and cheaply before any extraction attempt.
	if err := validateImage(img); err != nil {
		util.ImageSearchesTotal.WithLabelValues("invalid_image").Inc()
		return nil, false, err
	}

	if s.status.FallbackMode() {
		s.finish(ctx, nil, true, start)
		return nil, true, nil
	}

	embStart := time.Now()
	vector, err := s.extractor.ExtractImage(ctx, img)
	util.EmbeddingLatency.Observe(time.Since(embStart).Seconds())
	if err != nil {
		if errors.Is(err, models.ErrInvalidImage) {
			util.ImageSearchesTotal.WithLabelValues("invalid_image").Inc()
			return nil, false, err
		}
		// Anything else means extraction is down for every image; flip to
		// fallback rather than retrying within the request.
		s.logger.Warn("Embedding extraction failed", zap.Error(err))
		s.status.SetModelLoaded(false)
		s.finish(ctx, nil, true, start)
		return nil, true, nil
	}
	s.status.SetModelLoaded(true)

	vqStart := time.Now()
	matches, err := s.index.Query(ctx, vector, s.topK)
	util.VectorQueryLatency.Observe(time.Since(vqStart).Seconds())
	if err != nil {
		s.logger.Warn("Vector index query failed", zap.Error(err))
		s.status.SetVectorConnected(false)
		s.finish(ctx, nil, true, start)
		return nil, true, nil
	}
	s.status.SetVectorConnected(true)

	results, err := s.fuse(ctx, matches)
	if err != nil {
		return nil, false, err
	}

	s.finish(ctx, results, false, start)
	return results, false, nil
}

// fuse resolves vector index hits against the catalog, preserving the
// index's similarity ordering. Hits whose external id no longer resolves to
// a catalog row are dropped silently: the index and the catalog are
// eventually consistent, so staleness is expected, not exceptional.
func (s *SearchService) fuse(ctx context.Context, matches []vectorindex.Match) ([]models.SearchResult, error) {
	if len(matches) == 0 {
		return []models.SearchResult{}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ProductID)
	}

	products, err := s.store.GetProductsByExternalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		product, ok := products[m.ProductID]
		if !ok {
			util.StaleHitsDroppedTotal.Inc()
			continue
		}
		results = append(results, models.SearchResult{
			Product:         product,
			SimilarityScore: m.Similarity,
		})
		if len(results) == s.maxResult {
			break
		}
	}
	return results, nil
}

// ProbeCollaborators checks both collaborators concurrently and updates the
// status flags. A probe failure leaves the corresponding flag down. The two
// probes run on independent contexts: one probe failing must not cancel the
// other, or a healthy collaborator gets marked down by its sibling's outage.
func (s *SearchService) ProbeCollaborators(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error {
		err := s.extractor.Probe(ctx)
		s.status.SetModelLoaded(err == nil)
		return err
	})
	g.Go(func() error {
		err := s.index.Probe(ctx)
		s.status.SetVectorConnected(err == nil)
		return err
	})

	return g.Wait()
}

// finish records metrics and publishes the analytics event off the request
// path; publishing failures are logged, never surfaced.
func (s *SearchService) finish(ctx context.Context, results []models.SearchResult, degraded bool, start time.Time) {
	duration := time.Since(start)
	util.ImageSearchLatency.Observe(duration.Seconds())
	if degraded {
		util.ImageSearchesTotal.WithLabelValues("degraded").Inc()
	} else {
		util.ImageSearchesTotal.WithLabelValues("ok").Inc()
	}

	if s.events == nil {
		return
	}

	event := &models.SearchPerformedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSearchPerformed,
			Timestamp: time.Now(),
		},
		ResultCount: len(results),
		Degraded:    degraded,
		DurationMs:  duration.Milliseconds(),
	}
	if len(results) > 0 {
		event.TopSimilarity = results[0].SimilarityScore
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.PublishSearchPerformed(ctx, event); err != nil {
			s.logger.Error("Failed to publish SearchPerformed event", zap.Error(err))
		}
	}()
}

// validateImage rejects empty, oversized or undecodable uploads.
func validateImage(img []byte) error {
	if len(img) == 0 {
		return fmt.Errorf("empty file: %w", models.ErrInvalidImage)
	}
	if len(img) > MaxImageBytes {
		return fmt.Errorf("file exceeds %d bytes: %w", MaxImageBytes, models.ErrInvalidImage)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(img)); err != nil {
		return fmt.Errorf("undecodable image: %v: %w", err, models.ErrInvalidImage)
	}
	return nil
}
