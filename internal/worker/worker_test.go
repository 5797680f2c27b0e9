package worker

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"image-search-service/internal/models"
	"image-search-service/internal/service"
	"image-search-service/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVectorWriter struct {
	upserted []vectorindex.Vector
	deleted  []string
}

func (f *fakeVectorWriter) Upsert(_ context.Context, vectors []vectorindex.Vector) error {
	f.upserted = append(f.upserted, vectors...)
	return nil
}

func (f *fakeVectorWriter) DeleteIDs(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type fakeEmbedder struct {
	vector []float32
	calls  int
}

func (f *fakeEmbedder) ExtractImage(context.Context, []byte) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

func TestHandleProductDeletedRemovesVector(t *testing.T) {
	index := &fakeVectorWriter{}
	w := NewIndexSyncWorker(nil, index, &fakeEmbedder{})

	err := w.handleProductDeleted(context.Background(), &models.ProductDeletedEvent{ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, index.deleted)
}

func TestHandleProductImageUpdatedReindexes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	index := &fakeVectorWriter{}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	w := NewIndexSyncWorker(nil, index, embedder)

	err := w.handleProductImageUpdated(context.Background(), &models.ProductImageUpdatedEvent{
		ProductID: "p1",
		ImageURL:  srv.URL,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls)
	require.Len(t, index.upserted, 1)
	assert.Equal(t, "p1", index.upserted[0].ID)
	assert.Equal(t, []float32{0.1, 0.2}, index.upserted[0].Values)
}

func TestHandleProductImageUpdatedRejectsOversizedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), service.MaxImageBytes+1))
	}))
	defer srv.Close()

	index := &fakeVectorWriter{}
	embedder := &fakeEmbedder{vector: []float32{0.1}}
	w := NewIndexSyncWorker(nil, index, embedder)

	err := w.handleProductImageUpdated(context.Background(), &models.ProductImageUpdatedEvent{
		ProductID: "p1",
		ImageURL:  srv.URL,
	})
	require.Error(t, err)

	// Truncated bytes must never reach the embedder or the index.
	assert.Zero(t, embedder.calls)
	assert.Empty(t, index.upserted)
}
