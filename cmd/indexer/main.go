package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"image-search-service/config"
	"image-search-service/internal/embedding"
	"image-search-service/internal/util"
	"image-search-service/internal/vectorindex"

	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
)

// manifestRow is one line of the indexing manifest: which image file holds
// the visual representation of which product.
type manifestRow struct {
	ProductID string `csv:"product_id"`
	ImagePath string `csv:"image_path"`
}

const (
	upsertBatchSize  = 64
	embedConcurrency = 4
)

// The indexer embeds catalog images and upserts them into the vector index.
// It is idempotent: re-running it overwrites existing vectors.
func main() {
	manifestPath := flag.String("manifest", "fashion_data/manifest.csv", "CSV manifest of product_id,image_path")
	imagesRoot := flag.String("images", "", "base directory resolved against relative image paths")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	embeddingClient := embedding.NewClient(cfg.Embedding.Endpoint, cfg.Embedding.Timeout)

	vectorClient, err := vectorindex.NewClient(vectorindex.Config{
		APIKey:     cfg.Pinecone.APIKey,
		BaseURL:    cfg.Pinecone.BaseURL,
		APIVersion: cfg.Pinecone.APIVersion,
		IndexName:  cfg.Pinecone.IndexName,
		IndexHost:  cfg.Pinecone.IndexHost,
		Namespace:  cfg.Pinecone.Namespace,
		Timeout:    cfg.Pinecone.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create vector index client: %v", err)
	}

	rows, err := loadManifest(*manifestPath)
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}
	log.Printf("Indexing %d products from %s", len(rows), *manifestPath)

	ctx := context.Background()
	if err := vectorClient.Probe(ctx); err != nil {
		log.Fatalf("Vector index unreachable: %v", err)
	}

	start := time.Now()
	indexed, failed := run(ctx, rows, *imagesRoot, embeddingClient, vectorClient)
	log.Printf("Indexing complete: indexed=%d failed=%d elapsed=%s", indexed, failed, time.Since(start))

	if failed > 0 {
		os.Exit(1)
	}
}

func loadManifest(path string) ([]manifestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []manifestRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// run embeds images with bounded concurrency and upserts vectors in batches.
func run(ctx context.Context, rows []manifestRow, imagesRoot string, embedder *embedding.Client, index *vectorindex.Client) (indexed, failed int) {
	var mu sync.Mutex
	batch := make([]vectorindex.Vector, 0, upsertBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := index.Upsert(ctx, batch); err != nil {
			log.Printf("Upsert of %d vectors failed: %v", len(batch), err)
			failed += len(batch)
		} else {
			indexed += len(batch)
		}
		batch = batch[:0]
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for _, row := range rows {
		row := row
		g.Go(func() error {
			img, err := os.ReadFile(filepath.Join(imagesRoot, row.ImagePath))
			if err != nil {
				log.Printf("Skipping %s: %v", row.ProductID, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			vector, err := embedder.ExtractImage(gctx, img)
			if err != nil {
				log.Printf("Embedding failed for %s: %v", row.ProductID, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			batch = append(batch, vectorindex.Vector{ID: row.ProductID, Values: vector})
			if len(batch) >= upsertBatchSize {
				flush()
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	mu.Lock()
	flush()
	mu.Unlock()

	return indexed, failed
}
