package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-search-service/config"
	"image-search-service/internal/api"
	"image-search-service/internal/broker"
	"image-search-service/internal/embedding"
	"image-search-service/internal/redisclient"
	"image-search-service/internal/service"
	"image-search-service/internal/store"
	"image-search-service/internal/util"
	"image-search-service/internal/vectorindex"
	"image-search-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting image search service")

	tp, err := util.InitTracer("image-search-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// The enumeration cache is an optimization; catalog browsing must work
	// without it.
	var cache service.EnumerationCache
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("Redis unavailable, enumeration caching disabled: %v", err)
	} else {
		defer redisClient.Close()
		cache = redisClient
		log.Println("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSearch)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	log.Println("Kafka producer initialized")

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

	productService := service.NewProductService(db, cache, cfg.Search.DistinctCacheTTL)
	statusController := service.NewStatusController()
	searchService := service.NewSearchService(
		db, embeddingClient, vectorClient, statusController, eventPublisher,
		cfg.Search.TopK, cfg.Search.MaxResults,
	)

	// Best-effort startup probe; failure just leaves the service in
	// fallback mode until collaborators come up.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := searchService.ProbeCollaborators(probeCtx); err != nil {
		log.Printf("Startup probe found collaborators degraded: %v", err)
	}
	probeCancel()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	catalogConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog, cfg.Kafka.ConsumerGroup)
	indexSyncWorker := worker.NewIndexSyncWorker(catalogConsumer, vectorClient, embeddingClient)
	go func() {
		if err := indexSyncWorker.Start(workerCtx); err != nil {
			log.Printf("Index sync worker error: %v", err)
		}
	}()

	statusWorker := worker.NewStatusWorker(searchService, cfg.Search.ProbeInterval)
	go func() {
		if err := statusWorker.Start(workerCtx); err != nil {
			log.Printf("Status worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(productService, searchService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	indexSyncWorker.Stop()

	log.Println("Server exited")
}
