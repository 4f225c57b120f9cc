package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/siteporter/siteporter-backend/config"
	"github.com/siteporter/siteporter-backend/internal/analyzer"
	"github.com/siteporter/siteporter-backend/internal/extractor"
	"github.com/siteporter/siteporter-backend/internal/migration/repository"
	"github.com/siteporter/siteporter-backend/internal/migration/service"
	"github.com/siteporter/siteporter-backend/internal/queue"
	"github.com/siteporter/siteporter-backend/internal/render"
	"github.com/siteporter/siteporter-backend/internal/similarity"
	"github.com/siteporter/siteporter-backend/internal/storage/objectstore"
	"github.com/siteporter/siteporter-backend/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("failed to build object store: %v", err)
	}

	renderer := render.NewChromeRenderer()
	defer renderer.Close()

	retry := analyzer.DefaultRetryPolicy()
	if cfg.Analyzer.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Analyzer.MaxAttempts
	}
	analyzerClient := analyzer.NewCachingClient(
		analyzer.NewHTTPClient(cfg.Analyzer.BaseURL, cfg.Analyzer.APIKey, retry), rdb)

	checker := similarity.NewChecker(analyzerClient,
		similarity.WithTargetScore(cfg.Pipeline.TargetScore))

	migrations := repository.NewMigrationRepository(db)
	documents := repository.NewDocumentRepository(db)
	reports := repository.NewReportRepository(db)
	jobs := queue.NewQueue(rdb)

	limits := extractor.Limits{
		MaxPages:     cfg.Pipeline.MaxPages,
		MaxDepth:     cfg.Pipeline.MaxCrawlDepth,
		PageWorkers:  cfg.Pipeline.PageWorkers,
		AssetWorkers: cfg.Pipeline.AssetWorkers,
	}

	orchestrator := service.NewOrchestrator(
		migrations, documents, reports, jobs,
		renderer, store, analyzerClient, checker, limits)

	worker := service.NewWorker(jobs, orchestrator, cfg.Pipeline.WorkerPoolSize)

	sweeper := service.NewSweeper(migrations, jobs, cfg.Pipeline.SweepMinAge)
	if err := sweeper.Start(cfg.Pipeline.SweepSchedule); err != nil {
		log.Fatalf("failed to start requeue sweeper: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	log.Printf("worker started, pool_size=%d", cfg.Pipeline.WorkerPoolSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down worker")
	cancel()
	sweeper.Stop()
	worker.Stop()
}

// buildStore prefers S3; an empty bucket name selects the in-memory
// store, which only makes sense for local development.
func buildStore(cfg *config.Config) (objectstore.Store, error) {
	if cfg.Storage.Bucket == "" {
		log.Println("no ASSET_BUCKET configured, using in-memory object store")
		return objectstore.NewMemoryStore(), nil
	}
	return objectstore.NewS3Store(context.Background(), objectstore.S3Options{
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
	})
}
