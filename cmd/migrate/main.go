package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kgay-travel/shoreline/internal/api"
	"kgay-travel/shoreline/internal/common"
	"kgay-travel/shoreline/internal/config"
	"kgay-travel/shoreline/internal/db"
	"kgay-travel/shoreline/internal/db/repositories"
	"kgay-travel/shoreline/internal/jobs"
	"kgay-travel/shoreline/internal/logging"
	"kgay-travel/shoreline/internal/metrics"
	"kgay-travel/shoreline/internal/relocate"
	"kgay-travel/shoreline/internal/verify"
)

func main() {
	mode := flag.String("mode", "dry-run", "run mode: dry-run or apply")
	resume := flag.Bool("resume", true, "skip steps the ledger already recorded as committed")
	workers := flag.Int("workers", 0, "concurrent asset transfers (0 uses MIGRATE_WORKERS)")
	flag.Parse()

	cfg := config.Load()

	if err := logging.Init(cfg.AppEnv); err != nil {
		os.Exit(1)
	}
	defer logging.Close()

	if *mode != string(jobs.ModeDryRun) && *mode != string(jobs.ModeApply) {
		logging.Fatal("Invalid run mode", "mode", *mode)
	}

	logging.Info("Shoreline migration starting",
		"environment", cfg.AppEnv,
		"mode", *mode,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	if err := db.InitPostgres(cfg.DSN()); err != nil {
		logging.Fatal("Failed to connect to Postgres (sqlx)", "error", err.Error())
	}
	logging.Info("Connected to Postgres (sqlx)")

	// Ops endpoints stay up for the duration of the batch run
	metrics.Default()
	go serveOps(cfg.MetricsAddr)

	gormDB, err := db.InitPostgresORM(cfg.DSN())
	if err != nil {
		logging.Fatal("Failed to connect to Postgres (GORM)", "error", err.Error())
	}

	cache, err := buildCache(cfg)
	if err != nil {
		logging.Fatal("Failed to initialize dedup cache", "backend", cfg.CacheBackend, "error", err.Error())
	}
	defer cache.Close()

	store := relocate.NewHTTPBlobStore(cfg.BlobUploadBase, cfg.BlobPublicBase)
	assetRepo := repositories.NewAssetRepo(gormDB)
	relocator := relocate.NewRelocator(store, store, cache, assetRepo, cfg.PlaceholderURL, cfg.DownloadsPerSec)

	poolSize := *workers
	if poolSize <= 0 {
		poolSize = cfg.Workers
	}

	job := jobs.NewConsolidationJob(
		db.DB,
		repositories.NewEntityRepo(db.DB),
		repositories.NewAliasRepo(db.DB),
		repositories.NewLedgerRepo(gormDB),
		relocator,
		verify.NewVerifier(db.DB),
		jobs.Options{
			Mode:         jobs.Mode(*mode),
			Resume:       *resume,
			Workers:      poolSize,
			TargetPrefix: cfg.BlobPublicBase,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := job.Run(ctx)
	logSummary(summary)

	if err != nil {
		logging.Error("Run did not complete", "run_id", summary.RunID, "error", err.Error())
		os.Exit(1)
	}
}

func buildCache(cfg *config.Config) (common.CacheInterface, error) {
	if cfg.CacheBackend == "redis" {
		return common.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	// Run-scoped in-memory cache: 1h default TTL, 10m cleanup
	return common.NewCacheService(3600, 600), nil
}

func serveOps(addr string) {
	router := api.NewOpsRouter(db.DB, time.Now())
	if err := http.ListenAndServe(addr, router); err != nil {
		logging.Warn("Ops endpoint stopped", "error", err.Error())
	}
}

func logSummary(summary *jobs.RunSummary) {
	for _, step := range summary.Steps {
		logging.Info("Step summary",
			"run_id", summary.RunID,
			"step_id", step.StepID,
			"skipped", step.Skipped,
			"updated", step.Updated,
			"unmatched", step.Unmatched,
			"ambiguous", step.Ambiguous,
			"created", step.Created,
			"assets_migrated", step.AssetsMigrated,
			"assets_deduped", step.AssetsDeduped,
			"assets_failed", step.AssetsFailed,
			"refs_rewritten", step.RefsRewritten,
		)
	}
	logging.Info("Run summary",
		"run_id", summary.RunID,
		"mode", string(summary.Mode),
		"duration", summary.Duration.Truncate(time.Millisecond).String(),
		"steps", len(summary.Steps),
	)
}
