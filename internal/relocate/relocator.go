package relocate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"kgay-travel/shoreline/internal/common"
	"kgay-travel/shoreline/internal/constants"
	"kgay-travel/shoreline/internal/db/repositories"
	"kgay-travel/shoreline/internal/logging"
	"kgay-travel/shoreline/internal/metrics"
)

const (
	cacheKeyPrefix = "asset:"
	cacheTTL       = 24 * time.Hour
)

// SourceAsset is one unique source URL queued for relocation
type SourceAsset struct {
	URL      string
	Category string
}

// Result is the terminal outcome for one source URL. A failed transfer
// yields the placeholder URL so callers keep a usable reference.
type Result struct {
	SourceURL   string
	TargetURL   string
	Status      string
	Fingerprint string
	Deduped     bool
}

// Summary aggregates a batch of relocations
type Summary struct {
	Migrated int
	Deduped  int
	Failed   int
	Failures []string
}

// Relocator moves binary assets from a source store to a target store,
// deduplicating by source URL. Concurrent callers for the same URL
// collapse onto one transfer; the losers reuse the winner's result.
type Relocator struct {
	source         BlobStore
	target         BlobStore
	cache          common.CacheInterface
	assets         *repositories.AssetRepo
	retry          common.RetryPolicy
	limiter        *rate.Limiter
	placeholderURL string

	flight singleflight.Group
}

func NewRelocator(
	source BlobStore,
	target BlobStore,
	cache common.CacheInterface,
	assets *repositories.AssetRepo,
	placeholderURL string,
	downloadsPerSec int,
) *Relocator {
	if downloadsPerSec <= 0 {
		downloadsPerSec = 10
	}
	return &Relocator{
		source:         source,
		target:         target,
		cache:          cache,
		assets:         assets,
		retry:          common.DefaultRetryPolicy(),
		limiter:        rate.NewLimiter(rate.Limit(downloadsPerSec), downloadsPerSec),
		placeholderURL: placeholderURL,
	}
}

// PlaceholderURL returns the fallback reference written for assets
// whose source could not be transferred.
func (r *Relocator) PlaceholderURL() string {
	return r.placeholderURL
}

// Relocate moves one asset and returns its terminal result. The only
// error it returns is cancellation or a storage-layer fault; a broken
// source image resolves to the placeholder instead of an error.
func (r *Relocator) Relocate(ctx context.Context, sourceURL string, category string) (Result, error) {
	cacheKey := cacheKeyPrefix + sourceURL

	if val, found := r.cache.Get(cacheKey); found {
		if target, ok := val.(string); ok && target != "" {
			metrics.Default().AssetDedupHitsTotal.Inc()
			metrics.Default().CacheHitsTotal.WithLabelValues(cacheKeyPrefix + "*").Inc()
			return Result{
				SourceURL: sourceURL,
				TargetURL: target,
				Status:    constants.AssetStatusSkipped,
				Deduped:   true,
			}, nil
		}
	}
	metrics.Default().CacheMissesTotal.WithLabelValues(cacheKeyPrefix + "*").Inc()

	val, err, shared := r.flight.Do(sourceURL, func() (interface{}, error) {
		return r.transfer(ctx, sourceURL, category)
	})
	if err != nil {
		return Result{}, err
	}

	result := val.(Result)
	if shared {
		// Lost the in-flight race; the winner already moved the bytes
		result.Deduped = true
	}
	return result, nil
}

func (r *Relocator) transfer(ctx context.Context, sourceURL string, category string) (Result, error) {
	// A concurrent worker may have finished while we queued
	if val, found := r.cache.Get(cacheKeyPrefix + sourceURL); found {
		if target, ok := val.(string); ok && target != "" {
			metrics.Default().AssetDedupHitsTotal.Inc()
			return Result{
				SourceURL: sourceURL,
				TargetURL: target,
				Status:    constants.AssetStatusSkipped,
				Deduped:   true,
			}, nil
		}
	}

	if _, err := r.assets.Ensure(ctx, sourceURL, category); err != nil {
		return Result{}, err
	}

	start := time.Now()

	if err := r.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	var data []byte
	var contentType string
	err := r.retry.Do(ctx, "download", func() error {
		var downloadErr error
		data, contentType, downloadErr = r.source.Download(ctx, sourceURL)
		return downloadErr
	})
	if err != nil {
		return r.fail(ctx, sourceURL, err)
	}

	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])

	targetPath := TargetPath(category, sourceURL)
	var targetURL string
	err = r.retry.Do(ctx, "upload", func() error {
		var uploadErr error
		targetURL, uploadErr = r.target.Upload(ctx, targetPath, data, contentType)
		return uploadErr
	})
	if err != nil {
		return r.fail(ctx, sourceURL, err)
	}

	if err := r.assets.MarkMigrated(ctx, sourceURL, targetURL, fingerprint, contentType); err != nil {
		return Result{}, err
	}

	// Populate the dedup cache last so only a committed transfer is reused
	r.cache.Set(cacheKeyPrefix+sourceURL, targetURL, cacheTTL)

	metrics.Default().AssetsRelocatedTotal.WithLabelValues(constants.AssetStatusMigrated).Inc()
	metrics.Default().AssetTransferDuration.Observe(time.Since(start).Seconds())

	logging.Debug("Asset relocated",
		"source", sourceURL,
		"target", targetURL,
		"bytes", len(data),
	)

	return Result{
		SourceURL:   sourceURL,
		TargetURL:   targetURL,
		Status:      constants.AssetStatusMigrated,
		Fingerprint: fingerprint,
	}, nil
}

// fail downgrades an unrecoverable transfer to a placeholder reference.
// Cancellation still propagates so a stop signal ends the batch.
func (r *Relocator) fail(ctx context.Context, sourceURL string, cause error) (Result, error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return Result{}, cause
	}

	logging.Warn("Asset relocation failed, using placeholder",
		"source", sourceURL,
		"error", cause.Error(),
	)

	if err := r.assets.MarkFailed(ctx, sourceURL, cause.Error()); err != nil {
		return Result{}, err
	}
	metrics.Default().AssetsRelocatedTotal.WithLabelValues(constants.AssetStatusFailed).Inc()

	return Result{
		SourceURL: sourceURL,
		TargetURL: r.placeholderURL,
		Status:    constants.AssetStatusFailed,
	}, nil
}

// RelocateAll moves a batch of unique assets through a bounded worker
// pool. Per-asset failures are accumulated, not fatal; the first
// cancellation or storage fault stops the pool.
func (r *Relocator) RelocateAll(ctx context.Context, sources []SourceAsset, workers int) (*Summary, map[string]string, error) {
	if workers <= 0 {
		workers = 6
	}

	summary := &Summary{}
	mappings := make(map[string]string, len(sources))
	counted := make(map[string]bool, len(sources))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, source := range sources {
		source := source
		g.Go(func() error {
			result, err := r.Relocate(ctx, source.URL, source.Category)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()

			// Terminal statuses count once per unique source URL; every
			// repeat sighting, shared flight or not, is a dedup hit
			switch {
			case counted[result.SourceURL]:
				summary.Deduped++
			case result.Status == constants.AssetStatusFailed:
				counted[result.SourceURL] = true
				summary.Failed++
				summary.Failures = append(summary.Failures, result.SourceURL)
			case result.Deduped:
				counted[result.SourceURL] = true
				summary.Deduped++
			default:
				counted[result.SourceURL] = true
				summary.Migrated++
			}
			if result.TargetURL != "" {
				mappings[result.SourceURL] = result.TargetURL
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, mappings, err
	}
	return summary, mappings, nil
}
