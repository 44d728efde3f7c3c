package repositories

import (
	"context"

	gormlib "gorm.io/gorm"

	"kgay-travel/shoreline/internal/constants"
	models "kgay-travel/shoreline/internal/models/gorm"
)

// AssetRepo tracks asset references and their relocation status
type AssetRepo struct {
	db *gormlib.DB
}

func NewAssetRepo(db *gormlib.DB) *AssetRepo {
	return &AssetRepo{db: db}
}

// Ensure returns the reference row for a source URL, creating a pending
// row on first sight.
func (r *AssetRepo) Ensure(ctx context.Context, sourceURL string, category string) (*models.AssetReference, error) {
	asset := models.AssetReference{
		SourceURL: sourceURL,
		Category:  category,
		Status:    constants.AssetStatusPending,
	}

	err := r.db.WithContext(ctx).
		Where("source_url = ?", sourceURL).
		FirstOrCreate(&asset).Error
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// MarkMigrated records a completed transfer
func (r *AssetRepo) MarkMigrated(ctx context.Context, sourceURL string, targetURL string, fingerprint string, contentType string) error {
	return r.db.WithContext(ctx).
		Model(&models.AssetReference{}).
		Where("source_url = ?", sourceURL).
		Updates(map[string]interface{}{
			"status":              constants.AssetStatusMigrated,
			"target_url":          targetURL,
			"content_fingerprint": fingerprint,
			"content_type":        contentType,
			"last_error":          "",
		}).Error
}

// MarkFailed records a terminal transfer failure for operator review
func (r *AssetRepo) MarkFailed(ctx context.Context, sourceURL string, cause string) error {
	return r.db.WithContext(ctx).
		Model(&models.AssetReference{}).
		Where("source_url = ?", sourceURL).
		Updates(map[string]interface{}{
			"status":     constants.AssetStatusFailed,
			"last_error": cause,
		}).Error
}

// GetBySource fetches one asset reference, nil when absent
func (r *AssetRepo) GetBySource(ctx context.Context, sourceURL string) (*models.AssetReference, error) {
	var asset models.AssetReference
	err := r.db.WithContext(ctx).
		Where("source_url = ?", sourceURL).
		First(&asset).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

// ListFailed returns assets needing operator review
func (r *AssetRepo) ListFailed(ctx context.Context) ([]models.AssetReference, error) {
	var assets []models.AssetReference
	err := r.db.WithContext(ctx).
		Where("status = ?", constants.AssetStatusFailed).
		Order("id").
		Find(&assets).Error
	return assets, err
}

// MigratedMappings returns source->target for every migrated asset,
// used to rewrite image references after relocation.
func (r *AssetRepo) MigratedMappings(ctx context.Context) (map[string]string, error) {
	var assets []models.AssetReference
	err := r.db.WithContext(ctx).
		Where("status = ? AND target_url IS NOT NULL", constants.AssetStatusMigrated).
		Find(&assets).Error
	if err != nil {
		return nil, err
	}

	mappings := make(map[string]string, len(assets))
	for _, asset := range assets {
		if asset.TargetURL != nil {
			mappings[asset.SourceURL] = *asset.TargetURL
		}
	}
	return mappings, nil
}
