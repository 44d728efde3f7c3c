package gorm

import "time"

// AssetReference tracks one unique source image and where it moved.
// Many dependent rows may point at the same source URL; relocation
// happens once per row here.
type AssetReference struct {
	ID                 int64   `gorm:"column:id;primaryKey;autoIncrement"`
	SourceURL          string  `gorm:"column:source_url;type:text;not null;uniqueIndex"`
	TargetURL          *string `gorm:"column:target_url;type:text"`
	ContentFingerprint string  `gorm:"column:content_fingerprint;type:varchar(64)"`
	ContentType        string  `gorm:"column:content_type;type:varchar(100)"`
	Category           string  `gorm:"column:category;type:varchar(50);not null"`

	// pending | migrated | skipped | failed
	Status    string `gorm:"column:status;type:varchar(20);not null;default:pending"`
	LastError string `gorm:"column:last_error;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (AssetReference) TableName() string {
	return "asset_references"
}
