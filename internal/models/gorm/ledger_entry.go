package gorm

import "time"

// LedgerEntry is one row of the append-updated migration ledger.
// StepID is deterministic (operation + target), so a re-run resolves to
// the same row. committed is terminal; failed may return to started.
type LedgerEntry struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	StepID string `gorm:"column:step_id;type:varchar(100);not null;uniqueIndex"`
	RunID  string `gorm:"column:run_id;type:varchar(36);not null"`

	// started | committed | failed
	Status    string `gorm:"column:status;type:varchar(20);not null"`
	Checksum  string `gorm:"column:checksum;type:varchar(64)"`
	LastError string `gorm:"column:last_error;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (LedgerEntry) TableName() string {
	return "migration_ledger"
}
