package repositories

import (
	"context"
	"errors"
	"fmt"

	gormlib "gorm.io/gorm"

	"kgay-travel/shoreline/internal/constants"
	models "kgay-travel/shoreline/internal/models/gorm"
)

// ErrStepCommitted is returned when a start is attempted on a step that
// already committed. committed is terminal; the orchestrator must skip.
var ErrStepCommitted = errors.New(constants.GetErrorMessage(constants.ErrCodeStepCommitted))

// LedgerRepo persists step completion so an interrupted run resumes
// cleanly: committed steps are skipped, failed ones retried from scratch.
type LedgerRepo struct {
	db *gormlib.DB
}

func NewLedgerRepo(db *gormlib.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// HasCompleted reports whether a step has already committed
func (r *LedgerRepo) HasCompleted(ctx context.Context, stepID string) (bool, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("step_id = ?", stepID).
		First(&entry).Error
	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return false, nil
		}
		return false, err
	}
	return entry.Status == constants.StepStatusCommitted, nil
}

// RecordStart transitions a step to started. Valid from not-started and
// failed (the retry path); starting a committed step is an error.
func (r *LedgerRepo) RecordStart(ctx context.Context, runID string, stepID string) error {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("step_id = ?", stepID).
		First(&entry).Error

	if err == gormlib.ErrRecordNotFound {
		entry = models.LedgerEntry{
			StepID: stepID,
			RunID:  runID,
			Status: constants.StepStatusStarted,
		}
		return r.db.WithContext(ctx).Create(&entry).Error
	}
	if err != nil {
		return err
	}

	if entry.Status == constants.StepStatusCommitted {
		return fmt.Errorf("step %s: %w", stepID, ErrStepCommitted)
	}

	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("step_id = ?", stepID).
		Updates(map[string]interface{}{
			"status":     constants.StepStatusStarted,
			"run_id":     runID,
			"last_error": "",
		}).Error
}

// RecordCommit marks a step committed with an optional verification checksum
func (r *LedgerRepo) RecordCommit(ctx context.Context, stepID string, checksum string) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("step_id = ?", stepID).
		Updates(map[string]interface{}{
			"status":   constants.StepStatusCommitted,
			"checksum": checksum,
		}).Error
}

// RecordFailure marks a step failed; the next run retries it from scratch
func (r *LedgerRepo) RecordFailure(ctx context.Context, stepID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("step_id = ?", stepID).
		Updates(map[string]interface{}{
			"status":     constants.StepStatusFailed,
			"last_error": msg,
		}).Error
}

// Entries returns the full ledger ordered by step creation
func (r *LedgerRepo) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).Order("id").Find(&entries).Error
	return entries, err
}
