package repositories

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kgay-travel/shoreline/internal/constants"
	models "kgay-travel/shoreline/internal/models/gorm"
)

func openTestORM(t *testing.T) *gormlib.DB {
	t.Helper()

	db, err := gormlib.Open(sqlite.Open(":memory:"), &gormlib.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.LedgerEntry{}, &models.AssetReference{}); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	return db
}

func TestLedger_StartCommitLifecycle(t *testing.T) {
	repo := NewLedgerRepo(openTestORM(t))
	ctx := context.Background()

	done, err := repo.HasCompleted(ctx, "normalize:itinerary.port_id")
	if err != nil {
		t.Fatalf("HasCompleted failed: %v", err)
	}
	if done {
		t.Fatal("fresh step must not be completed")
	}

	if err := repo.RecordStart(ctx, "run-1", "normalize:itinerary.port_id"); err != nil {
		t.Fatalf("RecordStart failed: %v", err)
	}
	if err := repo.RecordCommit(ctx, "normalize:itinerary.port_id", "abc123"); err != nil {
		t.Fatalf("RecordCommit failed: %v", err)
	}

	done, err = repo.HasCompleted(ctx, "normalize:itinerary.port_id")
	if err != nil {
		t.Fatalf("HasCompleted failed: %v", err)
	}
	if !done {
		t.Error("committed step must report completed")
	}

	entries, err := repo.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(entries))
	}
	if entries[0].Checksum != "abc123" {
		t.Errorf("checksum not recorded: %q", entries[0].Checksum)
	}
}

func TestLedger_CommittedIsTerminal(t *testing.T) {
	repo := NewLedgerRepo(openTestORM(t))
	ctx := context.Background()

	if err := repo.RecordStart(ctx, "run-1", "seed:aliases"); err != nil {
		t.Fatalf("RecordStart failed: %v", err)
	}
	if err := repo.RecordCommit(ctx, "seed:aliases", ""); err != nil {
		t.Fatalf("RecordCommit failed: %v", err)
	}

	err := repo.RecordStart(ctx, "run-2", "seed:aliases")
	if !errors.Is(err, ErrStepCommitted) {
		t.Errorf("restarting a committed step must fail with ErrStepCommitted, got %v", err)
	}
}

func TestLedger_FailedStepRetries(t *testing.T) {
	repo := NewLedgerRepo(openTestORM(t))
	ctx := context.Background()

	if err := repo.RecordStart(ctx, "run-1", "assets:events.image_url"); err != nil {
		t.Fatalf("RecordStart failed: %v", err)
	}
	if err := repo.RecordFailure(ctx, "assets:events.image_url", errors.New("upstream 503")); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	entries, _ := repo.Entries(ctx)
	if entries[0].Status != constants.StepStatusFailed {
		t.Fatalf("expected failed status, got %q", entries[0].Status)
	}
	if entries[0].LastError != "upstream 503" {
		t.Errorf("failure cause not recorded: %q", entries[0].LastError)
	}

	// failed -> started is the retry path
	if err := repo.RecordStart(ctx, "run-2", "assets:events.image_url"); err != nil {
		t.Fatalf("retry start failed: %v", err)
	}

	entries, _ = repo.Entries(ctx)
	if len(entries) != 1 {
		t.Fatalf("retry must reuse the ledger row, got %d rows", len(entries))
	}
	if entries[0].Status != constants.StepStatusStarted {
		t.Errorf("expected started after retry, got %q", entries[0].Status)
	}
	if entries[0].RunID != "run-2" {
		t.Errorf("retry must stamp the new run id, got %q", entries[0].RunID)
	}
	if entries[0].LastError != "" {
		t.Errorf("retry must clear last error, got %q", entries[0].LastError)
	}
}

func TestLedger_HasCompletedIgnoresStartedAndFailed(t *testing.T) {
	repo := NewLedgerRepo(openTestORM(t))
	ctx := context.Background()

	if err := repo.RecordStart(ctx, "run-1", "verify:final"); err != nil {
		t.Fatalf("RecordStart failed: %v", err)
	}
	if done, _ := repo.HasCompleted(ctx, "verify:final"); done {
		t.Error("started step must not report completed")
	}

	if err := repo.RecordFailure(ctx, "verify:final", errors.New("orphans found")); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if done, _ := repo.HasCompleted(ctx, "verify:final"); done {
		t.Error("failed step must not report completed")
	}
}
