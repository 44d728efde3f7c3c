package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"kgay-travel/shoreline/internal/constants"
)

// TableCheck names one table to verify. When FKColumn and RefTable are
// set, the check also counts orphan references.
type TableCheck struct {
	Table    string
	KeyOrder string // ORDER BY expression for the checksum scan, usually "id"
	FKColumn string
	RefTable string
}

// Checks covered by the consolidation run
var DefaultChecks = []TableCheck{
	{Table: "ports", KeyOrder: "id"},
	{Table: "venues", KeyOrder: "id"},
	{Table: "party_themes", KeyOrder: "id"},
	{Table: "itinerary", KeyOrder: "id", FKColumn: "port_id", RefTable: "ports"},
	{Table: "events", KeyOrder: "id", FKColumn: "venue_id", RefTable: "venues"},
	{Table: "events", KeyOrder: "id", FKColumn: "party_theme_id", RefTable: "party_themes"},
}

// Report is a snapshot of table health, captured before and after a run
type Report struct {
	RowCounts    map[string]int64
	OrphanCounts map[string]int64
	Checksums    map[string]string
	CapturedAt   time.Time
}

// IntegrityError is run-aborting: orphans or lost rows require operator
// intervention and are never auto-corrected.
type IntegrityError struct {
	Violations []string
}

func (e *IntegrityError) Error() string {
	return "integrity check failed: " + strings.Join(e.Violations, "; ")
}

// Verifier computes row counts, orphan-reference counts and content
// checksums over the migrated tables.
type Verifier struct {
	db *sqlx.DB
}

func NewVerifier(db *sqlx.DB) *Verifier {
	return &Verifier{db: db}
}

// Capture snapshots every check into a Report
func (v *Verifier) Capture(ctx context.Context, checks []TableCheck) (*Report, error) {
	report := &Report{
		RowCounts:    make(map[string]int64),
		OrphanCounts: make(map[string]int64),
		Checksums:    make(map[string]string),
		CapturedAt:   time.Now(),
	}

	for _, check := range checks {
		if _, done := report.RowCounts[check.Table]; !done {
			count, err := v.rowCount(ctx, check.Table)
			if err != nil {
				return nil, err
			}
			report.RowCounts[check.Table] = count

			checksum, err := v.tableChecksum(ctx, check.Table, check.KeyOrder)
			if err != nil {
				return nil, err
			}
			report.Checksums[check.Table] = checksum
		}

		if check.FKColumn != "" {
			orphans, err := v.orphanCount(ctx, check)
			if err != nil {
				return nil, err
			}
			report.OrphanCounts[check.Table+"."+check.FKColumn] = orphans
		}
	}

	return report, nil
}

func (v *Verifier) rowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
	if err := v.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("row count for %s: %w", table, err)
	}
	return count, nil
}

func (v *Verifier) orphanCount(ctx context.Context, check TableCheck) (int64, error) {
	var count int64
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s d LEFT JOIN %s r ON d.%s = r.id WHERE d.%s IS NOT NULL AND r.id IS NULL`,
		check.Table, check.RefTable, check.FKColumn, check.FKColumn,
	)
	if err := v.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("orphan count for %s.%s: %w", check.Table, check.FKColumn, err)
	}
	return count, nil
}

// tableChecksum hashes the ordered, serialized row set. Any unintended
// row change between captures shifts the digest.
func (v *Verifier) tableChecksum(ctx context.Context, table string, keyOrder string) (string, error) {
	if keyOrder == "" {
		keyOrder = "id"
	}

	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY %s`, table, keyOrder)
	rows, err := v.db.QueryxContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("checksum scan for %s: %w", table, err)
	}
	defer rows.Close()

	hash := sha256.New()
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return "", err
		}
		for _, value := range values {
			// Drivers disagree on []byte vs string; normalize before hashing
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			fmt.Fprintf(hash, "%v|", value)
		}
		hash.Write([]byte{'\n'})
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Compare validates a post-run report against the pre-run snapshot.
// Violations: any orphan reference, or a row count that decreased.
func Compare(pre *Report, post *Report) error {
	var violations []string

	for key, orphans := range post.OrphanCounts {
		if orphans > 0 {
			violations = append(violations, fmt.Sprintf(
				"%s: %d orphan references (%s)",
				key, orphans, constants.ErrCodeOrphanReference,
			))
		}
	}

	for table, postCount := range post.RowCounts {
		preCount, tracked := pre.RowCounts[table]
		if tracked && postCount < preCount {
			violations = append(violations, fmt.Sprintf(
				"%s: row count dropped %d -> %d (%s)",
				table, preCount, postCount, constants.ErrCodeRowCountDrop,
			))
		}
	}

	if len(violations) > 0 {
		return &IntegrityError{Violations: violations}
	}
	return nil
}

// CombinedChecksum folds a report's table checksums into one digest for
// the ledger.
func CombinedChecksum(report *Report) string {
	hash := sha256.New()
	for _, check := range DefaultChecks {
		if sum, ok := report.Checksums[check.Table]; ok {
			fmt.Fprintf(hash, "%s=%s\n", check.Table, sum)
		}
	}
	return hex.EncodeToString(hash.Sum(nil))
}
