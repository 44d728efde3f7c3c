package rewrite

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"kgay-travel/shoreline/internal/constants"
	"kgay-travel/shoreline/internal/logging"
	"kgay-travel/shoreline/internal/match"
)

// TableSpec names one dependent table and the foreign key it backfills.
// Specs are fixed at compile time; table and column names are never
// taken from input.
type TableSpec struct {
	Table       string
	FKColumn    string
	LabelColumn string
	EntityType  string
}

// The three backfill targets of the consolidation run
var (
	ItineraryPorts = TableSpec{
		Table:       "itinerary",
		FKColumn:    "port_id",
		LabelColumn: "legacy_label",
		EntityType:  constants.EntityTypePort,
	}
	EventVenues = TableSpec{
		Table:       "events",
		FKColumn:    "venue_id",
		LabelColumn: "legacy_venue_label",
		EntityType:  constants.EntityTypeVenue,
	}
	EventThemes = TableSpec{
		Table:       "events",
		FKColumn:    "party_theme_id",
		LabelColumn: "legacy_theme_label",
		EntityType:  constants.EntityTypePartyTheme,
	}
)

// Plan is the resolved mapping for one table, computed before any write
// so dry-run can report it verbatim.
type Plan struct {
	Spec      TableSpec
	Mappings  map[string]int64 // raw legacy label -> canonical entity id
	Unmatched []string
	Ambiguous []string
}

// Result summarizes one applied backfill
type Result struct {
	Updated   int64
	Unmatched int
	Ambiguous int
}

// Rewriter backfills canonical foreign keys from retained legacy
// labels. Legacy label columns are read, never written.
type Rewriter struct {
	db     *sqlx.DB
	engine *match.Engine
}

func NewRewriter(db *sqlx.DB, engine *match.Engine) *Rewriter {
	return &Rewriter{db: db, engine: engine}
}

// ListUnresolvedLabels returns the distinct legacy labels of rows still
// lacking a canonical reference.
func (r *Rewriter) ListUnresolvedLabels(ctx context.Context, spec TableSpec) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT %s FROM %s WHERE %s IS NULL AND %s <> '' ORDER BY %s`,
		spec.LabelColumn, spec.Table, spec.FKColumn, spec.LabelColumn, spec.LabelColumn,
	)

	var labels []string
	if err := r.db.SelectContext(ctx, &labels, query); err != nil {
		return nil, fmt.Errorf("list unresolved labels for %s: %w", spec.Table, err)
	}
	return labels, nil
}

// PlanBackfill resolves every unresolved label through the match engine.
// Ambiguous labels are collected, not guessed at.
func (r *Rewriter) PlanBackfill(ctx context.Context, spec TableSpec) (*Plan, error) {
	labels, err := r.ListUnresolvedLabels(ctx, spec)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Spec:     spec,
		Mappings: make(map[string]int64),
	}

	for _, label := range labels {
		result := r.engine.Resolve(label, spec.EntityType)
		switch {
		case result.Ambiguous:
			plan.Ambiguous = append(plan.Ambiguous, label)
		case result.EntityID == nil:
			plan.Unmatched = append(plan.Unmatched, label)
		default:
			plan.Mappings[label] = *result.EntityID
		}
	}

	return plan, nil
}

// ApplyBackfill issues one batched UPDATE per logical mapping inside a
// single transaction, so a mid-batch failure leaves the table unchanged.
func (r *Rewriter) ApplyBackfill(ctx context.Context, plan *Plan) (Result, error) {
	result := Result{
		Unmatched: len(plan.Unmatched),
		Ambiguous: len(plan.Ambiguous),
	}

	for _, label := range plan.Ambiguous {
		logging.Warn("Ambiguous label needs manual curation",
			"table", plan.Spec.Table,
			"label", label,
		)
	}

	if len(plan.Mappings) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin backfill tx for %s: %w", plan.Spec.Table, err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(fmt.Sprintf(
		`UPDATE %s SET %s = ? WHERE %s = ? AND %s IS NULL`,
		plan.Spec.Table, plan.Spec.FKColumn, plan.Spec.LabelColumn, plan.Spec.FKColumn,
	))

	// Deterministic statement order keeps re-runs comparable in logs
	labels := make([]string, 0, len(plan.Mappings))
	for label := range plan.Mappings {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		res, err := tx.ExecContext(ctx, query, plan.Mappings[label], label)
		if err != nil {
			return result, fmt.Errorf("backfill %s (%q): %w", plan.Spec.Table, label, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, err
		}
		result.Updated += affected
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit backfill tx for %s: %w", plan.Spec.Table, err)
	}
	return result, nil
}

// Backfill plans and applies in one call
func (r *Rewriter) Backfill(ctx context.Context, spec TableSpec) (Result, error) {
	plan, err := r.PlanBackfill(ctx, spec)
	if err != nil {
		return Result{}, err
	}
	return r.ApplyBackfill(ctx, plan)
}

// ListDistinctRefs returns the distinct non-empty values of a reference
// column (image URLs awaiting relocation).
func (r *Rewriter) ListDistinctRefs(ctx context.Context, table string, column string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL AND %s <> '' ORDER BY %s`,
		column, table, column, column, column,
	)

	var refs []string
	if err := r.db.SelectContext(ctx, &refs, query); err != nil {
		return nil, fmt.Errorf("list refs for %s.%s: %w", table, column, err)
	}
	return refs, nil
}

// RewriteRefs repoints a reference column from old to new locations,
// one batched UPDATE per unique mapping, all inside one transaction.
func (r *Rewriter) RewriteRefs(ctx context.Context, table string, column string, mapping map[string]string) (int64, error) {
	if len(mapping) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ref rewrite tx for %s: %w", table, err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(fmt.Sprintf(
		`UPDATE %s SET %s = ? WHERE %s = ?`,
		table, column, column,
	))

	sources := make([]string, 0, len(mapping))
	for source := range mapping {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var updated int64
	for _, source := range sources {
		res, err := tx.ExecContext(ctx, query, mapping[source], source)
		if err != nil {
			return updated, fmt.Errorf("rewrite %s.%s (%q): %w", table, column, source, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return updated, err
		}
		updated += affected
	}

	if err := tx.Commit(); err != nil {
		return updated, fmt.Errorf("commit ref rewrite tx for %s: %w", table, err)
	}
	return updated, nil
}
