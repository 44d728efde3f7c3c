package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"kgay-travel/shoreline/internal/constants"
	"kgay-travel/shoreline/internal/db/repositories"
	"kgay-travel/shoreline/internal/logging"
	"kgay-travel/shoreline/internal/match"
	"kgay-travel/shoreline/internal/metrics"
	"kgay-travel/shoreline/internal/models/entities"
	"kgay-travel/shoreline/internal/relocate"
	"kgay-travel/shoreline/internal/rewrite"
	"kgay-travel/shoreline/internal/verify"
)

// Mode selects whether a run reports or writes
type Mode string

const (
	ModeDryRun Mode = "dry-run"
	ModeApply  Mode = "apply"
)

// Options configures one consolidation run
type Options struct {
	Mode    Mode
	Resume  bool
	Workers int

	// TargetPrefix marks image URLs that already live in the target
	// store; they are excluded from relocation.
	TargetPrefix string
}

// StepSummary reports what one pipeline step did (or would do)
type StepSummary struct {
	StepID         string
	Skipped        bool
	Updated        int64
	Unmatched      int
	Ambiguous      int
	Created        int
	AssetsMigrated int
	AssetsDeduped  int
	AssetsFailed   int
	RefsRewritten  int64
}

// RunSummary is the operator-facing report for one run
type RunSummary struct {
	RunID     string
	Mode      Mode
	StartedAt time.Time
	Duration  time.Duration
	Steps     []StepSummary
}

// relocationTarget binds a reference column to its asset category
type relocationTarget struct {
	stepID   string
	table    string
	column   string
	category string
}

var relocationTargets = []relocationTarget{
	{constants.StepRelocatePorts, "ports", "image_url", constants.AssetCategoryPorts},
	{constants.StepRelocateThemes, "party_themes", "image_url", constants.AssetCategoryThemes},
	{constants.StepRelocateItinerary, "itinerary", "image_url", constants.AssetCategoryItinerary},
	{constants.StepRelocateEvents, "events", "image_url", constants.AssetCategoryEvents},
}

// ConsolidationJob is the pipeline orchestrator. A run loads the
// ledger, skips committed steps, normalizes relational references,
// relocates binary assets, then verifies integrity. The external stop
// signal is honored between steps, never mid-transaction.
type ConsolidationJob struct {
	db        *sqlx.DB
	entities  *repositories.EntityRepo
	aliases   *repositories.AliasRepo
	ledger    *repositories.LedgerRepo
	relocator *relocate.Relocator
	verifier  *verify.Verifier
	opts      Options

	// run-scoped state
	catalog  *match.Catalog
	engine   *match.Engine
	rewriter *rewrite.Rewriter
}

func NewConsolidationJob(
	db *sqlx.DB,
	entityRepo *repositories.EntityRepo,
	aliasRepo *repositories.AliasRepo,
	ledgerRepo *repositories.LedgerRepo,
	relocator *relocate.Relocator,
	verifier *verify.Verifier,
	opts Options,
) *ConsolidationJob {
	if opts.Mode == "" {
		opts.Mode = ModeDryRun
	}
	if opts.Workers <= 0 {
		opts.Workers = 6
	}
	return &ConsolidationJob{
		db:        db,
		entities:  entityRepo,
		aliases:   aliasRepo,
		ledger:    ledgerRepo,
		relocator: relocator,
		verifier:  verifier,
		opts:      opts,
	}
}

func (j *ConsolidationJob) apply() bool {
	return j.opts.Mode == ModeApply
}

// Run executes the full pipeline and returns the run summary. The
// returned error is run-aborting (integrity violation, cancellation,
// storage fault); per-record failures live in the summary instead.
func (j *ConsolidationJob) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		Mode:      j.opts.Mode,
		StartedAt: start,
	}

	logging.Info("Consolidation run starting",
		"run_id", summary.RunID,
		"mode", string(j.opts.Mode),
		"resume", j.opts.Resume,
	)

	pre, err := j.verifier.Capture(ctx, verify.DefaultChecks)
	if err != nil {
		return summary, fmt.Errorf("pre-run capture: %w", err)
	}

	if err := j.loadCatalog(ctx); err != nil {
		return summary, fmt.Errorf("load catalog: %w", err)
	}

	steps := []struct {
		stepID string
		fn     func(context.Context, *StepSummary) (string, error)
	}{
		{constants.StepSeedAliases, j.seedAliases},
		{constants.StepNormalizePorts, j.normalizeStep(rewrite.ItineraryPorts)},
		{constants.StepNormalizeVenues, j.normalizeStep(rewrite.EventVenues)},
		{constants.StepNormalizeThemes, j.normalizeStep(rewrite.EventThemes)},
	}
	for _, target := range relocationTargets {
		steps = append(steps, struct {
			stepID string
			fn     func(context.Context, *StepSummary) (string, error)
		}{target.stepID, j.relocateStep(target)})
	}

	for _, step := range steps {
		// Stop signals land between steps, never inside one
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		stepSummary, err := j.runStep(ctx, summary.RunID, step.stepID, step.fn)
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
		summary.Steps = append(summary.Steps, *stepSummary)
	}

	verifySummary, err := j.verifyStep(ctx, summary.RunID, pre)
	summary.Steps = append(summary.Steps, *verifySummary)
	summary.Duration = time.Since(start)

	if err != nil {
		return summary, err
	}

	logging.Info("Consolidation run completed",
		"run_id", summary.RunID,
		"mode", string(j.opts.Mode),
		"duration", summary.Duration.Truncate(time.Millisecond).String(),
	)
	return summary, nil
}

// runStep wraps one step with ledger gating and bookkeeping. Dry-run
// never touches the ledger.
func (j *ConsolidationJob) runStep(
	ctx context.Context,
	runID string,
	stepID string,
	fn func(context.Context, *StepSummary) (string, error),
) (*StepSummary, error) {
	log := logging.WithStep(runID, stepID)
	stepSummary := &StepSummary{StepID: stepID}

	// A committed step is terminal in the ledger. With resume on it is
	// skipped outright; with resume off the idempotent operation is
	// re-executed but its ledger row is left untouched.
	alreadyCommitted := false
	if j.apply() {
		done, err := j.ledger.HasCompleted(ctx, stepID)
		if err != nil {
			return stepSummary, fmt.Errorf("ledger lookup for %s: %w", stepID, err)
		}
		alreadyCommitted = done
		if done && j.opts.Resume {
			log.Infow("Step already committed, skipping")
			stepSummary.Skipped = true
			return stepSummary, nil
		}
	}

	writeLedger := j.apply() && !alreadyCommitted
	if writeLedger {
		if err := j.ledger.RecordStart(ctx, runID, stepID); err != nil {
			return stepSummary, fmt.Errorf("ledger start for %s: %w", stepID, err)
		}
	}

	start := time.Now()
	checksum, err := fn(ctx, stepSummary)
	metrics.Default().StepDuration.WithLabelValues(stepID).Observe(time.Since(start).Seconds())

	if err != nil {
		if writeLedger {
			if ledgerErr := j.ledger.RecordFailure(ctx, stepID, err); ledgerErr != nil {
				log.Errorw("Failed to record step failure", "error", ledgerErr.Error())
			}
		}
		return stepSummary, fmt.Errorf("step %s: %w", stepID, err)
	}

	if writeLedger {
		if err := j.ledger.RecordCommit(ctx, stepID, checksum); err != nil {
			return stepSummary, fmt.Errorf("ledger commit for %s: %w", stepID, err)
		}
	}

	log.Infow("Step finished",
		"updated", stepSummary.Updated,
		"unmatched", stepSummary.Unmatched,
		"ambiguous", stepSummary.Ambiguous,
		"created", stepSummary.Created,
		"assets_migrated", stepSummary.AssetsMigrated,
		"assets_failed", stepSummary.AssetsFailed,
	)
	return stepSummary, nil
}

// loadCatalog snapshots canonical names and aliases into memory
func (j *ConsolidationJob) loadCatalog(ctx context.Context) error {
	catalog := match.NewCatalog()

	ports, err := j.entities.ListPorts(ctx)
	if err != nil {
		return err
	}
	for _, port := range ports {
		catalog.AddEntity(constants.EntityTypePort, port.ID, port.Name)
	}

	venues, err := j.entities.ListVenues(ctx)
	if err != nil {
		return err
	}
	for _, venue := range venues {
		catalog.AddEntity(constants.EntityTypeVenue, venue.ID, venue.Name)
	}

	themes, err := j.entities.ListPartyThemes(ctx)
	if err != nil {
		return err
	}
	for _, theme := range themes {
		catalog.AddEntity(constants.EntityTypePartyTheme, theme.ID, theme.Name)
	}

	for _, entityType := range []string{constants.EntityTypePort, constants.EntityTypeVenue, constants.EntityTypePartyTheme} {
		aliases, err := j.aliases.ListByType(ctx, entityType)
		if err != nil {
			return err
		}
		for _, alias := range aliases {
			catalog.AddAlias(entityType, alias.Alias, alias.EntityID)
		}
	}

	j.catalog = catalog
	j.engine = match.NewEngine(catalog)
	j.rewriter = rewrite.NewRewriter(j.db, j.engine)
	return nil
}

// seedAliases records the declared alternate spellings. Pairs whose
// canonical entity does not exist yet are skipped; they resolve by
// name once the entity is created.
func (j *ConsolidationJob) seedAliases(ctx context.Context, stepSummary *StepSummary) (string, error) {
	var seeded []string

	for _, declared := range declaredAliases {
		result := j.engine.Resolve(declared.CanonicalName, declared.EntityType)
		if result.EntityID == nil {
			continue
		}

		j.catalog.AddAlias(declared.EntityType, declared.Alias, *result.EntityID)
		seeded = append(seeded, declared.EntityType+":"+match.Normalize(declared.Alias))

		if !j.apply() {
			continue
		}
		alias := entities.EntityAlias{
			EntityType: declared.EntityType,
			Alias:      match.Normalize(declared.Alias),
			EntityID:   *result.EntityID,
		}
		if err := j.aliases.Upsert(ctx, &alias); err != nil {
			return "", fmt.Errorf("seed alias %q: %w", declared.Alias, err)
		}
		stepSummary.Updated++
	}

	return checksumLines(seeded), nil
}

// normalizeStep builds the step for one dependent table: resolve every
// unresolved label, promote clean unmatched labels to new canonical
// entities, then backfill foreign keys in one batched transaction.
func (j *ConsolidationJob) normalizeStep(spec rewrite.TableSpec) func(context.Context, *StepSummary) (string, error) {
	return func(ctx context.Context, stepSummary *StepSummary) (string, error) {
		plan, err := j.rewriter.PlanBackfill(ctx, spec)
		if err != nil {
			return "", err
		}

		// Unmatched labels become new canonical entities. Ambiguous
		// labels never do; they stay unresolved for manual curation.
		wouldCreate := make(map[string]bool)
		for _, label := range plan.Unmatched {
			// An earlier label in this loop may have created the entity
			if result := j.engine.Resolve(label, spec.EntityType); result.EntityID != nil {
				plan.Mappings[label] = *result.EntityID
				continue
			}

			// A label that is a declared alternate spelling promotes its
			// canonical name, never a second entity under the variant
			name := displayName(label)
			if canonical, ok := declaredCanonical(spec.EntityType, label); ok {
				name = canonical
			}

			if !j.apply() {
				if key := match.Normalize(name); !wouldCreate[key] {
					wouldCreate[key] = true
					stepSummary.Created++
				}
				continue
			}

			id, err := j.createEntity(ctx, spec.EntityType, name)
			if err != nil {
				return "", fmt.Errorf("create %s for %q: %w", spec.EntityType, label, err)
			}
			j.catalog.AddEntity(spec.EntityType, id, name)
			j.catalog.AddAlias(spec.EntityType, label, id)
			if err := j.seedDeclaredAliases(ctx, spec.EntityType, name, id); err != nil {
				return "", err
			}
			plan.Mappings[label] = id
			stepSummary.Created++
			metrics.Default().EntitiesCreatedTotal.WithLabelValues(spec.EntityType).Inc()
		}
		plan.Unmatched = nil

		stepSummary.Ambiguous = len(plan.Ambiguous)
		metrics.Default().LabelsUnmatchedTotal.WithLabelValues(spec.Table).Add(float64(len(plan.Unmatched)))
		metrics.Default().LabelsAmbiguousTotal.WithLabelValues(spec.Table).Add(float64(len(plan.Ambiguous)))
		metrics.Default().LabelsResolvedTotal.WithLabelValues(spec.Table).Add(float64(len(plan.Mappings)))

		if !j.apply() {
			stepSummary.Updated = int64(len(plan.Mappings))
			stepSummary.Unmatched = len(plan.Unmatched)
			return checksumMappings(plan.Mappings), nil
		}

		result, err := j.rewriter.ApplyBackfill(ctx, plan)
		if err != nil {
			return "", err
		}
		stepSummary.Updated = result.Updated
		stepSummary.Unmatched = result.Unmatched
		return checksumMappings(plan.Mappings), nil
	}
}

func (j *ConsolidationJob) createEntity(ctx context.Context, entityType string, name string) (int64, error) {
	switch entityType {
	case constants.EntityTypePort:
		return j.entities.UpsertPort(ctx, &entities.Port{Name: name})
	case constants.EntityTypeVenue:
		return j.entities.UpsertVenue(ctx, &entities.Venue{Name: name})
	case constants.EntityTypePartyTheme:
		return j.entities.UpsertPartyTheme(ctx, &entities.PartyTheme{Name: name})
	default:
		return 0, fmt.Errorf("unknown entity type %q", entityType)
	}
}

// seedDeclaredAliases registers every declared spelling of a freshly
// created canonical entity. The seed step only covers entities that
// existed when it ran, so promotion finishes the job for entities it
// creates itself.
func (j *ConsolidationJob) seedDeclaredAliases(ctx context.Context, entityType string, name string, id int64) error {
	normalized := match.Normalize(name)
	for _, declared := range declaredAliases {
		if declared.EntityType != entityType || match.Normalize(declared.CanonicalName) != normalized {
			continue
		}
		j.catalog.AddAlias(entityType, declared.Alias, id)
		alias := entities.EntityAlias{
			EntityType: entityType,
			Alias:      match.Normalize(declared.Alias),
			EntityID:   id,
		}
		if err := j.aliases.Upsert(ctx, &alias); err != nil {
			return fmt.Errorf("seed alias %q: %w", declared.Alias, err)
		}
	}
	return nil
}

// relocateStep builds the step that moves one column's assets and
// repoints the column at the new locations.
func (j *ConsolidationJob) relocateStep(target relocationTarget) func(context.Context, *StepSummary) (string, error) {
	return func(ctx context.Context, stepSummary *StepSummary) (string, error) {
		refs, err := j.rewriter.ListDistinctRefs(ctx, target.table, target.column)
		if err != nil {
			return "", err
		}

		var sources []relocate.SourceAsset
		for _, ref := range refs {
			// Already-relocated URLs and placeholders written by an
			// earlier run are terminal, never fed back as sources
			if j.opts.TargetPrefix != "" && strings.HasPrefix(ref, j.opts.TargetPrefix) {
				continue
			}
			if ref == j.relocator.PlaceholderURL() {
				continue
			}
			sources = append(sources, relocate.SourceAsset{URL: ref, Category: target.category})
		}

		if !j.apply() {
			stepSummary.AssetsMigrated = len(sources)
			return "", nil
		}

		relocSummary, mappings, err := j.relocator.RelocateAll(ctx, sources, j.opts.Workers)
		if err != nil {
			return "", err
		}
		stepSummary.AssetsMigrated = relocSummary.Migrated
		stepSummary.AssetsDeduped = relocSummary.Deduped
		stepSummary.AssetsFailed = relocSummary.Failed

		rewritten, err := j.rewriter.RewriteRefs(ctx, target.table, target.column, mappings)
		if err != nil {
			return "", err
		}
		stepSummary.RefsRewritten = rewritten

		return checksumStringMap(mappings), nil
	}
}

// verifyStep captures the post-run report and compares it against the
// pre-run snapshot. A violation fails the step and blocks the run from
// committing; it is never auto-corrected.
func (j *ConsolidationJob) verifyStep(ctx context.Context, runID string, pre *verify.Report) (*StepSummary, error) {
	stepSummary := &StepSummary{StepID: constants.StepVerify}
	log := logging.WithStep(runID, constants.StepVerify)

	post, err := j.verifier.Capture(ctx, verify.DefaultChecks)
	if err != nil {
		return stepSummary, fmt.Errorf("post-run capture: %w", err)
	}

	if !j.apply() {
		return stepSummary, nil
	}

	alreadyCommitted, err := j.ledger.HasCompleted(ctx, constants.StepVerify)
	if err != nil {
		return stepSummary, err
	}
	if alreadyCommitted && j.opts.Resume {
		log.Infow("Verification already committed, skipping")
		stepSummary.Skipped = true
		return stepSummary, nil
	}

	writeLedger := !alreadyCommitted
	if writeLedger {
		if err := j.ledger.RecordStart(ctx, runID, constants.StepVerify); err != nil {
			return stepSummary, err
		}
	}

	if err := verify.Compare(pre, post); err != nil {
		log.Errorw("Integrity violation, operator intervention required", "error", err.Error())
		if writeLedger {
			if ledgerErr := j.ledger.RecordFailure(ctx, constants.StepVerify, err); ledgerErr != nil {
				log.Errorw("Failed to record verification failure", "error", ledgerErr.Error())
			}
		}
		return stepSummary, err
	}

	checksum := verify.CombinedChecksum(post)
	if writeLedger {
		if err := j.ledger.RecordCommit(ctx, constants.StepVerify, checksum); err != nil {
			return stepSummary, err
		}
	}

	log.Infow("Verification passed", "checksum", checksum)
	return stepSummary, nil
}

func displayName(label string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(label)), " ")
}

func checksumMappings(mappings map[string]int64) string {
	lines := make([]string, 0, len(mappings))
	for label, id := range mappings {
		lines = append(lines, fmt.Sprintf("%s=%d", label, id))
	}
	return checksumLines(lines)
}

func checksumStringMap(mappings map[string]string) string {
	lines := make([]string, 0, len(mappings))
	for source, target := range mappings {
		lines = append(lines, source+"="+target)
	}
	return checksumLines(lines)
}

func checksumLines(lines []string) string {
	sort.Strings(lines)
	hash := sha256.New()
	for _, line := range lines {
		hash.Write([]byte(line))
		hash.Write([]byte{'\n'})
	}
	return hex.EncodeToString(hash.Sum(nil))
}
