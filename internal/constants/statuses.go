package constants

// Asset reference statuses for the asset_references table
const (
	AssetStatusPending  = "pending"
	AssetStatusMigrated = "migrated"
	AssetStatusSkipped  = "skipped"
	AssetStatusFailed   = "failed"
)

// Ledger step statuses for the migration_ledger table
const (
	StepStatusStarted   = "started"
	StepStatusCommitted = "committed"
	StepStatusFailed    = "failed"
)

// Ledger step identifiers. Steps are keyed deterministically by
// operation and target so re-runs resolve to the same ledger rows.
const (
	StepSeedAliases       = "seed:aliases"
	StepNormalizePorts    = "normalize:itinerary.port_id"
	StepNormalizeVenues   = "normalize:events.venue_id"
	StepNormalizeThemes   = "normalize:events.party_theme_id"
	StepRelocateItinerary = "assets:itinerary.image_url"
	StepRelocateEvents    = "assets:events.image_url"
	StepRelocatePorts     = "assets:ports.image_url"
	StepRelocateThemes    = "assets:party_themes.image_url"
	StepVerify            = "verify:final"
)
