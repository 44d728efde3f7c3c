package entities

// EntityAlias maps an alternate spelling to a canonical entity.
// Alias values are stored normalized (lowercased, diacritics stripped).
type EntityAlias struct {
	ID         int64  `db:"id"`
	EntityType string `db:"entity_type"` // port | venue | party_theme
	Alias      string `db:"alias"`       // unique per entity_type
	EntityID   int64  `db:"entity_id"`
}
