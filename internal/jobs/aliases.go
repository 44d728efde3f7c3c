package jobs

import (
	"kgay-travel/shoreline/internal/constants"
	"kgay-travel/shoreline/internal/match"
)

// DeclaredAlias maps a known alternate spelling to a canonical entity
// name. The legacy records were typed by hand across several seasons,
// so the common misspellings are declared here and seeded into
// entity_aliases at the start of every run.
type DeclaredAlias struct {
	EntityType    string
	Alias         string
	CanonicalName string
}

var declaredAliases = []DeclaredAlias{
	// Ports
	{constants.EntityTypePort, "Kusadasi", "Kuşadası"},
	{constants.EntityTypePort, "Istanbul", "İstanbul"},
	{constants.EntityTypePort, "Curacao", "Curaçao"},
	{constants.EntityTypePort, "Mikonos", "Mykonos"},
	{constants.EntityTypePort, "Santorini (Thira)", "Santorini"},
	{constants.EntityTypePort, "Day at Sea", "Sea Day"},
	{constants.EntityTypePort, "At Sea", "Sea Day"},

	// Venues
	{constants.EntityTypeVenue, "Main Pool", "Pool Deck"},
	{constants.EntityTypeVenue, "Theatre", "Theater"},
	{constants.EntityTypeVenue, "Atrium Bar", "Atrium"},

	// Party themes
	{constants.EntityTypePartyTheme, "T-Dance", "Tea Dance"},
	{constants.EntityTypePartyTheme, "White Night", "White Party"},
	{constants.EntityTypePartyTheme, "Glow", "Glow Party"},
}

// declaredCanonical maps a label that matches a declared alternate
// spelling to its canonical display name, so a new entity is created
// under the canonical name and never under the variant.
func declaredCanonical(entityType string, label string) (string, bool) {
	normalized := match.Normalize(label)
	for _, declared := range declaredAliases {
		if declared.EntityType == entityType && match.Normalize(declared.Alias) == normalized {
			return declared.CanonicalName, true
		}
	}
	return "", false
}
