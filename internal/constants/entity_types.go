package constants

// Entity types for canonical reference tables
const (
	EntityTypePort       = "port"
	EntityTypeVenue      = "venue"
	EntityTypePartyTheme = "party_theme"
)

// Asset categories used to build deterministic target paths
const (
	AssetCategoryPorts     = "ports"
	AssetCategoryThemes    = "party-themes"
	AssetCategoryItinerary = "itinerary"
	AssetCategoryEvents    = "events"
)
