package entities

import "database/sql"

// ItineraryEntry is one day of a trip. LegacyLabel is the original
// free-text port name and is never overwritten; PortID is backfilled.
type ItineraryEntry struct {
	ID          int64          `db:"id"`
	TripID      int64          `db:"trip_id"`
	Day         int            `db:"day"`
	PortID      sql.NullInt64  `db:"port_id"`
	LegacyLabel string         `db:"legacy_label"`
	ImageURL    sql.NullString `db:"image_url"`
}

// Event is a scheduled shipboard event. Venue and theme references are
// backfilled from the retained legacy labels.
type Event struct {
	ID               int64          `db:"id"`
	TripID           int64          `db:"trip_id"`
	Title            string         `db:"title"`
	VenueID          sql.NullInt64  `db:"venue_id"`
	PartyThemeID     sql.NullInt64  `db:"party_theme_id"`
	LegacyVenueLabel string         `db:"legacy_venue_label"`
	LegacyThemeLabel string         `db:"legacy_theme_label"`
	ImageURL         sql.NullString `db:"image_url"`
}
