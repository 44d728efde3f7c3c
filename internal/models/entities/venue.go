package entities

import "database/sql"

// Venue is a canonical shipboard venue
type Venue struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"` // unique
	VenueType   sql.NullString `db:"venue_type"`
	Deck        sql.NullString `db:"deck"`
	Capacity    sql.NullInt64  `db:"capacity"`
	Description sql.NullString `db:"description"`
}
