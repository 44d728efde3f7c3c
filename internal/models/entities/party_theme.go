package entities

import "database/sql"

// PartyTheme is a canonical party theme referenced by event rows
type PartyTheme struct {
	ID               int64          `db:"id"`
	Name             string         `db:"name"` // unique
	ShortDescription sql.NullString `db:"short_description"`
	LongDescription  sql.NullString `db:"long_description"`
	CostumeIdeas     sql.NullString `db:"costume_ideas"`
	ImageURL         sql.NullString `db:"image_url"`
}
