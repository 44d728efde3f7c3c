package entities

import "database/sql"

// Port is a canonical port of call. Names are unique; legacy itinerary
// rows link to it via port_id once normalized.
type Port struct {
	ID          int64          `db:"id"`
	Name        string         `db:"name"`     // unique
	Country     sql.NullString `db:"country"`
	Region      sql.NullString `db:"region"`
	PortType    sql.NullString `db:"port_type"` // port | sea_day | embarkation
	Description sql.NullString `db:"description"`
	ImageURL    sql.NullString `db:"image_url"`
}
