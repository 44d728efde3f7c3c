package repositories

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE ports (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	country     TEXT,
	region      TEXT,
	port_type   TEXT,
	description TEXT,
	image_url   TEXT
);
CREATE TABLE venues (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	venue_type  TEXT,
	deck        TEXT,
	capacity    INTEGER,
	description TEXT
);
CREATE TABLE party_themes (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL UNIQUE,
	short_description TEXT,
	long_description  TEXT,
	costume_ideas     TEXT,
	image_url         TEXT
);
CREATE TABLE entity_aliases (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_type TEXT NOT NULL,
	alias       TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	UNIQUE (entity_type, alias)
);
CREATE TABLE itinerary (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	trip_id      INTEGER NOT NULL,
	day          INTEGER NOT NULL,
	port_id      INTEGER,
	legacy_label TEXT NOT NULL DEFAULT '',
	image_url    TEXT
);
CREATE TABLE events (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	trip_id            INTEGER NOT NULL,
	title              TEXT NOT NULL,
	venue_id           INTEGER,
	party_theme_id     INTEGER,
	legacy_venue_label TEXT NOT NULL DEFAULT '',
	legacy_theme_label TEXT NOT NULL DEFAULT '',
	image_url          TEXT
);
`

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}
	return db
}
