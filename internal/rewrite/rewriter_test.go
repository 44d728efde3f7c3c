package rewrite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"kgay-travel/shoreline/internal/constants"
	"kgay-travel/shoreline/internal/match"
)

const testSchema = `
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

func portEngine(t *testing.T) *match.Engine {
	t.Helper()
	catalog := match.NewCatalog()
	catalog.AddEntity(constants.EntityTypePort, 1, "Mykonos")
	catalog.AddEntity(constants.EntityTypePort, 2, "Kuşadası")
	catalog.AddEntity(constants.EntityTypePort, 3, "Sea Day")
	catalog.AddAlias(constants.EntityTypePort, "At Sea", 3)
	return match.NewEngine(catalog)
}

func insertItinerary(t *testing.T, db *sqlx.DB, label string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO itinerary (trip_id, day, legacy_label) VALUES (1, 1, ?)`,
		label,
	)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestListUnresolvedLabels_SkipsResolvedAndEmpty(t *testing.T) {
	db := openTestDB(t)
	rewriter := NewRewriter(db, portEngine(t))
	ctx := context.Background()

	insertItinerary(t, db, "Mykonos")
	insertItinerary(t, db, "")
	if _, err := db.Exec(
		`INSERT INTO itinerary (trip_id, day, port_id, legacy_label) VALUES (1, 2, 2, 'Kusadasi')`,
	); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	labels, err := rewriter.ListUnresolvedLabels(ctx, ItineraryPorts)
	if err != nil {
		t.Fatalf("ListUnresolvedLabels failed: %v", err)
	}
	if len(labels) != 1 || labels[0] != "Mykonos" {
		t.Errorf("expected only the unresolved non-empty label, got %v", labels)
	}
}

func TestBackfill_SameEntityFromVariantSpellings(t *testing.T) {
	db := openTestDB(t)
	rewriter := NewRewriter(db, portEngine(t))
	ctx := context.Background()

	// Two spellings of one port plus an alias of another
	insertItinerary(t, db, "Kuşadası")
	insertItinerary(t, db, "Kusadasi")
	insertItinerary(t, db, "At Sea")

	result, err := rewriter.Backfill(ctx, ItineraryPorts)
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}
	if result.Updated != 3 {
		t.Errorf("expected 3 rows updated, got %d", result.Updated)
	}

	var portIDs []sql.NullInt64
	if err := db.Select(&portIDs, `SELECT port_id FROM itinerary ORDER BY id`); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if portIDs[0].Int64 != 2 || portIDs[1].Int64 != 2 {
		t.Errorf("variant spellings must resolve to one port: %v, %v", portIDs[0], portIDs[1])
	}
	if portIDs[2].Int64 != 3 {
		t.Errorf("alias must resolve to port 3, got %v", portIDs[2])
	}
}

func TestBackfill_RetainsLegacyLabels(t *testing.T) {
	db := openTestDB(t)
	rewriter := NewRewriter(db, portEngine(t))
	ctx := context.Background()

	insertItinerary(t, db, "Mykonos")

	if _, err := rewriter.Backfill(ctx, ItineraryPorts); err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}

	var label string
	if err := db.Get(&label, `SELECT legacy_label FROM itinerary`); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if label != "Mykonos" {
		t.Errorf("legacy label must survive backfill, got %q", label)
	}
}

func TestPlanBackfill_SeparatesUnmatched(t *testing.T) {
	db := openTestDB(t)
	rewriter := NewRewriter(db, portEngine(t))
	ctx := context.Background()

	insertItinerary(t, db, "Mykonos")
	insertItinerary(t, db, "Willemstad")

	plan, err := rewriter.PlanBackfill(ctx, ItineraryPorts)
	if err != nil {
		t.Fatalf("PlanBackfill failed: %v", err)
	}
	if len(plan.Mappings) != 1 {
		t.Errorf("expected 1 mapping, got %d", len(plan.Mappings))
	}
	if len(plan.Unmatched) != 1 || plan.Unmatched[0] != "Willemstad" {
		t.Errorf("expected Willemstad unmatched, got %v", plan.Unmatched)
	}

	// Unmatched rows keep a NULL foreign key
	result, err := rewriter.ApplyBackfill(ctx, plan)
	if err != nil {
		t.Fatalf("ApplyBackfill failed: %v", err)
	}
	if result.Updated != 1 || result.Unmatched != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	var unresolved int
	if err := db.Get(&unresolved, `SELECT COUNT(*) FROM itinerary WHERE port_id IS NULL`); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if unresolved != 1 {
		t.Errorf("expected 1 unresolved row, got %d", unresolved)
	}
}

func TestBackfill_EventVenuesAndThemesIndependent(t *testing.T) {
	db := openTestDB(t)
	catalog := match.NewCatalog()
	catalog.AddEntity(constants.EntityTypeVenue, 10, "Pool Deck")
	catalog.AddEntity(constants.EntityTypePartyTheme, 20, "White Party")
	rewriter := NewRewriter(db, match.NewEngine(catalog))
	ctx := context.Background()

	if _, err := db.Exec(
		`INSERT INTO events (trip_id, title, legacy_venue_label, legacy_theme_label)
		 VALUES (1, 'Sail Away', 'Pool Deck', 'White Party')`,
	); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := rewriter.Backfill(ctx, EventVenues); err != nil {
		t.Fatalf("venue backfill failed: %v", err)
	}
	if _, err := rewriter.Backfill(ctx, EventThemes); err != nil {
		t.Fatalf("theme backfill failed: %v", err)
	}

	var venueID, themeID sql.NullInt64
	row := db.QueryRow(`SELECT venue_id, party_theme_id FROM events`)
	if err := row.Scan(&venueID, &themeID); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if venueID.Int64 != 10 || themeID.Int64 != 20 {
		t.Errorf("expected venue 10 and theme 20, got %v / %v", venueID, themeID)
	}
}

func TestRewriteRefs(t *testing.T) {
	db := openTestDB(t)
	rewriter := NewRewriter(db, portEngine(t))
	ctx := context.Background()

	for _, url := range []string{
		"http://legacy.example.com/a.jpg",
		"http://legacy.example.com/a.jpg",
		"http://legacy.example.com/b.jpg",
	} {
		if _, err := db.Exec(
			`INSERT INTO itinerary (trip_id, day, legacy_label, image_url) VALUES (1, 1, 'x', ?)`,
			url,
		); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	updated, err := rewriter.RewriteRefs(ctx, "itinerary", "image_url", map[string]string{
		"http://legacy.example.com/a.jpg": "https://cdn.example.com/itinerary/a.jpg",
	})
	if err != nil {
		t.Fatalf("RewriteRefs failed: %v", err)
	}
	if updated != 2 {
		t.Errorf("expected 2 rows repointed, got %d", updated)
	}

	var untouched int
	if err := db.Get(&untouched,
		`SELECT COUNT(*) FROM itinerary WHERE image_url = 'http://legacy.example.com/b.jpg'`,
	); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if untouched != 1 {
		t.Errorf("unmapped refs must stay untouched, got %d", untouched)
	}
}

func TestListDistinctRefs(t *testing.T) {
	db := openTestDB(t)
	rewriter := NewRewriter(db, portEngine(t))
	ctx := context.Background()

	for _, url := range []string{"http://x/1.jpg", "http://x/1.jpg", "http://x/2.jpg", ""} {
		if _, err := db.Exec(
			`INSERT INTO itinerary (trip_id, day, legacy_label, image_url) VALUES (1, 1, 'x', ?)`,
			url,
		); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	refs, err := rewriter.ListDistinctRefs(ctx, "itinerary", "image_url")
	if err != nil {
		t.Fatalf("ListDistinctRefs failed: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("expected 2 distinct refs, got %v", refs)
	}
}
