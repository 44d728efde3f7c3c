package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"kgay-travel/shoreline/internal/models/entities"
)

// EntityRepo creates-or-finds canonical entities. Upserts are keyed by
// unique name; merge is non-destructive (only fills columns that are
// currently NULL) unless the Force variant is used. A lost insert race
// resolves by refetching the winning row.
type EntityRepo struct {
	db *sqlx.DB
}

func NewEntityRepo(db *sqlx.DB) *EntityRepo {
	return &EntityRepo{db: db}
}

// UpsertPort inserts or merges a port and returns its id
func (r *EntityRepo) UpsertPort(ctx context.Context, port *entities.Port) (int64, error) {
	const query = `
		INSERT INTO ports (name, country, region, port_type, description, image_url)
		VALUES (:name, :country, :region, :port_type, :description, :image_url)
		ON CONFLICT (name) DO UPDATE
		SET country     = COALESCE(ports.country, EXCLUDED.country),
		    region      = COALESCE(ports.region, EXCLUDED.region),
		    port_type   = COALESCE(ports.port_type, EXCLUDED.port_type),
		    description = COALESCE(ports.description, EXCLUDED.description),
		    image_url   = COALESCE(ports.image_url, EXCLUDED.image_url)
		RETURNING id
	`
	id, err := r.namedReturningID(ctx, query, port)
	if err != nil {
		return r.refetchPortID(ctx, port.Name, err)
	}
	return id, nil
}

// UpsertPortForce overwrites non-null attributes instead of merging.
// Operator-gated: only used when re-resolution was explicitly requested.
func (r *EntityRepo) UpsertPortForce(ctx context.Context, port *entities.Port) (int64, error) {
	const query = `
		INSERT INTO ports (name, country, region, port_type, description, image_url)
		VALUES (:name, :country, :region, :port_type, :description, :image_url)
		ON CONFLICT (name) DO UPDATE
		SET country     = EXCLUDED.country,
		    region      = EXCLUDED.region,
		    port_type   = EXCLUDED.port_type,
		    description = EXCLUDED.description,
		    image_url   = EXCLUDED.image_url
		RETURNING id
	`
	id, err := r.namedReturningID(ctx, query, port)
	if err != nil {
		return r.refetchPortID(ctx, port.Name, err)
	}
	return id, nil
}

// UpsertVenue inserts or merges a venue and returns its id
func (r *EntityRepo) UpsertVenue(ctx context.Context, venue *entities.Venue) (int64, error) {
	const query = `
		INSERT INTO venues (name, venue_type, deck, capacity, description)
		VALUES (:name, :venue_type, :deck, :capacity, :description)
		ON CONFLICT (name) DO UPDATE
		SET venue_type  = COALESCE(venues.venue_type, EXCLUDED.venue_type),
		    deck        = COALESCE(venues.deck, EXCLUDED.deck),
		    capacity    = COALESCE(venues.capacity, EXCLUDED.capacity),
		    description = COALESCE(venues.description, EXCLUDED.description)
		RETURNING id
	`
	id, err := r.namedReturningID(ctx, query, venue)
	if err != nil {
		return r.refetchID(ctx, "venues", venue.Name, err)
	}
	return id, nil
}

// UpsertPartyTheme inserts or merges a party theme and returns its id
func (r *EntityRepo) UpsertPartyTheme(ctx context.Context, theme *entities.PartyTheme) (int64, error) {
	const query = `
		INSERT INTO party_themes (name, short_description, long_description, costume_ideas, image_url)
		VALUES (:name, :short_description, :long_description, :costume_ideas, :image_url)
		ON CONFLICT (name) DO UPDATE
		SET short_description = COALESCE(party_themes.short_description, EXCLUDED.short_description),
		    long_description  = COALESCE(party_themes.long_description, EXCLUDED.long_description),
		    costume_ideas     = COALESCE(party_themes.costume_ideas, EXCLUDED.costume_ideas),
		    image_url         = COALESCE(party_themes.image_url, EXCLUDED.image_url)
		RETURNING id
	`
	id, err := r.namedReturningID(ctx, query, theme)
	if err != nil {
		return r.refetchID(ctx, "party_themes", theme.Name, err)
	}
	return id, nil
}

// ListPorts returns all canonical ports
func (r *EntityRepo) ListPorts(ctx context.Context) ([]entities.Port, error) {
	var ports []entities.Port
	err := r.db.SelectContext(ctx, &ports, `SELECT * FROM ports ORDER BY id`)
	return ports, err
}

// ListVenues returns all canonical venues
func (r *EntityRepo) ListVenues(ctx context.Context) ([]entities.Venue, error) {
	var venues []entities.Venue
	err := r.db.SelectContext(ctx, &venues, `SELECT * FROM venues ORDER BY id`)
	return venues, err
}

// ListPartyThemes returns all canonical party themes
func (r *EntityRepo) ListPartyThemes(ctx context.Context) ([]entities.PartyTheme, error) {
	var themes []entities.PartyTheme
	err := r.db.SelectContext(ctx, &themes, `SELECT * FROM party_themes ORDER BY id`)
	return themes, err
}

func (r *EntityRepo) namedReturningID(ctx context.Context, query string, arg interface{}) (int64, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, errors.New("upsert returned no id")
	}

	var id int64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// refetchID resolves a concurrent-insert race: if the row now exists
// under the unique name, the conflict is swallowed and the winning id
// is returned.
func (r *EntityRepo) refetchID(ctx context.Context, table string, name string, upsertErr error) (int64, error) {
	var id int64
	query := fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, table)
	err := r.db.GetContext(ctx, &id, r.db.Rebind(query), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, upsertErr
		}
		return 0, upsertErr
	}
	return id, nil
}

func (r *EntityRepo) refetchPortID(ctx context.Context, name string, upsertErr error) (int64, error) {
	return r.refetchID(ctx, "ports", name, upsertErr)
}
