package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"kgay-travel/shoreline/internal/models/entities"
)

// AliasRepo manages the alternate-spelling table that feeds the match
// catalog. Aliases are stored normalized.
type AliasRepo struct {
	db *sqlx.DB
}

func NewAliasRepo(db *sqlx.DB) *AliasRepo {
	return &AliasRepo{db: db}
}

// ListByType returns all aliases for one entity type
func (r *AliasRepo) ListByType(ctx context.Context, entityType string) ([]entities.EntityAlias, error) {
	var aliases []entities.EntityAlias
	err := r.db.SelectContext(ctx, &aliases,
		r.db.Rebind(`SELECT * FROM entity_aliases WHERE entity_type = ? ORDER BY id`),
		entityType)
	return aliases, err
}

// Upsert records an alias idempotently. Re-seeding the same spelling
// pair on every run is a no-op.
func (r *AliasRepo) Upsert(ctx context.Context, alias *entities.EntityAlias) error {
	const query = `
		INSERT INTO entity_aliases (entity_type, alias, entity_id)
		VALUES (:entity_type, :alias, :entity_id)
		ON CONFLICT (entity_type, alias) DO UPDATE
		SET entity_id = EXCLUDED.entity_id
	`
	_, err := r.db.NamedExecContext(ctx, query, alias)
	return err
}
