package item

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// Repository keeps item records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a new item repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a record; the database assigns id and created_at.
func (r *Repository) Create(ctx context.Context, it Item) (Item, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO items (owner_id, title, description, image)
VALUES ($1, $2, $3, $4)
RETURNING id, owner_id, title, description, image, created_at;`

	row := r.pool.QueryRow(ctx, query, it.OwnerID, it.Title, it.Description, it.Image)

	var stored Item
	if err := row.Scan(&stored.ID, &stored.OwnerID, &stored.Title, &stored.Description, &stored.Image, &stored.CreatedAt); err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	return stored, nil
}

// ListByOwner returns every item of the owner, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT id, owner_id, title, description, image, created_at
FROM items
WHERE owner_id = $1
ORDER BY created_at DESC, id;`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Image, &it.CreatedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	return items, nil
}

// Delete removes the owner's item by id.
func (r *Repository) Delete(ctx context.Context, ownerID, itemID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1 AND owner_id = $2;`, itemID, ownerID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Ping reports whether the items table is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()
	return r.pool.Ping(ctx)
}
