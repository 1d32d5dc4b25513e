package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
)

// ExistenceRepository loads the natural keys of a Postgres destination with
// plain pgx queries. A large site is read in one streaming pass per table
// instead of through gorm models.
type ExistenceRepository struct {
	pool *pgxpool.Pool
}

func NewExistenceRepository(pool *pgxpool.Pool) *ExistenceRepository {
	return &ExistenceRepository{pool: pool}
}

func (r *ExistenceRepository) PostGUIDs(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT guid, MIN(id)
FROM wp_posts
WHERE guid <> ''
GROUP BY guid
`)
	if err != nil {
		return nil, fmt.Errorf("load post guids: %w", err)
	}
	defer rows.Close()

	return collectKeys(rows)
}

func (r *ExistenceRepository) CommentKeys(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT author || ':' || date, MIN(id)
FROM wp_comments
GROUP BY author, date
`)
	if err != nil {
		return nil, fmt.Errorf("load comment keys: %w", err)
	}
	defer rows.Close()

	return collectKeys(rows)
}

func (r *ExistenceRepository) TermKeys(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT taxonomy, slug, MAX(id)
FROM wp_terms
GROUP BY taxonomy, slug
`)
	if err != nil {
		return nil, fmt.Errorf("load term keys: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var taxonomy, slug string
		var id int64
		if err := rows.Scan(&taxonomy, &slug, &id); err != nil {
			return nil, fmt.Errorf("scan term key: %w", err)
		}
		out[content.TermKey(taxonomy, slug)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load term keys: %w", err)
	}
	return out, nil
}

// collectKeys reads (key, id) rows.
func collectKeys(rows pgx.Rows) (map[string]int64, error) {
	out := make(map[string]int64)
	for rows.Next() {
		var k string
		var id int64
		if err := rows.Scan(&k, &id); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out[k] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
