package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"PaperRadar/internal/domain"
	"PaperRadar/internal/ports"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresRepository persists seen items for deduplication and summary
// caching.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.ItemRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SeenGUIDs returns which of the given guids already exist in storage.
func (r *PostgresRepository) SeenGUIDs(ctx context.Context, guids []string) (map[string]bool, error) {
	if r.db == nil || len(guids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := psql.
		Select("guid").
		From("seen_items").
		Where(squirrel.Expr("guid = ANY(?)", pq.StringArray(guids))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query seen: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return nil, fmt.Errorf("scan guid: %w", err)
		}
		result[guid] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// SaveItem upserts the item snapshot. Degraded summaries are stored empty so
// the next run regenerates them; a stored non-empty summary is never
// overwritten with an empty one.
func (r *PostgresRepository) SaveItem(ctx context.Context, item domain.ParsedItem, summary string, degraded bool) error {
	if r.db == nil {
		return nil
	}

	if degraded {
		summary = ""
	}

	query, args, err := psql.
		Insert("seen_items").
		Columns("guid", "title", "url", "author", "source", "published_at", "summary").
		Values(
			item.GUID,
			item.Title,
			item.URL,
			item.Author,
			item.Source,
			item.PublishedAt.UTC().Format(time.RFC3339),
			summary,
		).
		Suffix(`ON CONFLICT (guid) DO UPDATE
			SET summary = EXCLUDED.summary,
			    updated_at = NOW()
			WHERE EXCLUDED.summary <> ''`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert item %s: %w", item.GUID, err)
	}

	return nil
}
