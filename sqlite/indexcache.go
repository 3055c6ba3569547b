package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lexcorpus/lexcorpus"
)

// Compile-time interface verification.
var _ lexcorpus.IndexCache = (*IndexCache)(nil)

// IndexCache implements lexcorpus.IndexCache using SQLite. A source's listing
// is swapped wholesale inside one transaction, so a reader never sees a
// half-replaced index or a refresh time without its entries.
type IndexCache struct {
	db *DB
}

// NewIndexCache creates a new IndexCache.
func NewIndexCache(db *DB) *IndexCache {
	return &IndexCache{db: db}
}

func (c *IndexCache) Refreshed(ctx context.Context, source string) (time.Time, error) {
	var refreshedAt string
	err := c.db.QueryRowContext(ctx, `
		SELECT refreshed_at FROM source_index WHERE source = ?
	`, source).Scan(&refreshedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseRFC3339(refreshedAt, "refreshed_at")
}

func (c *IndexCache) Entries(ctx context.Context, source string) ([]lexcorpus.Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, url, citation, date, doc_type, jurisdiction, mime, source_version
		FROM index_entries
		WHERE source = ?
		ORDER BY position ASC
	`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []lexcorpus.Entry
	for rows.Next() {
		e := lexcorpus.Entry{Source: source}
		if err := rows.Scan(&e.ID, &e.URL, &e.Citation, &e.Date, &e.Type,
			&e.Jurisdiction, &e.MIME, &e.SourceVersion); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (c *IndexCache) Replace(ctx context.Context, source string, entries []lexcorpus.Entry, refreshedAt time.Time) error {
	tx, err := c.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO source_index (source, refreshed_at) VALUES (?, ?)
		ON CONFLICT(source) DO UPDATE SET refreshed_at = excluded.refreshed_at
	`, source, refreshedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM index_entries WHERE source = ?
	`, source); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries (source, position, id, url, citation, date, doc_type, jurisdiction, mime, source_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, source, i, e.ID, e.URL, e.Citation,
			e.Date, e.Type, e.Jurisdiction, e.MIME, e.SourceVersion); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// parseRFC3339 parses an RFC3339 formatted timestamp string.
func parseRFC3339(value, fieldName string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", fieldName, err)
	}
	return t, nil
}
