package catalog

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS archives (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		platform TEXT,
		version INTEGER,
		source_hash INTEGER,
		status TEXT NOT NULL,
		error TEXT,
		warnings INTEGER NOT NULL DEFAULT 0,
		processed_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entries (
		archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
		idx INTEGER NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		data_offset INTEGER NOT NULL,
		data_size INTEGER NOT NULL,
		PRIMARY KEY (archive_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		xxhash INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS warnings (
		archive_id INTEGER NOT NULL REFERENCES archives(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		message TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS archives_path ON archives(path)`,
	`CREATE INDEX IF NOT EXISTS files_xxhash ON files(xxhash)`,
}

func (c *Catalog) createSchema(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := c.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating catalog schema: %w", err)
		}
	}
	return nil
}
