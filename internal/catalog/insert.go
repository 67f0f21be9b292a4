package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Status values for processed archives
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Archive is one processed input file
type Archive struct {
	Path       string
	Kind       string
	Platform   string
	Version    int
	SourceHash uint64
	Status     string
	Err        error
	Entries    []Entry
	Files      []File
	Warnings   []Warning
}

// Entry is one slot of an archive's entry table
type Entry struct {
	Index  int
	Type   string
	Name   string
	Offset int64
	Size   int64
}

// File is one file written while processing an archive
type File struct {
	Name string
	Path string
	Size int64
	Hash uint64
}

// Warning is an unresolved reference reported while building a scene
type Warning struct {
	Kind    string
	Name    string
	Message string
}

// Record stores an archive with its entries, files and warnings in one
// transaction and returns the archive's row id
func (c *Catalog) Record(ctx context.Context, a *Archive) (int64, error) {
	if c.db == nil {
		return 0, fmt.Errorf("catalog connection is closed")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var errText sql.NullString
	if a.Err != nil {
		errText = sql.NullString{String: a.Err.Error(), Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO archives (path, kind, platform, version, source_hash, status, error, warnings, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Path, a.Kind, a.Platform, a.Version, int64(a.SourceHash), a.Status, errText,
		len(a.Warnings), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting archive %s: %w", a.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading archive id: %w", err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO entries (archive_id, idx, type, name, data_offset, data_size) VALUES (?, ?, ?, ?, ?, ?)`,
		a.Entries, func(e Entry) []any {
			return []any{id, e.Index, e.Type, e.Name, e.Offset, e.Size}
		}); err != nil {
		return 0, fmt.Errorf("inserting entries: %w", err)
	}

	// hashes are stored as their signed bit pattern
	if err := insertRows(ctx, tx, `INSERT INTO files (archive_id, name, path, size, xxhash) VALUES (?, ?, ?, ?, ?)`,
		a.Files, func(f File) []any {
			return []any{id, f.Name, f.Path, f.Size, int64(f.Hash)}
		}); err != nil {
		return 0, fmt.Errorf("inserting files: %w", err)
	}

	if err := insertRows(ctx, tx, `INSERT INTO warnings (archive_id, kind, name, message) VALUES (?, ?, ?, ?)`,
		a.Warnings, func(w Warning) []any {
			return []any{id, w.Kind, w.Name, w.Message}
		}); err != nil {
		return 0, fmt.Errorf("inserting warnings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	slog.Debug("Recorded archive", "path", a.Path, "status", a.Status,
		"entries", len(a.Entries), "files", len(a.Files), "warnings", len(a.Warnings))
	return id, nil
}

func insertRows[T any](ctx context.Context, tx *sql.Tx, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, args(row)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
