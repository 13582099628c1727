package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/coursemark/internal/apperr"
	"github.com/starford/coursemark/internal/models"
)

// ExportRow represents a row in the exports table. Path is the bundle path in
// the course library.
type ExportRow struct {
	Path     string
	RunID    string
	Slug     string
	Title    string
	Checksum string
	Markdown string
	// Diagnostics is the JSON encoded report of the export.
	Diagnostics json.RawMessage
	Media       []models.MediaFileReplacement
	Incomplete  bool
	ExportedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// UpsertExport inserts or replaces an export and its FTS entry within a transaction.
func (db *DB) UpsertExport(r ExportRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	mediaJSON, err := json.Marshal(nonNilMedia(r.Media))
	if err != nil {
		return fmt.Errorf("index: encode media: %w", err)
	}
	diags := r.Diagnostics
	if len(diags) == 0 {
		diags = json.RawMessage("{}")
	}
	if r.ExportedAt.IsZero() {
		r.ExportedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO exports (path, run_id, slug, title, checksum, markdown, diagnostics, media, incomplete, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			run_id      = excluded.run_id,
			slug        = excluded.slug,
			title       = excluded.title,
			checksum    = excluded.checksum,
			markdown    = excluded.markdown,
			diagnostics = excluded.diagnostics,
			media       = excluded.media,
			incomplete  = excluded.incomplete,
			exported_at = excluded.exported_at
	`, r.Path, r.RunID, r.Slug, r.Title, r.Checksum, r.Markdown, string(diags), string(mediaJSON), r.Incomplete, r.ExportedAt)
	if err != nil {
		return fmt.Errorf("index: upsert export: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, r.Path, r.Title, r.Markdown); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteExport removes an export and its FTS entry.
func (db *DB) DeleteExport(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM exports WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete export: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a bundle, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM exports WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetExport returns the full export of a bundle or apperr.ErrNotFound.
func (db *DB) GetExport(path string) (*ExportRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, run_id, slug, title, checksum, markdown, diagnostics, media, incomplete, exported_at
		FROM exports WHERE path = ?`, path)

	var r ExportRow
	var diags, media string
	err := row.Scan(&r.Path, &r.RunID, &r.Slug, &r.Title, &r.Checksum, &r.Markdown, &diags, &media, &r.Incomplete, &r.ExportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get export: %w", err)
	}
	r.Diagnostics = json.RawMessage(diags)
	if err := json.Unmarshal([]byte(media), &r.Media); err != nil {
		return nil, fmt.Errorf("index: decode media: %w", err)
	}
	return &r, nil
}

// ListExports returns every export ordered by title. Markdown, diagnostics
// and media are left empty.
func (db *DB) ListExports() ([]ExportRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, run_id, slug, title, checksum, incomplete, exported_at
		FROM exports ORDER BY title, path`)
	if err != nil {
		return nil, fmt.Errorf("index: list exports: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		if err := rows.Scan(&r.Path, &r.RunID, &r.Slug, &r.Title, &r.Checksum, &r.Incomplete, &r.ExportedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum of every exported bundle.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM exports`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func nonNilMedia(m []models.MediaFileReplacement) []models.MediaFileReplacement {
	if m == nil {
		return []models.MediaFileReplacement{}
	}
	return m
}
