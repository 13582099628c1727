//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS exports_fts USING fts5(
			path UNINDEXED,
			title,
			markdown,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, title, markdown string) error {
	_, _ = tx.Exec(`DELETE FROM exports_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO exports_fts (path, title, markdown) VALUES (?, ?, ?)`,
		path, title, markdown)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM exports_fts WHERE path = ?`, path)
}

// matchQuery turns free text into an FTS5 query matching every term.
// Terms are quoted so that LiaScript syntax like [[x]] or @input is not
// parsed as FTS5 operators.
func matchQuery(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = matchQuery(query)
	if query == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT path,
		       title,
		       snippet(exports_fts, 2, '<b>', '</b>', '...', 64)
		FROM exports_fts
		WHERE exports_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
