//go:build !sqlite_fts5

package index

import "testing"

func TestFallbackSearch_EscapesWildcards(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertExport(ExportRow{Path: "a.json", RunID: "r", Title: "A", Checksum: "1", Markdown: "score 100% reached"})
	_ = db.UpsertExport(ExportRow{Path: "b.json", RunID: "r", Title: "B", Checksum: "2", Markdown: "score 1000 reached"})
	_ = db.UpsertExport(ExportRow{Path: "c.json", RunID: "r", Title: "C", Checksum: "3", Markdown: "snake_case name"})

	results, err := db.Search("100%", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "a.json" {
		t.Errorf("results = %v, want only a.json", results)
	}

	results, _ = db.Search("e_c", 10)
	if len(results) != 1 || results[0].Path != "c.json" {
		t.Errorf("results = %v, want only c.json", results)
	}
}
