package index

// ExportIndex defines the interface for export index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type ExportIndex interface {
	UpsertExport(r ExportRow) error
	DeleteExport(path string) error
	GetChecksum(path string) (string, error)
	GetExport(path string) (*ExportRow, error)
	ListExports() ([]ExportRow, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies ExportIndex at compile time.
var _ ExportIndex = (*DB)(nil)
