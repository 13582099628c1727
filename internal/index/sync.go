package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/coursemark/internal/checksum"
	"github.com/starford/coursemark/internal/storage"
)

// ExportFunc exports one bundle file. The returned row is stored as is,
// except for Path and Checksum, which the Syncer fills in.
type ExportFunc func(ctx context.Context, path string, data []byte) (ExportRow, error)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a sync- or watcher-driven index change.
// kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind string, path string)

// Syncer keeps the export index in line with the course library.
type Syncer struct {
	DB     ExportIndex
	Store  storage.Provider
	Export ExportFunc
	// Fingerprint identifies the export settings. Changing it re-exports
	// every bundle on the next sync.
	Fingerprint string
	// Workers bounds parallel exports during Sync. Zero means 4.
	Workers int
	Logger  *slog.Logger
}

// SyncStats summarizes a Sync run.
type SyncStats struct {
	Exported  int
	Unchanged int
	Failed    int
	Removed   int
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Syncer) workers() int {
	if s.Workers <= 0 {
		return 4
	}
	return s.Workers
}

// Sync walks the library and brings the index up to date:
//   - new/changed bundles are exported in parallel and upserted
//   - bundles removed from disk are deleted from the index
//
// A bundle that fails to export is logged and counted; it does not abort the
// run. cb may be nil.
func (s *Syncer) Sync(ctx context.Context, cb EventCallback) (SyncStats, error) {
	var stats SyncStats
	logger := s.logger()

	metas, err := s.Store.List("")
	if err != nil {
		return stats, err
	}

	checksums, err := s.DB.AllChecksums()
	if err != nil {
		return stats, err
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		stored, known := checksums[m.Path]
		if stored == checksum.Combine(m.Checksum, s.Fingerprint) {
			stats.Unchanged++
			continue
		}

		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			_, expErr := s.ExportFile(gCtx, m.Path)

			mu.Lock()
			defer mu.Unlock()
			if expErr != nil {
				stats.Failed++
				logger.Warn("sync: export failed", slog.String("path", m.Path), slog.String("error", expErr.Error()))
				return nil
			}
			stats.Exported++
			logger.Debug("sync: exported", slog.String("path", m.Path))
			if cb != nil {
				kind := EventCreated
				if known {
					kind = EventUpdated
				}
				cb(kind, m.Path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := s.DB.DeleteExport(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb(EventDeleted, p)
		}
	}

	return stats, nil
}

// ExportFile reads, exports and stores a single bundle.
func (s *Syncer) ExportFile(ctx context.Context, path string) (*ExportRow, error) {
	data, err := s.Store.Read(path)
	if err != nil {
		return nil, err
	}
	row, err := s.Export(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("index: export %s: %w", path, err)
	}
	row.Path = path
	row.Checksum = checksum.Combine(checksum.Sum(data), s.Fingerprint)
	if err := s.DB.UpsertExport(row); err != nil {
		return nil, err
	}
	return &row, nil
}
