// Package archive exports the discovery queue for downstream analysis: a
// dated JSON snapshot for humans and a SQLite archive for queries.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// relevanceRank orders export output: high first, then medium, then low.
var relevanceRank = map[types.Relevance]int{
	types.RelevanceHigh:   0,
	types.RelevanceMedium: 1,
	types.RelevanceLow:    2,
}

// Result reports what one export produced.
type Result struct {
	JSONPath string
	DBPath   string
	Count    int
}

// Exporter writes queue snapshots into a directory.
type Exporter struct {
	store  store.Store
	dir    string
	logger *zap.Logger

	now func() time.Time // test hook
}

// NewExporter creates an exporter writing into dir.
func NewExporter(s store.Store, dir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:  s,
		dir:    dir,
		logger: logger.Named("archive"),
		now:    time.Now,
	}
}

// Export writes the dated JSON snapshot and refreshes the SQLite archive.
// Items are ordered by relevance tier, then discovery time descending.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return Result{}, fmt.Errorf("creating export directory: %w", err)
	}

	discoveries, err := e.store.All()
	if err != nil {
		return Result{}, fmt.Errorf("reading discoveries: %w", err)
	}

	sort.SliceStable(discoveries, func(i, j int) bool {
		ri, rj := relevanceRank[discoveries[i].Relevance], relevanceRank[discoveries[j].Relevance]
		if ri != rj {
			return ri < rj
		}
		return discoveries[i].DiscoveredAt.After(discoveries[j].DiscoveredAt)
	})

	jsonPath := filepath.Join(e.dir, fmt.Sprintf("discoveries_%s.json", e.now().Format("2006-01-02")))
	if err := writeJSON(jsonPath, discoveries); err != nil {
		return Result{}, err
	}

	dbPath := filepath.Join(e.dir, "archive.db")
	if err := e.writeSQLite(ctx, dbPath, discoveries); err != nil {
		return Result{}, err
	}

	e.logger.Info("export complete",
		zap.Int("count", len(discoveries)),
		zap.String("json", jsonPath),
		zap.String("db", dbPath))

	return Result{JSONPath: jsonPath, DBPath: dbPath, Count: len(discoveries)}, nil
}

func writeJSON(path string, discoveries []types.Discovery) error {
	data, err := json.MarshalIndent(discoveries, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing export: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("committing export: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS discoveries (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT,
	url TEXT,
	relevance TEXT NOT NULL,
	metadata TEXT,
	discovered_at TEXT NOT NULL,
	status TEXT NOT NULL,
	reviewed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_discoveries_source ON discoveries(source);
CREATE INDEX IF NOT EXISTS idx_discoveries_status ON discoveries(status);
`

func (e *Exporter) writeSQLite(ctx context.Context, path string, discoveries []types.Discovery) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening archive db: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO discoveries
		(id, source, type, title, summary, url, relevance, metadata, discovered_at, status, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range discoveries {
		metadata, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("serializing metadata for %s: %w", d.ID, err)
		}

		var reviewedAt any
		if d.ReviewedAt != nil {
			reviewedAt = d.ReviewedAt.Format(time.RFC3339)
		}

		if _, err := stmt.ExecContext(ctx,
			d.ID, string(d.Source), d.Type, d.Title, d.Summary, d.URL,
			string(d.Relevance), string(metadata),
			d.DiscoveredAt.Format(time.RFC3339), string(d.Status), reviewedAt,
		); err != nil {
			return fmt.Errorf("inserting %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing archive: %w", err)
	}
	return nil
}
