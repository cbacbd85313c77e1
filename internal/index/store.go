// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists citation occurrences in a SQLite database so they
// can be queried and exported without rescanning the sources.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/texcite/pkg/types"
)

const (
	dbFile            = "texcite.db"
	defaultMaxResults = 50
)

// Store manages the occurrence database.
type Store struct {
	db         *sql.DB
	indexDir   string
	maxResults int
}

// NewStore opens or creates the database at indexDir/texcite.db and creates
// the schema if it does not exist.
func NewStore(cfg types.IndexConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{
		db:         db,
		indexDir:   cfg.IndexDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			mod_time TEXT NOT NULL,
			nested INTEGER NOT NULL DEFAULT 0,
			commands TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS occurrences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			file TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
			line INTEGER NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_occurrences_key ON occurrences(key)`,
		`CREATE INDEX IF NOT EXISTS idx_occurrences_file ON occurrences(file)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest stores the occurrences of every parsed file in result. A file whose
// modification time and citation commands match the stored ones is skipped;
// otherwise its previous occurrences are replaced. Files that are gone or
// that could not be read to the end are removed from the index and counted
// as failed.
func (s *Store) Ingest(ctx context.Context, result *types.ParseResult, w io.Writer) (IngestSummary, error) {
	byFile := make(map[string][]types.Occurrence)
	for _, key := range result.Keys() {
		for _, occ := range result.Occurrences(key) {
			byFile[occ.File] = append(byFile[occ.File], occ)
		}
	}
	commands := commandsFingerprint(result.CiteCommands())

	var summary IngestSummary

	for _, path := range result.Files() {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		info, err := os.Stat(path)
		if err == nil {
			err = result.Fault(path)
		}
		if err != nil {
			if ferr := s.Forget(ctx, path); ferr != nil {
				err = fmt.Errorf("%w (forgetting stale entry: %v)", err, ferr)
			}
			fmt.Fprintf(w, "failed   %s: %v\n", path, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime, storedCommands string
		err = s.db.QueryRowContext(ctx,
			`SELECT mod_time, commands FROM files WHERE path = ?`, path,
		).Scan(&storedModTime, &storedCommands)

		if err == nil && storedModTime == modTime && storedCommands == commands {
			fmt.Fprintf(w, "skipped  %s\n", path)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		occs := byFile[path]
		if err := s.ingestFile(ctx, path, modTime, commands, result.IsNested(path), occs); err != nil {
			fmt.Fprintf(w, "failed   %s: %v\n", path, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated  %s (%d occurrences)\n", path, len(occs))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d occurrences)\n", path, len(occs))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

// commandsFingerprint is the stored form of a citation command set.
func commandsFingerprint(commands []string) string {
	return strings.Join(commands, "\n")
}

func (s *Store) ingestFile(ctx context.Context, path, modTime, commands string, nested bool, occs []types.Occurrence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrences WHERE file = ?`, path); err != nil {
		return fmt.Errorf("deleting old occurrences: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO files (path, mod_time, nested, commands) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET mod_time=excluded.mod_time, nested=excluded.nested,
		   commands=excluded.commands`,
		path, modTime, nested, commands,
	)
	if err != nil {
		return fmt.Errorf("upserting file: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO occurrences (key, file, line, start_offset, end_offset, text)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, occ := range occs {
		if _, err := stmt.ExecContext(ctx, occ.Key, occ.File, occ.Line, occ.Start, occ.End, occ.Text); err != nil {
			return fmt.Errorf("inserting occurrence of %s: %w", occ.Key, err)
		}
	}

	return tx.Commit()
}

// Forget removes a file and its occurrences from the index.
func (s *Store) Forget(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrences WHERE file = ?`, path); err != nil {
		return fmt.Errorf("deleting occurrences: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return tx.Commit()
}
