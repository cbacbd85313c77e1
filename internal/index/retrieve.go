// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/texcite/pkg/types"
)

// QueryOptions filters a Query. Empty fields do not filter.
type QueryOptions struct {
	// Key matches a citation key exactly.
	Key string

	// KeyPrefix matches keys starting with the prefix.
	KeyPrefix string

	// File matches the occurrence's file path exactly.
	File string

	// MaxResults caps the number of rows; 0 uses the store default and a
	// negative value returns every row.
	MaxResults int
}

// KeyCount is a citation key with its number of indexed occurrences.
type KeyCount struct {
	Key   string `json:"key" yaml:"key"`
	Count int    `json:"count" yaml:"count"`
	Files int    `json:"files" yaml:"files"`
}

// FileRecord is one indexed file.
type FileRecord struct {
	Path    string `json:"path" yaml:"path"`
	ModTime string `json:"mod_time" yaml:"mod_time"`
	Nested  bool   `json:"nested" yaml:"nested"`
}

// Query returns occurrences matching opts ordered by file, line and offset.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]types.Occurrence, error) {
	var (
		where []string
		args  []any
	)
	if opts.Key != "" {
		where = append(where, "key = ?")
		args = append(args, opts.Key)
	}
	if opts.KeyPrefix != "" {
		where = append(where, "key LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(opts.KeyPrefix)+"%")
	}
	if opts.File != "" {
		where = append(where, "file = ?")
		args = append(args, opts.File)
	}

	limit := opts.MaxResults
	if limit == 0 {
		limit = s.maxResults
	}

	q := `SELECT key, file, line, start_offset, end_offset, text FROM occurrences`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY file, line, start_offset, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying occurrences: %w", err)
	}
	defer rows.Close()

	var out []types.Occurrence
	for rows.Next() {
		var occ types.Occurrence
		if err := rows.Scan(&occ.Key, &occ.File, &occ.Line, &occ.Start, &occ.End, &occ.Text); err != nil {
			return nil, fmt.Errorf("scanning occurrence: %w", err)
		}
		out = append(out, occ)
	}
	return out, rows.Err()
}

// Keys returns every indexed key with its occurrence and file counts,
// sorted by key.
func (s *Store) Keys(ctx context.Context) ([]KeyCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, count(*), count(DISTINCT file) FROM occurrences GROUP BY key ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer rows.Close()

	var out []KeyCount
	for rows.Next() {
		var kc KeyCount
		if err := rows.Scan(&kc.Key, &kc.Count, &kc.Files); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}

// Files returns every indexed file sorted by path.
func (s *Store) Files(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, mod_time, nested FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Path, &f.ModTime, &f.Nested); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
