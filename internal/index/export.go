// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/texcite/pkg/types"
)

// ExportEntry groups the occurrences of one key for export.
type ExportEntry struct {
	Key         string             `json:"key" yaml:"key"`
	Occurrences []types.Occurrence `json:"occurrences" yaml:"occurrences"`
}

// Export is the full exported document.
type Export struct {
	Files []FileRecord  `json:"files" yaml:"files"`
	Keys  []ExportEntry `json:"keys" yaml:"keys"`
}

// ExportYAML writes the index to indexDir/export.yaml and returns the path.
// It supports the same filters as Query.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) (string, error) {
	doc, err := s.export(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.indexDir, "export.yaml")
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the index to indexDir/export.json and returns the path.
// It supports the same filters as Query.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) (string, error) {
	doc, err := s.export(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.indexDir, "export.json")
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) export(ctx context.Context, opts QueryOptions) (*Export, error) {
	if opts.MaxResults <= 0 {
		opts.MaxResults = -1
	}
	occs, err := s.Query(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	files, err := s.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	doc := &Export{Files: files, Keys: []ExportEntry{}}
	pos := make(map[string]int)
	for _, occ := range occs {
		i, ok := pos[occ.Key]
		if !ok {
			i = len(doc.Keys)
			pos[occ.Key] = i
			doc.Keys = append(doc.Keys, ExportEntry{Key: occ.Key})
		}
		doc.Keys[i].Occurrences = append(doc.Keys[i].Occurrences, occ)
	}
	return doc, nil
}
