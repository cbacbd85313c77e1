// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bib reads bibliography databases: BibTeX files and the
// references.yaml format used by paper projects.
package bib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nickng/bibtex"
)

// Entry is one bibliography record.
type Entry struct {
	// Type is the lowercase entry type (e.g. "article", "book").
	Type string `json:"type" yaml:"type"`

	// Key is the citation key.
	Key string `json:"key" yaml:"key"`

	// Fields maps lowercase field names to their values with the outer
	// braces or quotes removed.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Field returns the value of a field, or "".
func (e Entry) Field(name string) string {
	return e.Fields[strings.ToLower(name)]
}

// Load reads entries from path, choosing the format by extension:
// .yaml and .yml are references files, anything else is BibTeX.
func Load(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadReferences(path)
	default:
		return ReadFile(path)
	}
}

// ReadFile parses the BibTeX file at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bibliography: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}

// Parse reads BibTeX entries from r. @string macros are expanded, '#'
// concatenations joined, and @preamble / @comment blocks dropped.
func Parse(r io.Reader) ([]Entry, error) {
	parsed, err := bibtex.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("reading bibliography: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Entries))
	for _, be := range parsed.Entries {
		e := Entry{
			Type:   strings.ToLower(be.Type),
			Key:    strings.TrimSpace(be.CiteName),
			Fields: make(map[string]string, len(be.Fields)),
		}
		for name, value := range be.Fields {
			if value == nil {
				continue
			}
			e.Fields[strings.ToLower(name)] = strings.TrimSpace(value.String())
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FormatBibTeX renders entries as BibTeX. Fields are written in name order
// so the output is stable.
func FormatBibTeX(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		typ := e.Type
		if typ == "" {
			typ = "misc"
		}
		fmt.Fprintf(&b, "@%s{%s,\n", typ, e.Key)

		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s = {%s},\n", name, e.Fields[name])
		}
		b.WriteString("}\n\n")
	}
	return b.String()
}
