// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// ReferenceEntry records a cited paper in references.yaml.
type ReferenceEntry struct {
	// CitationKey is the key used in \cite commands (e.g. "Vaswani2017").
	CitationKey string `json:"citation_key" yaml:"citation_key"`

	// Title is the cited paper's title.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year.
	Year int `json:"year" yaml:"year"`

	// Venue is the journal or conference (optional).
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// ReferencesFile holds all cited papers from references.yaml.
type ReferencesFile struct {
	Papers []ReferenceEntry `json:"papers" yaml:"papers"`
}

// LoadReferences reads a references.yaml file and converts each paper into
// an Entry of type "article".
func LoadReferences(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading references: %w", err)
	}
	var refs ReferencesFile
	if err := yaml.Unmarshal(data, &refs); err != nil {
		return nil, fmt.Errorf("parsing references: %w", err)
	}

	entries := make([]Entry, 0, len(refs.Papers))
	for _, r := range refs.Papers {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

func (r ReferenceEntry) toEntry() Entry {
	e := Entry{Type: "article", Key: r.CitationKey, Fields: make(map[string]string)}
	if r.Title != "" {
		e.Fields["title"] = r.Title
	}
	if len(r.Authors) > 0 {
		e.Fields["author"] = strings.Join(r.Authors, " and ")
	}
	if r.Year > 0 {
		e.Fields["year"] = strconv.Itoa(r.Year)
	}
	if r.Venue != "" {
		e.Fields["journal"] = r.Venue
	}
	return e
}
