// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report cross-checks the citations found in LaTeX sources against a
// bibliography: keys cited but not defined, entries never cited, and entries
// whose year field is implausible.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/pdiddy/texcite/internal/bib"
	"github.com/pdiddy/texcite/pkg/types"
)

// Checker validates a single field value. integrity.YearChecker satisfies it.
type Checker interface {
	Check(value string) error
}

// MissingKey is a cited key with no bibliography entry.
type MissingKey struct {
	Key   string           `json:"key" yaml:"key"`
	Count int              `json:"count" yaml:"count"`
	First types.Occurrence `json:"first" yaml:"first"`
}

// FieldIssue is a bibliography field that failed a check.
type FieldIssue struct {
	Key     string `json:"key" yaml:"key"`
	Field   string `json:"field" yaml:"field"`
	Value   string `json:"value" yaml:"value"`
	Message string `json:"message" yaml:"message"`
}

// Report is the outcome of a cross-check.
type Report struct {
	Files      int          `json:"files" yaml:"files"`
	Cited      int          `json:"cited" yaml:"cited"`
	Entries    int          `json:"entries" yaml:"entries"`
	Missing    []MissingKey `json:"missing" yaml:"missing"`
	Unused     []string     `json:"unused" yaml:"unused"`
	YearIssues []FieldIssue `json:"year_issues,omitempty" yaml:"year_issues,omitempty"`
}

// Clean reports whether nothing was found.
func (r Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Unused) == 0 && len(r.YearIssues) == 0
}

// Build compares result against entries. When years is nil the year fields
// are not checked.
func Build(result *types.ParseResult, entries []bib.Entry, years Checker) Report {
	defined := make(map[string]bool, len(entries))
	for _, e := range entries {
		defined[e.Key] = true
	}

	rep := Report{
		Files:   len(result.Files()),
		Cited:   result.KeyCount(),
		Entries: len(entries),
		Missing: []MissingKey{},
		Unused:  []string{},
	}

	for _, key := range result.Keys() {
		if defined[key] {
			continue
		}
		first, _ := result.FirstOccurrence(key)
		rep.Missing = append(rep.Missing, MissingKey{
			Key:   key,
			Count: len(result.Occurrences(key)),
			First: first,
		})
	}
	sort.Slice(rep.Missing, func(i, j int) bool { return rep.Missing[i].Key < rep.Missing[j].Key })

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		if _, cited := result.FirstOccurrence(e.Key); !cited {
			rep.Unused = append(rep.Unused, e.Key)
		}
	}
	sort.Strings(rep.Unused)

	if years != nil {
		for _, e := range entries {
			value := e.Field("year")
			if err := years.Check(value); err != nil {
				rep.YearIssues = append(rep.YearIssues, FieldIssue{
					Key: e.Key, Field: "year", Value: value, Message: err.Error(),
				})
			}
		}
	}

	return rep
}

// StubEntries returns a placeholder entry for every missing key, ready to be
// written with bib.FormatBibTeX.
func (r Report) StubEntries() []bib.Entry {
	stubs := make([]bib.Entry, 0, len(r.Missing))
	for _, m := range r.Missing {
		stubs = append(stubs, bib.Entry{
			Type:   "misc",
			Key:    m.Key,
			Fields: map[string]string{"note": "stub, first cited at " + location(m.First)},
		})
	}
	return stubs
}

// WriteText renders the report for a terminal. Colour is controlled by
// color.NoColor.
func (r Report) WriteText(w io.Writer) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	fmt.Fprintf(w, "%s files, %s cited keys, %s bibliography entries\n",
		humanize.Comma(int64(r.Files)), humanize.Comma(int64(r.Cited)), humanize.Comma(int64(r.Entries)))

	if r.Clean() {
		green.Fprintln(w, "No problems found.")
		return
	}

	if len(r.Missing) > 0 {
		red.Fprintf(w, "\nMissing entries (%d):\n", len(r.Missing))
		for _, m := range r.Missing {
			fmt.Fprintf(w, "  %-30s %s (%s)\n", m.Key, location(m.First), pluralize(m.Count, "citation"))
		}
	}
	if len(r.Unused) > 0 {
		yellow.Fprintf(w, "\nUnused entries (%d):\n", len(r.Unused))
		for _, k := range r.Unused {
			fmt.Fprintf(w, "  %s\n", k)
		}
	}
	if len(r.YearIssues) > 0 {
		yellow.Fprintf(w, "\nYear problems (%d):\n", len(r.YearIssues))
		for _, is := range r.YearIssues {
			fmt.Fprintf(w, "  %-30s %q: %s\n", is.Key, is.Value, is.Message)
		}
	}
}

func location(occ types.Occurrence) string {
	if occ.File == "" {
		return fmt.Sprintf("line %d", occ.Line)
	}
	return fmt.Sprintf("%s:%d", occ.File, occ.Line)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}
