// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/texcite/internal/bib"
	"github.com/pdiddy/texcite/internal/integrity"
	"github.com/pdiddy/texcite/pkg/types"
)

func init() {
	color.NoColor = true
}

func sampleResult() *types.ParseResult {
	r := types.NewParseResult()
	r.RecordParsedFiles("main.tex", "ch1.tex")
	r.RecordOccurrence(types.Occurrence{Key: "zeta", File: "main.tex", Line: 3})
	r.RecordOccurrence(types.Occurrence{Key: "known", File: "main.tex", Line: 4})
	r.RecordOccurrence(types.Occurrence{Key: "alpha", File: "ch1.tex", Line: 7})
	r.RecordOccurrence(types.Occurrence{Key: "zeta", File: "ch1.tex", Line: 9})
	return r
}

func sampleEntries() []bib.Entry {
	return []bib.Entry{
		{Type: "article", Key: "known", Fields: map[string]string{"year": "2001"}},
		{Type: "book", Key: "spare", Fields: map[string]string{"year": "3000"}},
		{Type: "misc", Key: "another", Fields: map[string]string{"year": "circa 1900"}},
		{Type: "misc", Key: "undated"},
	}
}

func fixedYears() integrity.YearChecker {
	return integrity.YearChecker{Now: func() time.Time {
		return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	}}
}

func TestBuild(t *testing.T) {
	rep := Build(sampleResult(), sampleEntries(), fixedYears())

	assert.Equal(t, 2, rep.Files)
	assert.Equal(t, 3, rep.Cited)
	assert.Equal(t, 4, rep.Entries)

	require.Len(t, rep.Missing, 2)
	assert.Equal(t, "alpha", rep.Missing[0].Key)
	assert.Equal(t, 1, rep.Missing[0].Count)
	assert.Equal(t, "zeta", rep.Missing[1].Key)
	assert.Equal(t, 2, rep.Missing[1].Count)
	assert.Equal(t, "main.tex", rep.Missing[1].First.File)
	assert.Equal(t, 3, rep.Missing[1].First.Line)

	assert.Equal(t, []string{"another", "spare", "undated"}, rep.Unused)

	require.Len(t, rep.YearIssues, 2)
	assert.Equal(t, "spare", rep.YearIssues[0].Key)
	assert.Equal(t, integrity.ErrFutureYear.Error(), rep.YearIssues[0].Message)
	assert.Equal(t, "another", rep.YearIssues[1].Key)
	assert.Equal(t, integrity.ErrFirstNotNumeral.Error(), rep.YearIssues[1].Message)
	assert.False(t, rep.Clean())
}

func TestBuildWithoutYearCheck(t *testing.T) {
	rep := Build(sampleResult(), sampleEntries(), nil)
	assert.Empty(t, rep.YearIssues)
}

func TestBuildClean(t *testing.T) {
	r := types.NewParseResult()
	r.RecordParsedFiles("main.tex")
	r.RecordOccurrence(types.Occurrence{Key: "a", File: "main.tex", Line: 1})
	entries := []bib.Entry{{Key: "a", Fields: map[string]string{"year": "1999"}}}

	rep := Build(r, entries, fixedYears())
	assert.True(t, rep.Clean())
	assert.Empty(t, rep.Missing)
	assert.Empty(t, rep.Unused)
}

func TestBuildYearFromStringMacro(t *testing.T) {
	entries, err := bib.Parse(strings.NewReader(`@string{yr = "1999"}
@article{k, year = yr}
`))
	require.NoError(t, err)

	r := types.NewParseResult()
	r.RecordOccurrence(types.Occurrence{Key: "k", File: "main.tex", Line: 1})

	rep := Build(r, entries, fixedYears())
	assert.Empty(t, rep.YearIssues)
	assert.True(t, rep.Clean())
}

func TestBuildDuplicateEntriesReportedOnce(t *testing.T) {
	r := types.NewParseResult()
	entries := []bib.Entry{{Key: "dup"}, {Key: "dup"}}

	rep := Build(r, entries, nil)
	assert.Equal(t, []string{"dup"}, rep.Unused)
}

func TestStubEntries(t *testing.T) {
	rep := Build(sampleResult(), nil, nil)
	stubs := rep.StubEntries()
	require.Len(t, stubs, 3)
	var keys []string
	for _, s := range stubs {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"alpha", "known", "zeta"}, keys)
	assert.Equal(t, "stub, first cited at ch1.tex:7", stubs[0].Field("note"))

	out := bib.FormatBibTeX(stubs)
	assert.Contains(t, out, "@misc{alpha,")
}

func TestWriteText(t *testing.T) {
	var buf strings.Builder
	Build(sampleResult(), sampleEntries(), fixedYears()).WriteText(&buf)
	out := buf.String()

	assert.Contains(t, out, "2 files, 3 cited keys, 4 bibliography entries")
	assert.Contains(t, out, "Missing entries (2):")
	assert.Contains(t, out, "main.tex:3 (2 citations)")
	assert.Contains(t, out, "ch1.tex:7 (1 citation)")
	assert.Contains(t, out, "Unused entries (3):")
	assert.Contains(t, out, "Year problems (2):")
	assert.Contains(t, out, `"3000"`)
}

func TestWriteTextClean(t *testing.T) {
	var buf strings.Builder
	Report{}.WriteText(&buf)
	assert.Contains(t, buf.String(), "No problems found.")
}
