// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texparser

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/texcite/pkg/types"
)

// writeFile is a test helper that creates a file with the given content
// and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newTestParser returns a parser logging into the returned buffer.
func newTestParser(opts ...Option) (*Parser, *bytes.Buffer) {
	var buf bytes.Buffer
	opts = append([]Option{WithLogger(log.New(&buf))}, opts...)
	return New(opts...), &buf
}

func TestParseStringSplitsKeys(t *testing.T) {
	p := New()
	result := p.ParseString(`\cite{a,b,c}`)

	require.Equal(t, []string{"a", "b", "c"}, result.Keys())
	for _, key := range []string{"a", "b", "c"} {
		occs := result.Occurrences(key)
		require.Len(t, occs, 1)
		assert.Equal(t, types.Occurrence{
			Key: key, File: "", Line: 1, Start: 0, End: 12, Text: `\cite{a,b,c}`,
		}, occs[0])
	}
	assert.Empty(t, result.Files())
}

func TestParseStringNoCitation(t *testing.T) {
	for _, text := range []string{"", "plain prose", `\cite`, `\emph{word}`} {
		result := New().ParseString(text)
		assert.Zero(t, result.KeyCount(), "text %q", text)
	}
}

func TestParseStringIgnoresInclusions(t *testing.T) {
	result := New().ParseString(`\input{chapter1} \cite{x}`)
	assert.Equal(t, []string{"x"}, result.Keys())
	assert.Empty(t, result.Files())
}

func TestParseLineNumbersAndOffsets(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.tex", strings.Join([]string{
		`\documentclass{article}`,
		`\begin{document}`,
		``,
		`% \cite{commented}`,
		`\cite{smith2020}`,
		`Some text.`,
		`More text.`,
		`   % indented comment \cite{alsocommented}`,
		`Even more.`,
		`\citep{jones1999,smith2020}`,
		`\end{document}`,
	}, "\n"))

	p, logs := newTestParser()
	result, err := p.ParseFile(context.Background(), main)
	require.NoError(t, err)
	assert.Empty(t, logs.String())

	smith := result.Occurrences("smith2020")
	require.Len(t, smith, 2)
	assert.Equal(t, 5, smith[0].Line)
	assert.Equal(t, 0, smith[0].Start)
	assert.Equal(t, 16, smith[0].End)
	assert.Equal(t, 10, smith[1].Line)
	assert.Equal(t, 0, smith[1].Start)
	assert.Equal(t, 27, smith[1].End)

	jones := result.Occurrences("jones1999")
	require.Len(t, jones, 1)
	assert.Equal(t, 10, jones[0].Line)
	assert.Equal(t, smith[1].Start, jones[0].Start)
	assert.Equal(t, smith[1].End, jones[0].End)
	assert.Equal(t, main, jones[0].File)

	assert.Nil(t, result.Occurrences("commented"))
	assert.Nil(t, result.Occurrences("alsocommented"))
	assert.Equal(t, []string{"smith2020", "jones1999"}, result.Keys())
	assert.Equal(t, []string{main}, result.Files())
}

func TestParseSkipsCommentedInclusion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "chapter1.tex", `\cite{foo}`)
	main := writeFile(t, dir, "main.tex", "% \\input{chapter1}\n\n")

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)
	assert.Equal(t, []string{main}, result.Files())
	assert.Zero(t, result.KeyCount())
}

func TestParseFollowsInput(t *testing.T) {
	dir := t.TempDir()
	chapter := writeFile(t, dir, "chapter1.tex", "Intro.\n\\cite{foo}\n")
	main := writeFile(t, dir, "main.tex", "\\input{chapter1}\n")

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)

	assert.Equal(t, []string{main, chapter}, result.Files())
	assert.Equal(t, []string{chapter}, result.NestedFiles())
	assert.True(t, result.IsNested(chapter))
	assert.False(t, result.IsNested(main))

	foo := result.Occurrences("foo")
	require.Len(t, foo, 1)
	assert.Equal(t, chapter, foo[0].File)
	assert.Equal(t, 2, foo[0].Line)
}

func TestParseResolvesRelativeToIncludingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chapters", "sections"), 0o755))
	sec := writeFile(t, filepath.Join(dir, "chapters", "sections"), "s1.tex", `\cite{deep}`)
	ch := writeFile(t, filepath.Join(dir, "chapters"), "ch1.tex", `\input{sections/s1}`)
	// A file next to main with the same stem must not be picked up.
	writeFile(t, dir, "s1.tex", `\cite{wrong}`)
	main := writeFile(t, dir, "main.tex", `\include{chapters/ch1}`)

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)

	assert.Equal(t, []string{main, ch, sec}, result.Files())
	assert.Equal(t, []string{"deep"}, result.Keys())
}

func TestParseMissingInclusionIsSilent(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.tex", "\\input{missing}\n\\cite{x}\n")

	p, logs := newTestParser()
	result, err := p.ParseFile(context.Background(), main)
	require.NoError(t, err)

	assert.Equal(t, []string{main}, result.Files())
	assert.Empty(t, result.NestedFiles())
	assert.Empty(t, logs.String())
}

func TestParseMissingTopLevelFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.tex")

	p, logs := newTestParser()
	result, err := p.Parse(context.Background(), []string{missing})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Zero(t, result.KeyCount())
	assert.Empty(t, result.Files())
	assert.Contains(t, logs.String(), "file does not exist")
	assert.Contains(t, logs.String(), missing)
}

func TestParseMissingFileDoesNotStopBatch(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tex", `\cite{ka}`)
	b := writeFile(t, dir, "b.tex", `\cite{kb}`)
	missing := filepath.Join(dir, "missing.tex")

	result, err := New().Parse(context.Background(), []string{a, missing, b})
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, result.Files())
	assert.Equal(t, []string{"ka", "kb"}, result.Keys())
}

func TestParseCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tex", "\\input{b}\n\\cite{fromA}\n")
	b := writeFile(t, dir, "b.tex", "\\input{a}\n\\input{b}\n\\cite{fromB}\n")

	result, err := New().ParseFile(context.Background(), a)
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, result.Files())
	assert.Len(t, result.Occurrences("fromA"), 1)
	assert.Len(t, result.Occurrences("fromB"), 1)
}

func TestParseCycleThroughParentDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ch"), 0o755))
	main := writeFile(t, dir, "main.tex", `\input{ch/one}`)
	one := writeFile(t, filepath.Join(dir, "ch"), "one.tex", `\input{../main}`)

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)
	assert.Equal(t, []string{main, one}, result.Files())
}

func TestParseSharedInclusionScannedOnce(t *testing.T) {
	dir := t.TempDir()
	shared := writeFile(t, dir, "shared.tex", `\cite{common}`)
	a := writeFile(t, dir, "a.tex", `\input{shared}`)
	b := writeFile(t, dir, "b.tex", `\input{shared} \input{shared.tex}`)

	result, err := New().Parse(context.Background(), []string{a, b, a})
	require.NoError(t, err)

	assert.Equal(t, []string{a, b, shared}, result.Files())
	assert.Len(t, result.Occurrences("common"), 1)
}

func TestParseTopLevelFileAlsoIncludedIsScannedOnce(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tex", `\input{b}`)
	b := writeFile(t, dir, "b.tex", `\cite{k}`)

	result, err := New().Parse(context.Background(), []string{a, b})
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, result.Files())
	assert.Empty(t, result.NestedFiles())
	assert.Len(t, result.Occurrences("k"), 1)
}

func TestParseOrderIsFirstDiscovery(t *testing.T) {
	dir := t.TempDir()
	ch := writeFile(t, dir, "ch.tex", `\cite{k}`)
	main := writeFile(t, dir, "main.tex", "\\cite{k}\n\\input{ch}\n\\cite{k}\n")

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)

	occs := result.Occurrences("k")
	require.Len(t, occs, 3)
	assert.Equal(t, []string{main, main, ch}, []string{occs[0].File, occs[1].File, occs[2].File})
	assert.Equal(t, []int{1, 3, 1}, []int{occs[0].Line, occs[1].Line, occs[2].Line})

	first, ok := result.FirstOccurrence("k")
	require.True(t, ok)
	assert.Equal(t, occs[0], first)
}

func TestParseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ch1.tex", "\\cite{a,b}\n\\input{ch2}\n")
	writeFile(t, dir, "ch2.tex", "\\citet{c}\n\\input{ch1}\n")
	main := writeFile(t, dir, "main.tex", "\\input{ch1}\n\\cite{c,a}\n")

	p := New()
	first, err := p.ParseFile(context.Background(), main)
	require.NoError(t, err)
	second, err := p.ParseFile(context.Background(), main)
	require.NoError(t, err)

	assert.Equal(t, first.Snapshot(), second.Snapshot())
	assert.NotSame(t, first, second)
}

func TestParseCRLFLineEndings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ch.tex", `\cite{inner}`)
	main := writeFile(t, dir, "main.tex", "\\cite{a}\r\n\r\n\\input{ch}\r\n\\cite{b}")

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)

	b := result.Occurrences("b")
	require.Len(t, b, 1)
	assert.Equal(t, 4, b[0].Line)
	assert.Equal(t, `\cite{b}`, b[0].Text)
	assert.Equal(t, `\cite{a}`, result.Occurrences("a")[0].Text)
	assert.Len(t, result.Occurrences("inner"), 1)
}

func TestParseMalformedInputAbandonsFileOnly(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.tex", "\\cite{before}\nbroken \xff\xfe line \\cite{hidden}\n\\cite{after}\n")
	good := writeFile(t, dir, "good.tex", `\cite{good}`)

	p, logs := newTestParser()
	result, err := p.Parse(context.Background(), []string{bad, good})
	require.NoError(t, err)

	assert.Equal(t, []string{bad, good}, result.Files())
	assert.Equal(t, []string{"before", "good"}, result.Keys())
	assert.Contains(t, logs.String(), "parse failed")
	assert.Contains(t, logs.String(), "malformed input")
	assert.Contains(t, logs.String(), "*errors.errorString")

	assert.ErrorIs(t, result.Fault(bad), ErrMalformedInput)
	assert.NoError(t, result.Fault(good))
}

func TestParseUnreadableFileIsLogged(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "notafile.tex")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	good := writeFile(t, dir, "good.tex", `\cite{good}`)

	p, logs := newTestParser()
	result, err := p.Parse(context.Background(), []string{sub, good})
	require.NoError(t, err)

	assert.True(t, result.HasFile(sub))
	assert.Equal(t, []string{"good"}, result.Keys())
	assert.Contains(t, logs.String(), "parse failed")
}

func TestParseCancelledReturnsNil(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.tex", `\cite{x}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, logs := newTestParser()
	result, err := p.ParseFile(ctx, main)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Contains(t, logs.String(), "parsing has been interrupted")
}

func TestCtxReaderStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := ctxReader{ctx: ctx, r: strings.NewReader("abc")}

	buf := make([]byte, 1)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanFileStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "big.tex", strings.Repeat("\\cite{k}\n", 1000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := New().scanFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rep.occurrences)
}

func TestParseWithCustomMatcher(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.tex", `\mycite{a} \cite{b}`)

	m, err := NewCitationMatcher("mycite")
	require.NoError(t, err)

	result, err := New(WithCitationMatcher(m)).ParseFile(context.Background(), main)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Keys())
	assert.Equal(t, []string{"mycite"}, result.CiteCommands())
}

func TestParseRecordsDefaultCiteCommands(t *testing.T) {
	main := writeFile(t, t.TempDir(), "main.tex", `\cite{a}`)

	result, err := New().ParseFile(context.Background(), main)
	require.NoError(t, err)
	assert.Equal(t, DefaultCiteCommands, result.CiteCommands())
}

func TestParseConcurrentCallsAreIndependent(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tex", `\cite{ka}`)
	b := writeFile(t, dir, "b.tex", `\cite{kb}`)

	p := New()
	results := make(chan *types.ParseResult, 2)
	for _, f := range []string{a, b} {
		go func() {
			r, _ := p.ParseFile(context.Background(), f)
			results <- r
		}()
	}

	var keys []string
	for range 2 {
		r := <-results
		require.NotNil(t, r)
		require.Equal(t, 1, r.KeyCount())
		keys = append(keys, r.Keys()...)
	}
	assert.ElementsMatch(t, []string{"ka", "kb"}, keys)
}
