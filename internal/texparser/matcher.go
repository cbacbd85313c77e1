// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texparser

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// texExt is appended to inclusion stems that lack it.
const texExt = ".tex"

// DefaultCiteCommands are the citation command name patterns recognized out
// of the box. Each entry is a regular expression for the command name
// without the leading backslash, e.g. "citep", "[cC]ite" or
// "[cC]ite(author|title|year|t|p)?".
var DefaultCiteCommands = []string{
	"[cC]ite(alt|alp|author|authorfull|date|num|p|t|text|title|url|year|yearpar)?",
	"([aA]|[aA]uto|fnote|foot|footfull|full|no|[nN]ote|[pP]aren|[pP]note|[tT]ext|[sS]mart|super)cite",
	"footcitetext",
	"(block|text)cquote",
}

// citePatternFmt wraps the command alternation: optional star, up to two
// bracketed notes, the braced key list, and an ignored trailing brace group.
const citePatternFmt = `\\(?:%s)\*?(?:\[[^\]]*\]){0,2}\{(?P<key>[^}]*)\}(?:\{[^}]*\})?`

var includePattern = regexp.MustCompile(`\\(?:include|input)\{(?P<file>[^}]*)\}`)

// CitationMatch is one citation command found on a line.
type CitationMatch struct {
	// Keys is the raw comma-separated key list inside the braces.
	Keys string

	// Start and End are the byte offsets of the whole command in the line.
	Start int
	End   int
}

// SplitKeys splits the raw key list on commas, trimming each key and
// dropping empty ones.
func (m CitationMatch) SplitKeys() []string {
	parts := strings.Split(m.Keys, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// CitationMatcher finds citation commands in a line of text. It is built
// once and is safe for concurrent use.
type CitationMatcher struct {
	re       *regexp.Regexp
	keyGroup int
	commands []string
}

var defaultCitationMatcher = MustCitationMatcher(DefaultCiteCommands...)

// DefaultCitationMatcher returns the matcher for DefaultCiteCommands.
func DefaultCitationMatcher() *CitationMatcher {
	return defaultCitationMatcher
}

// NewCitationMatcher compiles commands into a single alternation.
func NewCitationMatcher(commands ...string) (*CitationMatcher, error) {
	if len(commands) == 0 {
		return nil, errors.New("no citation commands given")
	}
	for _, c := range commands {
		if strings.TrimSpace(c) == "" {
			return nil, errors.New("empty citation command pattern")
		}
		if _, err := regexp.Compile(c); err != nil {
			return nil, fmt.Errorf("invalid citation command %q: %w", c, err)
		}
	}

	re, err := regexp.Compile(fmt.Sprintf(citePatternFmt, strings.Join(commands, "|")))
	if err != nil {
		return nil, fmt.Errorf("compiling citation pattern: %w", err)
	}

	return &CitationMatcher{
		re:       re,
		keyGroup: re.SubexpIndex("key"),
		commands: append([]string(nil), commands...),
	}, nil
}

// MustCitationMatcher is like NewCitationMatcher but panics on error.
func MustCitationMatcher(commands ...string) *CitationMatcher {
	m, err := NewCitationMatcher(commands...)
	if err != nil {
		panic(err)
	}
	return m
}

// WithExtraCommands returns a matcher recognizing the default commands plus
// extra. With no extra commands it returns the default matcher.
func WithExtraCommands(extra ...string) (*CitationMatcher, error) {
	if len(extra) == 0 {
		return defaultCitationMatcher, nil
	}
	all := append(append([]string(nil), DefaultCiteCommands...), extra...)
	return NewCitationMatcher(all...)
}

// Commands returns the command patterns the matcher was built from.
func (m *CitationMatcher) Commands() []string {
	return append([]string(nil), m.commands...)
}

// Match yields every citation command in line, left to right.
func (m *CitationMatcher) Match(line string) iter.Seq[CitationMatch] {
	return func(yield func(CitationMatch) bool) {
		for _, loc := range m.re.FindAllStringSubmatchIndex(line, -1) {
			cm := CitationMatch{
				Keys:  line[loc[2*m.keyGroup]:loc[2*m.keyGroup+1]],
				Start: loc[0],
				End:   loc[1],
			}
			if !yield(cm) {
				return
			}
		}
	}
}

// IncludeMatcher finds \input and \include directives and resolves them
// against the directory of the including file.
type IncludeMatcher struct {
	re        *regexp.Regexp
	fileGroup int
}

var defaultIncludeMatcher = &IncludeMatcher{
	re:        includePattern,
	fileGroup: includePattern.SubexpIndex("file"),
}

// DefaultIncludeMatcher returns the \input/\include matcher.
func DefaultIncludeMatcher() *IncludeMatcher {
	return defaultIncludeMatcher
}

// Match yields the resolved path of every inclusion directive in line whose
// target exists as a regular file. Other targets are skipped silently.
func (m *IncludeMatcher) Match(dir, line string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, loc := range m.re.FindAllStringSubmatchIndex(line, -1) {
			stem := strings.TrimSpace(line[loc[2*m.fileGroup]:loc[2*m.fileGroup+1]])
			if stem == "" {
				continue
			}
			path := resolveInclude(dir, stem)
			if !isRegularFile(path) {
				continue
			}
			if !yield(path) {
				return
			}
		}
	}
}

// resolveInclude appends the .tex extension when missing and joins the stem
// to dir. Absolute stems are kept as is.
func resolveInclude(dir, stem string) string {
	if !strings.HasSuffix(stem, texExt) {
		stem += texExt
	}
	if filepath.IsAbs(stem) {
		return filepath.Clean(stem)
	}
	return filepath.Join(dir, stem)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
