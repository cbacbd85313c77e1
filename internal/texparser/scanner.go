// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package texparser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/texcite/pkg/types"
)

// commentMarker starts a full-line comment in TeX sources.
const commentMarker = '%'

// ErrMalformedInput reports a line that is not valid UTF-8.
var ErrMalformedInput = errors.New("malformed input")

// LineError locates a scan failure within a file.
type LineError struct {
	File string
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// scanReport collects what one file contributes to the traversal.
type scanReport struct {
	occurrences []types.Occurrence
	includes    []string
}

// ctxReader fails reads once ctx is done, so a cancelled parse stops at the
// next read instead of finishing the file.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// scanFile reads path line by line and applies both matchers. The report is
// returned even when err is non-nil so the lines read before a fault are
// kept. Context errors are returned unwrapped.
func (p *Parser) scanFile(ctx context.Context, path string) (scanReport, error) {
	var rep scanReport

	f, err := os.Open(path)
	if err != nil {
		return rep, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	br := bufio.NewReader(ctxReader{ctx: ctx, r: f})

	for lineNo := 1; ; lineNo++ {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return rep, ctxErr
			}
			return rep, &LineError{File: path, Line: lineNo, Err: readErr}
		}
		if readErr == io.EOF && raw == "" {
			return rep, nil
		}

		line := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if !utf8.ValidString(line) {
			return rep, &LineError{File: path, Line: lineNo, Err: ErrMalformedInput}
		}

		if !skipLine(line) {
			rep.occurrences = append(rep.occurrences, p.matchCitations(path, lineNo, line)...)
			for inc := range p.includes.Match(dir, line) {
				rep.includes = append(rep.includes, inc)
			}
		}

		if readErr == io.EOF {
			return rep, nil
		}
	}
}

// skipLine reports whether line is blank or a full-line comment.
func skipLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || trimmed[0] == commentMarker
}

// matchCitations turns every citation command on line into one occurrence
// per key.
func (p *Parser) matchCitations(file string, lineNo int, line string) []types.Occurrence {
	var occs []types.Occurrence
	for m := range p.citations.Match(line) {
		for _, key := range m.SplitKeys() {
			occs = append(occs, types.Occurrence{
				Key:   key,
				File:  file,
				Line:  lineNo,
				Start: m.Start,
				End:   m.End,
				Text:  line,
			})
		}
	}
	return occs
}
