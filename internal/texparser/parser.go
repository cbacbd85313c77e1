// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package texparser extracts citation keys from LaTeX sources.
// It scans files line by line, records every citation command with its
// file, line and offsets, and follows \input and \include directives until
// no new files are discovered.
package texparser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/texcite/pkg/types"
)

// Parser drives the scan over a set of files. It only holds immutable
// matchers and a logger, so one Parser may serve concurrent calls; each call
// owns its own result.
type Parser struct {
	citations *CitationMatcher
	includes  *IncludeMatcher
	logger    *log.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the sink for per-file errors. The default discards them.
func WithLogger(l *log.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithCitationMatcher replaces the default citation matcher.
func WithCitationMatcher(m *CitationMatcher) Option {
	return func(p *Parser) {
		if m != nil {
			p.citations = m
		}
	}
}

// New returns a Parser using the default matchers.
func New(opts ...Option) *Parser {
	p := &Parser{
		citations: DefaultCitationMatcher(),
		includes:  DefaultIncludeMatcher(),
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseString treats text as line 1 of a nameless file. Only citations are
// matched; inclusion directives are not followed and no file is registered.
func (p *Parser) ParseString(text string) *types.ParseResult {
	result := types.NewParseResult()
	for _, occ := range p.matchCitations("", 1, text) {
		result.RecordOccurrence(occ)
	}
	return result
}

// ParseFile is Parse with a single file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*types.ParseResult, error) {
	return p.Parse(ctx, []string{path})
}

// Parse scans paths and every file they transitively include. Per-file
// problems are logged and never returned: a missing top-level file is left
// out of the parsed set, and a read failure abandons the rest of that file
// only and is recorded on the result. The only error is ctx's, in which
// case the result is nil.
func (p *Parser) Parse(ctx context.Context, paths []string) (*types.ParseResult, error) {
	result := types.NewParseResult()
	result.RecordCiteCommands(p.citations.Commands()...)

	batch := p.topLevelBatch(paths)
	result.RecordParsedFiles(batch...)

	for len(batch) > 0 {
		var next []string
		queued := make(map[string]bool)

		for _, file := range batch {
			if err := ctx.Err(); err != nil {
				return nil, p.interrupted(err)
			}

			rep, err := p.scanFile(ctx, file)
			for _, occ := range rep.occurrences {
				result.RecordOccurrence(occ)
			}
			for _, inc := range rep.includes {
				if result.HasFile(inc) || queued[inc] {
					continue
				}
				queued[inc] = true
				next = append(next, inc)
			}

			if err != nil {
				if isCancellation(err) {
					return nil, p.interrupted(err)
				}
				p.logFault(file, err)
				result.RecordFault(file, err)
			}
		}

		// Registered before the next round scans them so that a file
		// including one of its ancestors never re-queues it.
		result.RecordNestedFiles(next...)
		batch = next
	}

	return result, nil
}

// topLevelBatch cleans and de-duplicates the caller's paths and drops the
// ones that do not exist, logging each.
func (p *Parser) topLevelBatch(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	batch := make([]string, 0, len(paths))
	for _, raw := range paths {
		path := filepath.Clean(raw)
		if seen[path] {
			continue
		}
		seen[path] = true

		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			p.logger.Error("file does not exist", "file", path)
			continue
		}
		batch = append(batch, path)
	}
	return batch
}

func (p *Parser) interrupted(err error) error {
	p.logger.Error("parsing has been interrupted")
	return err
}

// logFault records an IO fault with the class and message of its cause.
func (p *Parser) logFault(file string, err error) {
	cause := err
	var le *LineError
	if errors.As(err, &le) {
		cause = le.Err
	}
	p.logger.Error("parse failed",
		"file", file,
		"err_type", fmt.Sprintf("%T", cause),
		"err", err)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
