// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Occurrence is one location where a citation key was found.
// Start and End are byte offsets of the whole citation command within Text,
// the raw line without its terminator. Every key split from the same command
// shares the same offsets.
type Occurrence struct {
	// Key is the trimmed, case-sensitive citation key.
	Key string `json:"key" yaml:"key"`

	// File is the path of the scanned file. Empty for ParseString input.
	File string `json:"file" yaml:"file"`

	// Line is the 1-indexed line number.
	Line int `json:"line" yaml:"line"`

	// Start is the offset where the citation command begins.
	Start int `json:"start" yaml:"start"`

	// End is the offset just past the citation command.
	End int `json:"end" yaml:"end"`

	// Text is the raw line the command was found on.
	Text string `json:"text" yaml:"text"`
}

// ParseResult accumulates everything one parse run discovers: the
// occurrences of every citation key and the set of files that were parsed.
// It is append-only and owned by a single parse invocation.
//
// Every recorded occurrence belongs to a file in the parsed set, except for
// ParseString input which uses the empty pseudo-path and registers no file.
type ParseResult struct {
	occurrences map[string][]Occurrence
	keyOrder    []string

	files    []string
	fileSet  map[string]struct{}
	nested   []string
	nestedOK map[string]struct{}

	faults       map[string]error
	citeCommands []string
}

// NewParseResult returns an empty result.
func NewParseResult() *ParseResult {
	return &ParseResult{
		occurrences: make(map[string][]Occurrence),
		fileSet:     make(map[string]struct{}),
		nestedOK:    make(map[string]struct{}),
		faults:      make(map[string]error),
	}
}

// RecordOccurrence appends occ to the occurrences of its key. Empty keys
// are ignored.
func (r *ParseResult) RecordOccurrence(occ Occurrence) {
	if occ.Key == "" {
		return
	}
	if _, ok := r.occurrences[occ.Key]; !ok {
		r.keyOrder = append(r.keyOrder, occ.Key)
	}
	r.occurrences[occ.Key] = append(r.occurrences[occ.Key], occ)
}

// RecordParsedFiles adds paths to the parsed set, keeping first
// registration order and ignoring paths already present.
func (r *ParseResult) RecordParsedFiles(paths ...string) {
	for _, p := range paths {
		if _, ok := r.fileSet[p]; ok {
			continue
		}
		r.fileSet[p] = struct{}{}
		r.files = append(r.files, p)
	}
}

// RecordNestedFiles marks paths as reached through an inclusion directive.
// Nested files are also registered as parsed.
func (r *ParseResult) RecordNestedFiles(paths ...string) {
	r.RecordParsedFiles(paths...)
	for _, p := range paths {
		if _, ok := r.nestedOK[p]; ok {
			continue
		}
		r.nestedOK[p] = struct{}{}
		r.nested = append(r.nested, p)
	}
}

// RecordFault notes that path could not be read to the end. Occurrences
// from the lines before the fault stay recorded. Only the first fault per
// file is kept.
func (r *ParseResult) RecordFault(path string, err error) {
	if err == nil {
		return
	}
	if _, ok := r.faults[path]; !ok {
		r.faults[path] = err
	}
}

// Fault returns the read fault recorded for path, or nil.
func (r *ParseResult) Fault(path string) error {
	return r.faults[path]
}

// RecordCiteCommands stores the citation command patterns the result was
// produced with.
func (r *ParseResult) RecordCiteCommands(commands ...string) {
	r.citeCommands = append([]string(nil), commands...)
}

// CiteCommands returns the citation command patterns recorded for this
// result, or nil.
func (r *ParseResult) CiteCommands() []string {
	if r.citeCommands == nil {
		return nil
	}
	return append([]string(nil), r.citeCommands...)
}

// Occurrences returns the occurrences of key in discovery order, or nil.
func (r *ParseResult) Occurrences(key string) []Occurrence {
	occs := r.occurrences[key]
	if occs == nil {
		return nil
	}
	out := make([]Occurrence, len(occs))
	copy(out, occs)
	return out
}

// FirstOccurrence returns the earliest scanned occurrence of key.
func (r *ParseResult) FirstOccurrence(key string) (Occurrence, bool) {
	occs := r.occurrences[key]
	if len(occs) == 0 {
		return Occurrence{}, false
	}
	return occs[0], true
}

// Keys returns all citation keys in first-discovery order.
func (r *ParseResult) Keys() []string {
	out := make([]string, len(r.keyOrder))
	copy(out, r.keyOrder)
	return out
}

// Files returns the parsed files in registration order.
func (r *ParseResult) Files() []string {
	out := make([]string, len(r.files))
	copy(out, r.files)
	return out
}

// NestedFiles returns the parsed files that were reached through inclusion.
func (r *ParseResult) NestedFiles() []string {
	out := make([]string, len(r.nested))
	copy(out, r.nested)
	return out
}

// HasFile reports whether path was registered as parsed.
func (r *ParseResult) HasFile(path string) bool {
	_, ok := r.fileSet[path]
	return ok
}

// IsNested reports whether path was reached through inclusion.
func (r *ParseResult) IsNested(path string) bool {
	_, ok := r.nestedOK[path]
	return ok
}

// KeyCount returns the number of distinct citation keys.
func (r *ParseResult) KeyCount() int {
	return len(r.keyOrder)
}

// OccurrenceCount returns the total number of occurrences across all keys.
func (r *ParseResult) OccurrenceCount() int {
	n := 0
	for _, occs := range r.occurrences {
		n += len(occs)
	}
	return n
}

// ResultSnapshot is the ordered, serializable form of a ParseResult.
type ResultSnapshot struct {
	Files       []string      `json:"files" yaml:"files"`
	NestedFiles []string      `json:"nested_files,omitempty" yaml:"nested_files,omitempty"`
	Keys        []KeySnapshot `json:"keys" yaml:"keys"`
}

// KeySnapshot groups the occurrences of one key.
type KeySnapshot struct {
	Key         string       `json:"key" yaml:"key"`
	Occurrences []Occurrence `json:"occurrences" yaml:"occurrences"`
}

// Snapshot returns an ordered copy of the result for output and storage.
func (r *ParseResult) Snapshot() ResultSnapshot {
	snap := ResultSnapshot{
		Files:       r.Files(),
		NestedFiles: r.NestedFiles(),
		Keys:        make([]KeySnapshot, 0, len(r.keyOrder)),
	}
	for _, k := range r.keyOrder {
		snap.Keys = append(snap.Keys, KeySnapshot{Key: k, Occurrences: r.Occurrences(k)})
	}
	return snap
}
