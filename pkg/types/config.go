// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ParserConfig holds settings for the citation scanner.
type ParserConfig struct {
	// CiteCommands lists extra citation command patterns appended to the
	// built-in set (e.g. "parencite", "[cC]itefield").
	CiteCommands []string `json:"cite_commands,omitempty" yaml:"cite_commands,omitempty"`

	// LogLevel is the minimum level for per-file diagnostics:
	// debug, info, warn, or error.
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// IndexConfig holds settings for the occurrence index.
type IndexConfig struct {
	// IndexDir is the directory holding texcite.db and export files.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the default maximum number of query results (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ReportConfig holds settings for the cross-reference report.
type ReportConfig struct {
	// Bibliography is the path to a .bib file or a references.yaml file.
	Bibliography string `json:"bibliography" yaml:"bibliography"`

	// CheckYears enables the year field plausibility check.
	CheckYears bool `json:"check_years" yaml:"check_years"`
}

// Config groups all texcite settings.
type Config struct {
	Parser ParserConfig `json:"parser" yaml:"parser"`
	Index  IndexConfig  `json:"index" yaml:"index"`
	Report ReportConfig `json:"report" yaml:"report"`
}
