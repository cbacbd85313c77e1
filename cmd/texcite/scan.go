// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/texcite/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "List every citation key and where it occurs",
	Long: `Scan parses the given LaTeX files and every file they reach through
\input or \include, then prints each citation occurrence with its file,
line and character offsets.

Use --text to scan a single line of text instead of files.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("text", "", "scan this line of text instead of files")
	scanCmd.Flags().Bool("keys", false, "print one row per key with its occurrence count")
	scanCmd.Flags().Bool("json", false, "output the result as JSON")
	scanCmd.Flags().Bool("yaml", false, "output the result as YAML")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	text, _ := cmd.Flags().GetString("text")

	var result *types.ParseResult
	if text != "" {
		p, err := newParser(cfg.Parser)
		if err != nil {
			return err
		}
		result = p.ParseString(text)
	} else {
		if len(args) == 0 {
			return fmt.Errorf("provide one or more .tex files, or --text")
		}
		var err error
		result, err = parseFiles(cmd.Context(), cfg.Parser, args)
		if err != nil {
			return err
		}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	keysOnly, _ := cmd.Flags().GetBool("keys")

	switch {
	case jsonOutput:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Snapshot())
	case yamlOutput:
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(result.Snapshot())
	case keysOnly:
		writeKeyTable(os.Stdout, result)
	default:
		writeOccurrenceTable(os.Stdout, result)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Format.Footer = text.FormatDefault
	return tbl
}

func writeOccurrenceTable(w io.Writer, result *types.ParseResult) {
	if result.KeyCount() == 0 {
		fmt.Fprintln(w, "No citations found.")
		return
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Key", "File", "Line", "Start", "End"})
	for _, key := range result.Keys() {
		for _, occ := range result.Occurrences(key) {
			tbl.AppendRow(table.Row{occ.Key, occ.File, occ.Line, occ.Start, occ.End})
		}
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%s keys, %s occurrences, %s files",
		humanize.Comma(int64(result.KeyCount())),
		humanize.Comma(int64(result.OccurrenceCount())),
		humanize.Comma(int64(len(result.Files()))))})
	tbl.Render()
}

func writeKeyTable(w io.Writer, result *types.ParseResult) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Key", "Count", "First use"})
	for _, key := range result.Keys() {
		first, _ := result.FirstOccurrence(key)
		tbl.AppendRow(table.Row{key, len(result.Occurrences(key)), fmt.Sprintf("%s:%d", first.File, first.Line)})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %s keys", humanize.Comma(int64(result.KeyCount())))})
	tbl.Render()
}
