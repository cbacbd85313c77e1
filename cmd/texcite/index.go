// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/texcite/internal/index"
	"github.com/pdiddy/texcite/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the citation index (store, query, keys, forget, export)",
	Long: `Index manages a local SQLite database of citation occurrences.
Use subcommands to index LaTeX files, query occurrences, list keys, forget
files, or export.`,
}

// --- store subcommand ---

var indexStoreCmd = &cobra.Command{
	Use:   "store [files...]",
	Short: "Scan LaTeX files and record their citations in the index",
	Long: `Store parses the given files and everything they include, then writes
each file's occurrences to the index. Files whose modification time and
citation commands have not changed since the last run are skipped. Files that
are gone or could not be read to the end are dropped from the index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexStore,
}

func runIndexStore(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	result, err := parseFiles(cmd.Context(), cfg.Parser, args)
	if err != nil {
		return err
	}

	store, err := index.NewStore(cfg.Index)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(cmd.Context(), result, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- query subcommand ---

var indexQueryCmd = &cobra.Command{
	Use:   "query [key]",
	Short: "List indexed occurrences of a key",
	Long: `Query lists indexed occurrences filtered by exact key, key prefix or
file. With no filter it lists occurrences up to the result limit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexQuery,
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	store, err := index.NewStore(loadConfig().Index)
	if err != nil {
		return err
	}
	defer store.Close()

	occs, err := store.Query(cmd.Context(), queryOptsFromFlags(cmd, args))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(occs)
	}

	writeQueryTable(os.Stdout, occs)
	return nil
}

// queryTextWidth caps the source-line column of query output.
const queryTextWidth = 50

func writeQueryTable(w io.Writer, occs []types.Occurrence) {
	if len(occs) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Key", "File", "Line", "Text"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Text", WidthMax: queryTextWidth, WidthMaxEnforcer: text.Trim},
	})
	for _, o := range occs {
		tbl.AppendRow(table.Row{o.Key, o.File, o.Line, o.Text})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%s results", humanize.Comma(int64(len(occs))))})
	tbl.Render()
}

// --- keys subcommand ---

var indexKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List every indexed key with its counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := index.NewStore(loadConfig().Index)
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := store.Keys(cmd.Context())
		if err != nil {
			return err
		}

		tbl := newTable(os.Stdout)
		tbl.AppendHeader(table.Row{"Key", "Occurrences", "Files"})
		for _, k := range keys {
			tbl.AppendRow(table.Row{k.Key, k.Count, k.Files})
		}
		tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %s keys", humanize.Comma(int64(len(keys))))})
		tbl.Render()
		return nil
	},
}

// --- forget subcommand ---

var indexForgetCmd = &cobra.Command{
	Use:   "forget [files...]",
	Short: "Remove files and their occurrences from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := index.NewStore(loadConfig().Index)
		if err != nil {
			return err
		}
		defer store.Close()

		for _, path := range args {
			path = filepath.Clean(path)
			if err := store.Forget(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Printf("forgot   %s\n", path)
		}
		return nil
	},
}

// --- export subcommand ---

var indexExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index to YAML or JSON",
	Long: `Export writes the index (or a filtered subset) grouped by key to
export.yaml or export.json inside the index directory. Supports the same
filter flags as query.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexExport,
}

func runIndexExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := index.NewStore(loadConfig().Index)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func queryOptsFromFlags(cmd *cobra.Command, args []string) index.QueryOptions {
	key, _ := cmd.Flags().GetString("key")
	if key == "" && len(args) > 0 {
		key = args[0]
	}
	prefix, _ := cmd.Flags().GetString("prefix")
	file, _ := cmd.Flags().GetString("file")
	limit, _ := cmd.Flags().GetInt("limit")

	return index.QueryOptions{
		Key:        key,
		KeyPrefix:  prefix,
		File:       file,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	indexCmd.PersistentFlags().String("index-dir", ".texcite", "directory holding the index database and exports")
	indexCmd.PersistentFlags().Int("max-results", 50, "default maximum number of query results")
	_ = viper.BindPFlag("index_dir", indexCmd.PersistentFlags().Lookup("index-dir"))
	_ = viper.BindPFlag("max_results", indexCmd.PersistentFlags().Lookup("max-results"))

	for _, c := range []*cobra.Command{indexQueryCmd, indexExportCmd} {
		c.Flags().String("key", "", "filter by exact key")
		c.Flags().String("prefix", "", "filter by key prefix")
		c.Flags().String("file", "", "filter by file path")
	}
	indexQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	indexExportCmd.Flags().Int("limit", 0, "maximum occurrences to export (0 = all)")
	indexQueryCmd.Flags().Bool("json", false, "output results as JSON")
	indexExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	indexCmd.AddCommand(indexStoreCmd)
	indexCmd.AddCommand(indexQueryCmd)
	indexCmd.AddCommand(indexKeysCmd)
	indexCmd.AddCommand(indexForgetCmd)
	indexCmd.AddCommand(indexExportCmd)

	rootCmd.AddCommand(indexCmd)
}
