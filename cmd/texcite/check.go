// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/texcite/internal/bib"
	"github.com/pdiddy/texcite/internal/integrity"
	"github.com/pdiddy/texcite/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Cross-check citations against a bibliography",
	Long: `Check scans the given LaTeX files and compares the cited keys with a
bibliography (.bib or references.yaml). It lists keys that are cited but not
defined, entries that are never cited, and, with --years, entries whose year
field is not a plausible year.

Exits with an error when any problem is found.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("bib", "", "bibliography file (.bib, .yaml or .yml)")
	checkCmd.Flags().Bool("years", false, "also validate year fields")
	checkCmd.Flags().String("stubs", "", "write placeholder BibTeX entries for missing keys to this file")
	checkCmd.Flags().Bool("json", false, "output the report as JSON")

	_ = viper.BindPFlag("bibliography", checkCmd.Flags().Lookup("bib"))
	_ = viper.BindPFlag("check_years", checkCmd.Flags().Lookup("years"))

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more .tex files")
	}
	cfg := loadConfig()
	if cfg.Report.Bibliography == "" {
		return fmt.Errorf("no bibliography: use --bib or set bibliography in the config file")
	}

	entries, err := bib.Load(cfg.Report.Bibliography)
	if err != nil {
		return err
	}

	result, err := parseFiles(cmd.Context(), cfg.Parser, args)
	if err != nil {
		return err
	}

	var years report.Checker
	if cfg.Report.CheckYears {
		years = integrity.YearChecker{}
	}
	rep := report.Build(result, entries, years)

	if stubs, _ := cmd.Flags().GetString("stubs"); stubs != "" && len(rep.Missing) > 0 {
		if err := os.WriteFile(stubs, []byte(bib.FormatBibTeX(rep.StubEntries())), 0o644); err != nil {
			return fmt.Errorf("writing stubs: %w", err)
		}
		logger.Info("wrote stub entries", "path", stubs, "count", len(rep.Missing))
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		rep.WriteText(os.Stdout)
	}

	if !rep.Clean() {
		return fmt.Errorf("%d missing, %d unused, %d year problem(s)",
			len(rep.Missing), len(rep.Unused), len(rep.YearIssues))
	}
	return nil
}
