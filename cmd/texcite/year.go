// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/texcite/internal/integrity"
)

var yearCmd = &cobra.Command{
	Use:   "year [values...]",
	Short: "Check whether values look like publication years",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var checker integrity.YearChecker
		failed := 0
		for _, v := range args {
			if err := checker.Check(v); err != nil {
				color.New(color.FgRed).Fprintf(os.Stdout, "%-20q %v\n", v, err)
				failed++
				continue
			}
			color.New(color.FgGreen).Fprintf(os.Stdout, "%-20q ok\n", v)
		}
		if failed > 0 {
			return fmt.Errorf("%d value(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(yearCmd)
}
