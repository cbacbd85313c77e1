//go:build mage

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Scan builds the CLI and indexes the document named by TEXCITE_MAIN (default main.tex).
func Scan() error {
	mg.Deps(Build, Init)

	doc := os.Getenv("TEXCITE_MAIN")
	if doc == "" {
		doc = "main.tex"
	}
	if _, err := os.Stat(doc); err != nil {
		return fmt.Errorf("document %s: %w", doc, err)
	}
	bin := filepath.Join(binDir, binName)
	if err := sh.RunV(bin, "index", "store", "--index-dir", indexDir, doc); err != nil {
		return err
	}
	return sh.RunV(bin, "index", "keys", "--index-dir", indexDir)
}
