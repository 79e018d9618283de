//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Serve builds the CLI and starts the HTTP API on ONE_PAGER_SERVER_ADDR or :8080.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV("./bin/one-pager", "serve", "--log-level", "info")
}

// Analyze builds the CLI and analyzes the PDF named by $PDF with $PROFILE (default flat).
func Analyze() error {
	pdf := os.Getenv("PDF")
	if pdf == "" {
		return fmt.Errorf("set PDF to the paper to analyze")
	}
	profile := os.Getenv("PROFILE")
	if profile == "" {
		profile = "flat"
	}
	mg.Deps(Build)
	return sh.RunV("./bin/one-pager", "analyze", "--profile", profile, pdf)
}
