// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/one-pager/internal/analysis"
	"github.com/pdiddy/one-pager/internal/profile"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <paper.pdf>",
	Short: "Analyze one PDF and print the structured result",
	Long: `Analyze extracts the text of a PDF, sends it to the completion service with
the selected profile's schema and prints the normalized result.

On failure the failure record is printed to stderr as JSON and the command
exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, completionFlagKeys); err != nil {
			return err
		}
		p, err := profile.Parse(cmdString(cmd, "profile"))
		if err != nil {
			return err
		}
		format := cmdString(cmd, "format")
		if format != "json" && format != "yaml" {
			return fmt.Errorf("unknown --format %q (want json or yaml)", format)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		pl, err := buildPipeline(loadConfig(loadedSecrets), logger)
		if err != nil {
			return err
		}
		defer pl.Close()

		snap, err := pl.analyzer.Document(cmd.Context(), filepath.Base(args[0]), data, p)
		if errors.Is(err, analysis.ErrNotConfigured) {
			fmt.Fprintln(os.Stderr, "warning:", pl.warning)
			return err
		}
		if err != nil {
			return err
		}
		if snap.Failure != nil {
			writeFailure(os.Stderr, snap)
			return fmt.Errorf("analysis failed: %s", snap.Failure.Kind)
		}
		return writeResult(cmd.OutOrStdout(), snap, format)
	},
}

func writeResult(w io.Writer, snap analysis.Snapshot, format string) error {
	if snap.Result == nil {
		return fmt.Errorf("analysis produced no result")
	}
	switch format {
	case "yaml":
		out, err := yaml.Marshal(snap.Result)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		out, err := json.MarshalIndent(snap.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
}

func writeFailure(w io.Writer, snap analysis.Snapshot) {
	out, err := json.MarshalIndent(snap.Failure, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "analysis failed: %s\n", snap.Failure.Message)
		return
	}
	fmt.Fprintln(w, string(out))
	if hint := snap.Failure.Kind.Hint(); hint != "" {
		fmt.Fprintln(w, "hint:", hint)
	}
}

func cmdString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func init() {
	analyzeCmd.Flags().String("profile", string(profile.Flat), "analysis profile: flat, expert or metadata")
	analyzeCmd.Flags().String("format", "json", "output format: json or yaml")
	completionFlags(analyzeCmd)

	rootCmd.AddCommand(analyzeCmd)
}
