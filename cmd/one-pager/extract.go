// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/one-pager/internal/textextract"
	"github.com/pdiddy/one-pager/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract <paper.pdf>",
	Short: "Print the bounded document text of a PDF",
	Long: `Extract reads a PDF page by page and prints the text that analyze would
send to the completion service, truncated to the character budget. Page
statistics go to stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, map[string]string{"max-chars": "extraction.max_chars"}); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		ext := textextract.New(types.ExtractionConfig{MaxChars: viper.GetInt("extraction.max_chars")}, logger)
		doc, err := ext.Extract(cmd.Context(), data)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding document: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}

		fmt.Fprintf(os.Stderr, "pages: %d (%d with text), chars: %d of %d, truncated: %t\n",
			doc.Pages, doc.PagesWithText, doc.Chars(), doc.SourceChars, doc.Truncated)
		fmt.Fprint(cmd.OutOrStdout(), doc.Text)
		return nil
	},
}

func init() {
	extractCmd.Flags().Int("max-chars", 0, "character budget of the document text")
	extractCmd.Flags().Bool("json", false, "print the document as JSON")

	rootCmd.AddCommand(extractCmd)
}
