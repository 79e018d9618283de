// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/one-pager/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the analysis profiles and their schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		defs := profile.All()
		w := cmd.OutOrStdout()

		switch format {
		case "json":
			out, err := json.MarshalIndent(defs, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(out))
		case "yaml":
			out, err := yaml.Marshal(defs)
			if err != nil {
				return err
			}
			_, err = w.Write(out)
			return err
		case "text":
			for i, d := range defs {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s (temperature %.1f)\n  %s\n", d.Name, d.Temperature, d.Description)
				writeFields(w, d.Fields, 1)
			}
		default:
			return fmt.Errorf("unknown --format %q (want text, json or yaml)", format)
		}
		return nil
	},
}

func writeFields(w io.Writer, fields []profile.Field, depth int) {
	for _, f := range fields {
		fmt.Fprintf(w, "%s- %s (%s)\n", strings.Repeat("  ", depth), f.Key, f.Kind)
		writeFields(w, f.Children, depth+1)
	}
}

func init() {
	profilesCmd.Flags().String("format", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(profilesCmd)
}
