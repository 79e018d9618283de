// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/one-pager/internal/ledger"
	"github.com/pdiddy/one-pager/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Summarize recorded analyze actions",
	Long: `Runs reads the run ledger and prints counts per outcome, failure kind and
profile, followed by the most recent runs. The ledger holds metadata only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, map[string]string{"ledger": "ledger.path"}); err != nil {
			return err
		}
		path := viper.GetString("ledger.path")
		if path == "" || path == "off" {
			return fmt.Errorf("run ledger is disabled")
		}
		store, err := ledger.Open(types.LedgerConfig{Path: path})
		if err != nil {
			return err
		}
		defer store.Close()

		sum, err := store.Summary(cmd.Context())
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		recent, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "runs: %d  done: %d  failed: %d\n", sum.Total, sum.Done, sum.Failed)
		for _, k := range sortedKeys(sum.ByFailure) {
			fmt.Fprintf(w, "  failed/%s: %d\n", k, sum.ByFailure[types.FailureKind(k)])
		}
		for _, k := range sortedKeys(sum.ByProfile) {
			fmt.Fprintf(w, "  profile/%s: %d\n", k, sum.ByProfile[k])
		}
		if len(recent) == 0 {
			return nil
		}

		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STARTED\tPROFILE\tOUTCOME\tKIND\tPAGES\tCHARS\tDURATION")
		for _, r := range recent {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.StartedAt.Local().Format(time.DateTime), r.Profile, r.Outcome, r.FailureKind,
				r.Pages, r.DocumentChars, r.Duration.Round(time.Millisecond))
		}
		return tw.Flush()
	},
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

func init() {
	runsCmd.Flags().String("ledger", "", "run ledger SQLite path")
	runsCmd.Flags().Int("limit", 10, "number of recent runs to list")

	rootCmd.AddCommand(runsCmd)
}
