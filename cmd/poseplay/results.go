package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/poseplay/internal/store"
)

var (
	resultsBestFlag  bool
	resultsLimitFlag int
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List recorded game results",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		var results []*store.Result
		if resultsBestFlag {
			results, err = st.Results().Best(resultsLimitFlag)
		} else {
			results, err = st.Results().List(resultsLimitFlag)
		}
		if err != nil {
			return fmt.Errorf("failed to list results: %w", err)
		}

		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	resultsCmd.Flags().BoolVar(&resultsBestFlag, "best", false, "Order by score instead of time")
	resultsCmd.Flags().IntVarP(&resultsLimitFlag, "limit", "n", store.DefaultListLimit, "Maximum results to show")
}

func printResults(w io.Writer, results []*store.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMPLETED\tRANK\tSCORE\tHITS\tSPEED\tID")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.0f%%\t%d/%d\t%s\t%s\n",
			r.CompletedAt.Local().Format("2006-01-02 15:04"),
			r.Rank,
			r.Score*100,
			r.Hits, r.TotalTargets,
			r.Speed,
			r.ID,
		)
	}
	tw.Flush()
}
