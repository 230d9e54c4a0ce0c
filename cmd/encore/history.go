package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently executed queries",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of queries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, repo, err := openQueryLog(cfg.QueryLog.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := repo.List(commandContext(cmd), historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no queries recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tOPERATION\tTRANSPORT\tDURATION\tERRORS\tID")
	for _, r := range records {
		op := r.OperationName
		if op == "" {
			op = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), op, r.Transport,
			r.Duration.Round(time.Millisecond), r.ErrorCount, r.ID)
	}
	return w.Flush()
}
