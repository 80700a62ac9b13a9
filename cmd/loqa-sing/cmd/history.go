package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loqalabs/loqa-sing/internal/eventstore"
)

var (
	historyLimit int
	historyJob   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded renders from the event store",
	Long: `Reads the daemon's event store.

Examples:
  loqa-sing history --limit 20
  loqa-sing history --job 4f1c...`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum renders to list")
	historyCmd.Flags().StringVar(&historyJob, "job", "", "Show one job with its engine attempts")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := eventstore.Open(ctx, cfg.EventStore, newLogger())
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if historyJob != "" {
		render, attempts, err := store.GetRender(ctx, historyJob)
		if err != nil {
			return err
		}
		printRender(cmd, render)
		for _, a := range attempts {
			fmt.Fprintf(out, "    %-20s %-8s %6d ms %s\n", a.Engine, a.Outcome, a.ElapsedMS, a.Error)
		}
		return nil
	}

	renders, err := store.ListRenders(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(renders) == 0 {
		fmt.Fprintln(out, "No renders recorded.")
		return nil
	}
	for _, r := range renders {
		printRender(cmd, r)
	}
	return nil
}

func printRender(cmd *cobra.Command, r eventstore.Render) {
	status := r.Status
	if r.Error != "" {
		status += ": " + r.Error
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-20s %6.2f s  %s  [%s]\n",
		r.CreatedAt.Format("2006-01-02 15:04:05"), r.JobID, r.EngineUsed, r.DurationS, r.Lyric, status)
}
