package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/abdul-hamid-achik/kernspec/packages/history"
	"github.com/abdul-hamid-achik/kernspec/packages/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List runs recorded with --history, newest first.

Examples:
  kernspec history
  kernspec history --release 6.8.0-generic --limit 5
  kernspec history --failures 3f2b6c1e-...`,
	Args: cobra.NoArgs,
	RunE: withRuntimeErrors(historyCommand),
}

var (
	historyDBFlag       string
	historyReleaseFlag  string
	historyLimitFlag    int
	historyFailuresFlag string
)

func init() {
	historyCmd.Flags().StringVar(&historyDBFlag, "history-db", getEnvString("KERNSPEC_HISTORY_DB", ""), "History database path (env: KERNSPEC_HISTORY_DB)")
	historyCmd.Flags().StringVar(&historyReleaseFlag, "release", "", "Only show runs on this kernel release")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("KERNSPEC_HISTORY_LIMIT", 20), "Maximum number of runs to show (env: KERNSPEC_HISTORY_LIMIT)")
	historyCmd.Flags().StringVar(&historyFailuresFlag, "failures", "", "Show the failures of one run")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.History.Path
	if historyDBFlag != "" {
		path = historyDBFlag
	}

	store, err := history.OpenReadOnly(path)
	if errors.Is(err, history.ErrNoHistory) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if noColorFlag || cfg.GetNoColor() {
		color.NoColor = true
	}

	if historyFailuresFlag != "" {
		return printFailures(cmd, store, historyFailuresFlag)
	}

	runs, err := store.ListRuns(cmd.Context(), history.Filter{Release: historyReleaseFlag, Limit: historyLimitFlag})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tRELEASE\tSTARTED\tDURATION\tEXAMPLES\tFAILURES\tPENDING\tP95")
	for _, r := range runs {
		failures := green(r.Failures)
		if !r.Passed() {
			failures = red(r.Failures)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			r.ID,
			r.Release,
			r.StartedAt.Local().Format(time.DateTime),
			output.FormatDuration(r.Duration),
			r.Examples,
			failures,
			r.Pending,
			output.FormatDuration(r.P95),
		)
	}
	return w.Flush()
}

func printFailures(cmd *cobra.Command, store *history.Store, runID string) error {
	failures, err := store.Failures(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No failures recorded for %s.\n", runID)
		return nil
	}

	bold := color.New(color.Bold)
	for i, f := range failures {
		bold.Fprintf(cmd.OutOrStdout(), "%d) %s\n", i+1, f.Description)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", f.Message)
	}
	return nil
}
