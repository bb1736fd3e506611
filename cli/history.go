package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/chartmogul-mcp/journal"
)

// NewHistoryCmd creates the "history" subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded tool invocations from the journal",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().String("journal-path", "", "Path to the journal database (default: ~/.chartmogul-mcp/journal.db)")
	cmd.Flags().String("tool", "", "Only show this tool")
	cmd.Flags().Bool("failures", false, "Only show failed invocations")
	cmd.Flags().Duration("since", 0, "Only show invocations newer than this duration")
	cmd.Flags().Int("limit", 20, "Maximum number of entries")
	cmd.Flags().Bool("stats", false, "Show per-tool totals instead of entries")
	cmd.Flags().Bool("prune", false, "Apply retention settings before listing")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("journal-path"); path != "" {
		cfg.Journal.Path = path
	}
	store, err := openJournal(cfg, newLogger(cmd, cmd.ErrOrStderr(), cfg.Log))
	if err != nil {
		return exitError(exitRuntime, "opening journal: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx := cmd.Context()
	if prune, _ := cmd.Flags().GetBool("prune"); prune {
		if err := store.Prune(ctx); err != nil {
			return exitError(exitRuntime, "pruning journal: %v", err)
		}
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		return printStats(ctx, cmd, store)
	}

	toolName, _ := cmd.Flags().GetString("tool")
	failures, _ := cmd.Flags().GetBool("failures")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")
	filter := journal.Filter{Tool: toolName, FailuresOnly: failures, Limit: limit}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	entries, err := store.List(ctx, filter)
	if err != nil {
		return exitError(exitRuntime, "listing journal: %v", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No invocations recorded.")
		return nil
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "STARTED\tTOOL\tDURATION\tRESULT\tREQUEST_ID")
	for _, e := range entries {
		result := "ok"
		if !e.Success {
			result = e.ErrorType
			if msg := strings.TrimSpace(e.ErrorMessage); msg != "" {
				result += ": " + truncate(msg, 60)
			}
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.Tool,
			e.Duration,
			result,
			e.RequestID,
		)
	}
	return writer.Flush()
}

func printStats(ctx context.Context, cmd *cobra.Command, store *journal.Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return exitError(exitRuntime, "reading journal stats: %v", err)
	}
	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "TOOL\tCALLS\tFAILURES\tAVG_MS\tLAST_CALLED")
	for _, st := range stats {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%.1f\t%s\n",
			st.Tool, st.Calls, st.Failures, st.AvgDurationMS,
			st.LastCalledAt.Local().Format(time.DateTime),
		)
	}
	return writer.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
