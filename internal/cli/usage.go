package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/profilechat/internal/metrics"
)

var usageJSON bool

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show server usage statistics",
	Long: `Show runtime statistics of a profilechat server: turns by outcome,
model latency and token usage since the server started.

Examples:
  profilechat usage
  profilechat usage --server ws://chat.internal:8484/ws --json`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().StringVar(&serverURL, "server", "", "server WebSocket URL (default from config)")
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "print raw JSON")
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := newServerClient().Stats(ctx)
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if usageJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printServerStats(out, stats)
	return nil
}

// printServerStats displays runtime statistics.
func printServerStats(w io.Writer, stats *metrics.Snapshot) {
	fmt.Fprintf(w, "Statistics (in-memory, since start)\n")
	fmt.Fprintf(w, "═══════════════════════════════════════\n")
	fmt.Fprintf(w, "Uptime: %.1f seconds\n", stats.UptimeSeconds)
	fmt.Fprintf(w, "Sessions: %d\n", stats.Sessions)

	if stats.Turns == nil {
		fmt.Fprintf(w, "\nNo turns yet.\n")
	} else {
		fmt.Fprintf(w, "\nTurns:\n")
		printOpStats(w, stats.Turns)
		printTokenStats(w, stats.Turns)
	}

	if len(stats.Outcomes) > 0 {
		fmt.Fprintf(w, "\nBy Outcome:\n")
		outcomes := make([]string, 0, len(stats.Outcomes))
		for o := range stats.Outcomes {
			outcomes = append(outcomes, o)
		}
		slices.Sort(outcomes)

		var total int64
		for _, n := range stats.Outcomes {
			total += n
		}
		for _, o := range outcomes {
			n := stats.Outcomes[o]
			fmt.Fprintf(w, "  %-10s %6d (%5.1f%%)\n", o, n, float64(n)/float64(total)*100)
		}
	}

	if stats.Exports != nil {
		fmt.Fprintf(w, "\nExports:\n")
		printOpStats(w, stats.Exports)
	}
}

// printOpStats displays timing statistics for an operation.
func printOpStats(w io.Writer, op *metrics.OperationSnapshot) {
	fmt.Fprintf(w, "  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Fprintf(w, "  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

// printTokenStats displays token statistics if available.
func printTokenStats(w io.Writer, op *metrics.OperationSnapshot) {
	if op.InputTokens == nil || op.OutputTokens == nil {
		return
	}
	fmt.Fprintf(w, "  Tokens In:  %d total, avg %.0f\n", *op.InputTokens, float64(*op.InputTokens)/float64(op.Count))
	fmt.Fprintf(w, "  Tokens Out: %d total, avg %.0f\n", *op.OutputTokens, float64(*op.OutputTokens)/float64(op.Count))
}
