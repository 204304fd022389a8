package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/prospector/internal/core/workflow"
	"github.com/vietddude/prospector/internal/infra/checkpoint"
)

var statusCmd = &cobra.Command{
	Use:   "status [state_file]",
	Short: "Show the progress recorded in a state file",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
	if err != nil {
		slog.Error("Failed to open checkpoint store", "error", err)
		os.Exit(1)
	}

	state, err := store.ReadState(args[0])
	if err != nil {
		slog.Error("Failed to read state file", "path", args[0], "error", err)
		os.Exit(1)
	}

	progress := workflow.ProgressSummary(state)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Job\t%s\n", state.JobID)
	fmt.Fprintf(w, "List\t%s\n", state.CurrentProcessingList)
	fmt.Fprintf(w, "Recursion\t%d\n", state.RecursionCount)
	if state.HealPhase != "" {
		fmt.Fprintf(w, "Heal phase\t%s\n", state.HealPhase)
		fmt.Fprintf(w, "Heal reason\t%s\n", state.HealReason)
	}
	fmt.Fprintf(w, "Batch\t%d\n", state.CurrentBatch)
	fmt.Fprintf(w, "Index\t%d\n", state.CurrentIndex)
	fmt.Fprintf(w, "Processed\t%d\n", progress.Processed)
	if progress.Percentage > 0 {
		fmt.Fprintf(w, "Progress\t%.1f%%\n", progress.Percentage)
	}
	fmt.Fprintf(w, "Completed batches\t%d\n", len(progress.Completed))
	fmt.Fprintf(w, "Updated\t%s\n", state.Timestamp.Format("2006-01-02 15:04:05 MST"))
	w.Flush()
}
