package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/prospector/internal/control"
)

var healCmd = &cobra.Command{
	Use:   "heal [state_file]",
	Short: "Resume a job from a sealed recovery state file",
	Args:  cobra.ExactArgs(1),
	Run:   runHeal,
}

func init() {
	rootCmd.AddCommand(healCmd)
}

func runHeal(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	app, err := control.NewProspector(control.Config{
		App:       cfg,
		StateFile: args[0],
	})
	if err != nil {
		slog.Error("Failed to initialize recovery run", "state_file", args[0], "error", err)
		os.Exit(1)
	}

	state := app.State()
	slog.Info("Recovery run starting",
		"job", state.JobID,
		"recursion", state.RecursionCount,
		"phase", state.HealPhase,
		"reason", state.HealReason)

	runToCompletion(app)
}
