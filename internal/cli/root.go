package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/prospector/internal/control"
	"github.com/vietddude/prospector/internal/core/config"
)

var (
	cfgPath string
	isDebug bool

	jobID       string
	searchURL   string
	credential  string
	bearerToken string
	listName    string
	keywords    string
)

var rootCmd = &cobra.Command{
	Use:   "prospector",
	Short: "Prospector automation pipeline",
	Long:  `Prospector is a resumable contact-harvesting pipeline with checkpointed recovery.`,
	Run:   runProspector,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.Flags().StringVar(&jobID, "job-id", "", "logical job ID (generated when empty)")
	rootCmd.Flags().StringVar(&searchURL, "search-url", "", "people-search base URL")
	rootCmd.Flags().StringVar(&credential, "credential", "", "session cookie value (falls back to PROSPECTOR_CREDENTIAL)")
	rootCmd.Flags().StringVar(&bearerToken, "token", "", "bearer token (falls back to PROSPECTOR_TOKEN)")
	rootCmd.Flags().StringVar(&listName, "list", "all", "processing list: all, new, or active")
	rootCmd.Flags().StringVar(&keywords, "keywords", "", "search keywords filter")
}

// initLogging configures the global logger the way every subcommand
// expects it.
func initLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	if isDebug || (cfg != nil && cfg.Logging.Level == "debug") {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	initLogging(cfg)
	return cfg
}

func runProspector(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if credential == "" {
		credential = os.Getenv("PROSPECTOR_CREDENTIAL")
	}
	if bearerToken == "" {
		bearerToken = os.Getenv("PROSPECTOR_TOKEN")
	}

	app, err := control.NewProspector(control.Config{
		App: cfg,
		Job: control.JobParams{
			JobID:          jobID,
			SearchURL:      searchURL,
			Credential:     credential,
			BearerToken:    bearerToken,
			ProcessingList: listName,
			Keywords:       keywords,
		},
	})
	if err != nil {
		slog.Error("Failed to initialize Prospector", "error", err)
		os.Exit(1)
	}

	runToCompletion(app)
}

// runToCompletion drives one pipeline run with signal-based cancellation,
// shared by the run and heal entry points.
func runToCompletion(app *control.Prospector) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, shutting down...", "signal", sig)
		cancel()
	}()

	slog.Info("Prospector started", "job", app.State().JobID, "config", cfgPath)

	err := app.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if serr := app.Stop(shutdownCtx); serr != nil {
		slog.Warn("Error during shutdown", "error", serr)
	}

	if err != nil {
		slog.Error("Pipeline failed", "error", err)
		os.Exit(1)
	}
}
