package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"redscout/internal/config"
	"redscout/internal/scan"
)

var (
	verbose  bool
	mockMode bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "redscout",
	Short: "Human-in-the-loop Reddit research bot",
	Long: `redscout scans subreddits for keyword matches, drafts replies
(templated or LLM-generated), and posts nothing without explicit human
approval. Every attempt lands in an append-only run log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if mockMode {
			// Mock mode is an environment toggle so config.Load sees it.
			os.Setenv("MOCK_MODE", "1")
		}

		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one approval-gated keyword scan",
	Long: `Fetches posts from every configured subreddit, matches them
against the keyword list, drafts a reply per match, and walks each
candidate through the safety checker and the approval gate. One run record
is appended per post reaching a terminal state.`,
	RunE: runScan,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Collect engagement metrics for previously posted comments",
	Long: `Reads posted comments back from the run log and appends one
metric row (score, reply count) per comment. Read-only; never posts.`,
	RunE: runMetrics,
}

var humanizedCmd = &cobra.Command{
	Use:   "humanized",
	Short: "Run the scheduled multi-account read-only scan",
	Long: `Runs the scan pipeline for each configured account strictly one
after another with jittered pauses, inside the configured activity window.
Posting and LLM use are forced off regardless of environment settings.`,
	RunE: runHumanized,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	deps, err := buildDeps(cmd.Context(), cfg, logger, scan.Shard{})
	if err != nil {
		return err
	}
	defer deps.close()

	pipe := scan.NewPipeline(cfg, deps.source, deps.generator, deps.approver,
		deps.guard, deps.runLog, deps.state, logger)

	mode := "live"
	if cfg.MockMode {
		mode = "mock"
	}
	logger.Info("starting scan",
		zap.String("run_id", pipe.RunID()),
		zap.String("mode", mode),
		zap.String("source", deps.source.Name()))

	sum, err := pipe.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("\nScan complete: %d fetched, %d deduplicated, %d matched, %d approved, %d posted, %d records\n",
		sum.Fetched, sum.Deduplicated, sum.Matched, sum.Approved, sum.Posted, sum.Records)
	return nil
}

func runMetrics(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.MockMode {
		fmt.Println("Mock mode is set; skipping metric checks.")
		return nil
	}

	deps, err := buildDeps(cmd.Context(), cfg, logger, scan.Shard{})
	if err != nil {
		return err
	}
	defer deps.close()

	if deps.inspector == nil {
		return fmt.Errorf("metrics require the API source (SOURCE=api)")
	}

	pass := scan.NewMetricsPass(deps.runLog, deps.inspector, deps.metricLog, logger)
	checked, err := pass.Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Checked %d comments.\n", checked)
	return nil
}

func runHumanized(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg = cfg.ReadOnly()

	build := func(ctx context.Context, account string, shard scan.Shard) (*scan.Pipeline, error) {
		deps, err := buildDeps(ctx, cfg, logger, shard)
		if err != nil {
			return nil, err
		}
		return scan.NewPipeline(cfg, deps.source, deps.generator, deps.approver,
			deps.guard, deps.runLog, deps.state, logger.With(zap.String("account", account))), nil
	}

	runner := scan.NewHumanizedRunner(cfg, build, logger)
	return runner.Run(cmd.Context())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&mockMode, "mock", false, "force mock mode (canned posts, no posting)")
	rootCmd.AddCommand(scanCmd, metricsCmd, humanizedCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
