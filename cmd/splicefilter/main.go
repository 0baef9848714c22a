package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alex-miyake/TDP-43/internal/pipeline"
	"github.com/alex-miyake/TDP-43/pkg/config"
	"github.com/alex-miyake/TDP-43/pkg/logger"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "splicefilter",
		Short: "Batch ETL for TDP-43 cryptic splice-junction analysis",
		Long: `splicefilter reconciles parquet splice-junction measurements with event
classifications and sample metadata, producing a filtered junction table and
a per-genotype cryptic-event summary.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("splicefilter v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var configFile, reportFile, logLevel string
	var cfg pipeline.Config

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the splice-junction pipeline",
		Long: `Run the pipeline with the given input and output paths. Paths may come
from a YAML configuration file, from flags, or both; flags win.

Example:
  splicefilter run --config run.yaml
  splicefilter run --archive hek_all_junctions.parquet.zip \
    --events splice_events.csv --metadata metadata_halleger_hek.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, configFile, reportFile, logLevel, cfg)
		},
	}

	runCmd.Flags().StringVar(&configFile, "config", "", "Path to YAML run configuration (optional)")
	runCmd.Flags().StringVar(&cfg.ArchivePath, "archive", "", "Path to the ZIP archive of parquet measurement shards")
	runCmd.Flags().StringVar(&cfg.EventsPath, "events", "", "Path to the splice-event classification CSV")
	runCmd.Flags().StringVar(&cfg.MetadataPath, "metadata", "", "Path to the sample metadata CSV")
	runCmd.Flags().StringVar(&cfg.WorkDir, "workdir", "extracted_parquet", "Transient directory for extracted shards (removed after the run)")
	runCmd.Flags().StringVar(&cfg.KnockdownOutput, "knockdown-output", "unfiltered_cryptic_data.csv", "Output path for the knockdown-only intermediate table")
	runCmd.Flags().StringVar(&cfg.FilteredOutput, "filtered-output", "filtered_data.csv", "Output path for the doubly-filtered junction table")
	runCmd.Flags().StringVar(&cfg.SummaryOutput, "summary-output", "cryptic_summarisation.csv", "Output path for the per-genotype summary table")
	runCmd.Flags().Int64Var(&cfg.FooterLimit, "footer-limit", 0, "Shard footer size ceiling in bytes (0 keeps the 1 GiB default)")
	runCmd.Flags().StringVar(&reportFile, "report", "", "Write a JSON run report with per-stage row counts (optional)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runPipeline merges file and flag configuration and executes one run
func runPipeline(cmd *cobra.Command, configFile, reportFile, logLevel string, flagCfg pipeline.Config) error {
	if err := logger.Init(logger.Config{Level: logLevel, Encoding: "console"}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := flagCfg
	if configFile != "" {
		var fileCfg pipeline.Config
		if err := config.Load(configFile, &fileCfg); err != nil {
			return fmt.Errorf("run configuration error: %w", err)
		}
		cfg = mergeConfig(cmd, fileCfg, flagCfg)
	}

	log := logger.Get().With(zap.String("component", "splicefilter-cli"))

	p, err := pipeline.New(cfg, logger.Get())
	if err != nil {
		return err
	}

	startTime := time.Now()
	result, err := p.Run(context.Background())
	if err != nil {
		return fmt.Errorf("pipeline execution failed: %w", err)
	}

	log.Info("results saved",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("filtered_rows", result.FilteredRows),
		zap.Int("genotypes", result.Genotypes),
		zap.String("filtered_output", cfg.FilteredOutput),
		zap.String("summary_output", cfg.SummaryOutput))

	if reportFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode run report: %w", err)
		}
		if err := os.WriteFile(reportFile, data, 0o644); err != nil { //nolint:gosec
			return fmt.Errorf("failed to write run report: %w", err)
		}
	}

	return nil
}

// mergeConfig overlays explicitly set flags on top of the file configuration
func mergeConfig(cmd *cobra.Command, fileCfg, flagCfg pipeline.Config) pipeline.Config {
	cfg := fileCfg
	if cmd.Flags().Changed("archive") {
		cfg.ArchivePath = flagCfg.ArchivePath
	}
	if cmd.Flags().Changed("events") {
		cfg.EventsPath = flagCfg.EventsPath
	}
	if cmd.Flags().Changed("metadata") {
		cfg.MetadataPath = flagCfg.MetadataPath
	}
	if cmd.Flags().Changed("workdir") || cfg.WorkDir == "" {
		cfg.WorkDir = flagCfg.WorkDir
	}
	if cmd.Flags().Changed("knockdown-output") || cfg.KnockdownOutput == "" {
		cfg.KnockdownOutput = flagCfg.KnockdownOutput
	}
	if cmd.Flags().Changed("filtered-output") || cfg.FilteredOutput == "" {
		cfg.FilteredOutput = flagCfg.FilteredOutput
	}
	if cmd.Flags().Changed("summary-output") || cfg.SummaryOutput == "" {
		cfg.SummaryOutput = flagCfg.SummaryOutput
	}
	if cmd.Flags().Changed("footer-limit") {
		cfg.FooterLimit = flagCfg.FooterLimit
	}
	return cfg
}
