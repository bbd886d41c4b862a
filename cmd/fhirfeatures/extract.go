package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/fhirfeatures/internal/config"
	"github.com/gyeh/fhirfeatures/internal/db"
	"github.com/gyeh/fhirfeatures/internal/exitcode"
	"github.com/gyeh/fhirfeatures/internal/ingest"
	"github.com/gyeh/fhirfeatures/internal/logging"
	"github.com/gyeh/fhirfeatures/internal/sink"
	"github.com/gyeh/fhirfeatures/internal/source"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Aggregate a bundle directory into a per-patient feature table",
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&cfg.SourceRoot, "source", "", "Directory of FHIR JSON bundles (required)")
	f.StringVar(&cfg.Format, "format", config.FormatCSV, "Output format: csv, parquet or postgres")
	f.StringVar(&cfg.OutputPath, "out", "", "Output file for csv and parquet formats")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.ValidateOutput(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	var out sink.Sink
	switch cfg.Format {
	case config.FormatCSV:
		out = sink.NewCSV(cfg.OutputPath)
	case config.FormatParquet:
		out = sink.NewParquet(cfg.OutputPath)
	case config.FormatPostgres:
		pool, err := db.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()
		out = db.NewFeatureSink(pool, cfg.SourceRoot, log)
	}

	summary, err := ingest.Run(ctx, source.NewDirLister(cfg.SourceRoot), out, log, &cfg)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("extract failed")
			os.Exit(phaseExitCode(pe.Phase))
		}
		log.Error().Err(err).Msg("extract failed")
		os.Exit(exitcode.ProcessError)
	}

	fmt.Printf("Extract complete: %d documents (%d skipped), %d patients written (%.1fs)\n",
		summary.DocumentsRead+summary.DocumentsFailed, summary.DocumentsFailed,
		summary.RecordsWritten, summary.DurationTotal.Seconds())
	if summary.DocumentsFailed > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

// phaseExitCode maps a failed pipeline phase to the process exit code.
func phaseExitCode(phase string) int {
	switch phase {
	case "enumerate":
		return exitcode.SourceError
	case "sink", "store":
		return exitcode.SinkError
	default:
		return exitcode.ProcessError
	}
}
