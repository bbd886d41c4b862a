package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/fhirfeatures/internal/backfill"
	"github.com/gyeh/fhirfeatures/internal/db"
	"github.com/gyeh/fhirfeatures/internal/exitcode"
	"github.com/gyeh/fhirfeatures/internal/ingest"
	"github.com/gyeh/fhirfeatures/internal/logging"
	"github.com/gyeh/fhirfeatures/internal/source"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-locations",
	Short: "Assign patients to hospital locations from their Patient address",
	RunE:  runBackfill,
}

func init() {
	f := backfillCmd.Flags()
	f.StringVar(&cfg.SourceRoot, "source", "", "Directory of FHIR JSON bundles (required)")
	f.BoolVar(&cfg.Force, "force", false, "Reprocess documents whose SHA-256 is already registered")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	summary, err := backfill.Run(ctx, source.NewDirLister(cfg.SourceRoot), &db.LocationStore{Pool: pool}, log, cfg.Force)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("backfill failed")
			os.Exit(phaseExitCode(pe.Phase))
		}
		log.Error().Err(err).Msg("backfill failed")
		os.Exit(exitcode.ProcessError)
	}

	fmt.Printf("Backfill complete: %d patients updated, %d locations created, %d documents skipped, %d already loaded (%.1fs)\n",
		summary.DocumentsUpdated, summary.LocationsCreated, summary.DocumentsSkipped,
		summary.DocumentsLoaded, summary.DurationTotal.Seconds())
	if summary.DocumentsSkipped > 0 {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

// Compile-time check that the database store serves the backfill.
var _ backfill.Store = (*db.LocationStore)(nil)
