package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/fhirfeatures/internal/exitcode"
	"github.com/gyeh/fhirfeatures/internal/ingest"
	"github.com/gyeh/fhirfeatures/internal/logging"
	"github.com/gyeh/fhirfeatures/internal/sink"
	"github.com/gyeh/fhirfeatures/internal/source"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Write patient_id,name for every Patient with a real display name",
	RunE:  runNames,
}

func init() {
	f := namesCmd.Flags()
	f.StringVar(&cfg.SourceRoot, "source", "", "Directory of FHIR JSON bundles (required)")
	f.StringVar(&cfg.OutputPath, "out", "", "Output CSV file (default stdout)")
	rootCmd.AddCommand(namesCmd)
}

func runNames(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	names, err := ingest.ExtractNames(ctx, source.NewDirLister(cfg.SourceRoot), log)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("name extraction failed")
			os.Exit(phaseExitCode(pe.Phase))
		}
		log.Error().Err(err).Msg("name extraction failed")
		os.Exit(exitcode.ProcessError)
	}

	records := ingest.NameRecords(names)
	if cfg.OutputPath == "" {
		err = sink.WriteCSV(ctx, os.Stdout, records)
	} else {
		err = sink.NewCSV(cfg.OutputPath).Write(ctx, records)
	}
	if err != nil {
		log.Error().Err(err).Msg("write names failed")
		os.Exit(exitcode.SinkError)
	}

	if cfg.OutputPath != "" {
		fmt.Printf("Names complete: %d patients written to %s\n", len(records), cfg.OutputPath)
	}
	return nil
}
