package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/fhirfeatures/internal/engine"
	"github.com/gyeh/fhirfeatures/internal/exitcode"
	"github.com/gyeh/fhirfeatures/internal/ingest"
	"github.com/gyeh/fhirfeatures/internal/logging"
	"github.com/gyeh/fhirfeatures/internal/sink"
	"github.com/gyeh/fhirfeatures/internal/source"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run aggregation and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&cfg.SourceRoot, "source", "", "Directory of FHIR JSON bundles (required)")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	lister := source.NewDirLister(cfg.SourceRoot)
	paths, err := lister.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to enumerate documents")
		os.Exit(exitcode.SourceError)
	}

	tables := cfg.Tables()
	store, summary, err := ingest.Aggregate(ctx, lister, paths, tables, log, &cfg)
	if err != nil {
		log.Error().Err(err).Msg("aggregation failed")
		os.Exit(exitcode.ProcessError)
	}
	records := engine.ReduceAll(store, tables, time.Now())

	// Tally tracked codes across patients.
	labObs := make(map[string]int)
	labPatients := make(map[string]int)
	chronicPatients := make(map[string]int)
	for _, id := range store.IDs() {
		acc, _ := store.Lookup(id)
		for code, values := range acc.Labs {
			labObs[code] += len(values)
			labPatients[code]++
		}
		for label := range acc.ChronicConditions {
			chronicPatients[label]++
		}
	}

	// Print report
	fmt.Println("=== fhirfeatures plan ===")
	fmt.Printf("Source:     %s\n", cfg.SourceRoot)
	fmt.Printf("Documents:  %d listed, %d read, %d skipped\n",
		summary.DocumentsListed, summary.DocumentsRead, summary.DocumentsFailed)
	fmt.Printf("Entries:    %d read, %d ignored, %d undecodable\n",
		summary.EntriesRead, summary.EntriesIgnored, summary.EntriesSkipped)
	fmt.Printf("Patients:   %d\n", summary.Patients)
	fmt.Printf("Columns:    %d\n", len(sink.Columns(records)))
	fmt.Println()

	fmt.Println("Entries by resource kind:")
	kinds := make([]string, 0, len(summary.EntriesByKind))
	for kind := range summary.EntriesByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("  %-24s %8d\n", kind, summary.EntriesByKind[kind])
	}
	fmt.Println()

	fmt.Println("Tracked labs:")
	for _, lab := range tables.Labs.Codes() {
		fmt.Printf("  %-16s %-8s %8d observations, %6d patients\n",
			lab.Label, lab.Code, labObs[lab.Code], labPatients[lab.Code])
	}
	fmt.Println()

	fmt.Println("Chronic conditions:")
	for _, cond := range tables.Chronic.Codes() {
		fmt.Printf("  %-16s %-10s %6d patients\n", cond.Label, cond.Code, chronicPatients[cond.Label])
	}

	return nil
}
