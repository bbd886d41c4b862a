package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/fhirfeatures/internal/config"
	"github.com/gyeh/fhirfeatures/internal/engine"
	"github.com/gyeh/fhirfeatures/internal/model"
	"github.com/gyeh/fhirfeatures/internal/sink"
	"github.com/gyeh/fhirfeatures/internal/source"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run executes the full feature pipeline: enumerate → aggregate → reduce →
// sink. Only enumeration, cancellation and sink failures abort the run;
// unreadable or malformed documents are counted and skipped.
func Run(ctx context.Context, lister source.Lister, out sink.Sink, log zerolog.Logger, cfg *config.Config) (*model.RunSummary, error) {
	totalStart := time.Now()

	// Phase 1: Enumerate
	log.Info().Str("source", cfg.SourceRoot).Msg("enumerating documents")
	paths, err := lister.List(ctx)
	if err != nil {
		return nil, &PipelineError{Phase: "enumerate", Err: err}
	}

	// Phase 2: Aggregate
	log.Info().Int("documents", len(paths)).Int("workers", cfg.Workers).Msg("starting aggregation")
	tables := cfg.Tables()
	store, summary, err := Aggregate(ctx, lister, paths, tables, log, cfg)
	if err != nil {
		return nil, &PipelineError{Phase: "aggregate", Err: err}
	}
	summary.SourceRoot = cfg.SourceRoot

	// Phase 3: Reduce
	reduceStart := time.Now()
	records := engine.ReduceAll(store, tables, time.Now())
	summary.DurationReduce = time.Since(reduceStart)
	log.Info().
		Int("records", len(records)).
		Int("columns", len(sink.Columns(records))).
		Dur("duration", summary.DurationReduce).
		Msg("reduction complete")

	// Phase 4: Sink
	sinkStart := time.Now()
	if err := out.Write(ctx, records); err != nil {
		return nil, &PipelineError{Phase: "sink", Err: err}
	}
	summary.RecordsWritten = int64(len(records))
	summary.DurationSink = time.Since(sinkStart)
	summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int64("documents_read", summary.DocumentsRead).
		Int64("documents_failed", summary.DocumentsFailed).
		Int64("entries_read", summary.EntriesRead).
		Int64("entries_ignored", summary.EntriesIgnored).
		Int64("entries_skipped", summary.EntriesSkipped).
		Int64("patients", summary.Patients).
		Int64("records_written", summary.RecordsWritten).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("feature pipeline complete")

	return summary, nil
}
