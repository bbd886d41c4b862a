package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/fhirfeatures/internal/bundle"
	"github.com/gyeh/fhirfeatures/internal/config"
	"github.com/gyeh/fhirfeatures/internal/engine"
	"github.com/gyeh/fhirfeatures/internal/model"
	"github.com/gyeh/fhirfeatures/internal/source"
)

// DocumentResult is the outcome of processing one document: either a partial
// store holding that document's contributions, or the reason it was skipped.
type DocumentResult struct {
	Path       string
	Store      *engine.Store
	Stats      engine.DocumentStats
	DecodeErrs []error
	Err        error
}

// ProcessDocument reads, parses and dispatches one document into a fresh store.
func ProcessDocument(lister source.Lister, d *engine.Dispatcher, path string) DocumentResult {
	res := DocumentResult{Path: path}
	data, err := lister.Read(path)
	if err != nil {
		res.Err = err
		return res
	}
	entries, err := bundle.Parse(data)
	if err != nil {
		res.Err = err
		return res
	}
	res.Store = engine.NewStore()
	res.Stats, res.DecodeErrs = d.DispatchAll(res.Store, entries)
	return res
}

// Aggregate folds every document into one store. Documents are processed by
// cfg.Workers goroutines, cfg.BatchSize at a time, each into its own partial
// store; partials are merged in path order, so the result matches a
// sequential pass over paths.
func Aggregate(ctx context.Context, lister source.Lister, paths []string, tables model.Tables, log zerolog.Logger, cfg *config.Config) (*engine.Store, *model.RunSummary, error) {
	start := time.Now()
	dispatcher := engine.NewDispatcher(tables)
	store := engine.NewStore()
	summary := &model.RunSummary{
		DocumentsListed: int64(len(paths)),
		EntriesByKind:   make(map[string]int64),
	}

	workers, batchSize := max(cfg.Workers, 1), max(cfg.BatchSize, 1)
	for lo := 0; lo < len(paths); lo += batchSize {
		batch := paths[lo:min(lo+batchSize, len(paths))]
		results := make([]DocumentResult, len(batch))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, path := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = ProcessDocument(lister, dispatcher, path)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nil, fmt.Errorf("aggregate batch at document %d: %w", lo, err)
		}

		for _, res := range results {
			fold(store, summary, res, log)
		}
	}

	summary.Patients = int64(store.Len())
	summary.DurationParse = time.Since(start)
	log.Info().
		Int64("documents_read", summary.DocumentsRead).
		Int64("documents_failed", summary.DocumentsFailed).
		Int64("patients", summary.Patients).
		Dur("duration", summary.DurationParse).
		Msg("aggregation complete")

	return store, summary, nil
}

// fold merges one document result into the run store and summary.
func fold(store *engine.Store, summary *model.RunSummary, res DocumentResult, log zerolog.Logger) {
	if res.Err != nil {
		summary.DocumentsFailed++
		log.Warn().Err(res.Err).Str("document", res.Path).Msg("document skipped")
		return
	}
	summary.DocumentsRead++
	summary.EntriesRead += res.Stats.Entries
	summary.EntriesIgnored += res.Stats.Ignored
	summary.EntriesSkipped += res.Stats.Skipped
	for kind, n := range res.Stats.ByKind {
		summary.EntriesByKind[kind] += n
	}
	for _, err := range res.DecodeErrs {
		log.Debug().Err(err).Str("document", res.Path).Msg("entry skipped")
	}
	store.Merge(res.Store)
}
