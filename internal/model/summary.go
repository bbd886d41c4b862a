package model

import "time"

// RunSummary captures metrics from a single feature extraction run.
type RunSummary struct {
	SourceRoot      string
	DocumentsListed int64
	DocumentsRead   int64
	DocumentsFailed int64
	EntriesRead     int64
	EntriesIgnored  int64 // unknown kind or unresolvable reference
	EntriesSkipped  int64 // resource body could not be decoded
	Patients        int64
	RecordsWritten  int64
	EntriesByKind   map[string]int64
	DurationParse   time.Duration
	DurationReduce  time.Duration
	DurationSink    time.Duration
	DurationTotal   time.Duration
}

// BackfillSummary captures metrics from a location backfill run.
type BackfillSummary struct {
	DocumentsListed   int64
	DocumentsUpdated  int64
	DocumentsSkipped  int64 // malformed or missing required fields
	DocumentsLoaded   int64 // already registered, not reprocessed
	LocationsCreated  int64
	PatientsUnmatched int64 // no patients row for the id
	DurationTotal     time.Duration
}
