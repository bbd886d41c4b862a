package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/fhirfeatures/internal/model"
	embedsql "github.com/gyeh/fhirfeatures/internal/sql"
)

// FeatureSink loads reduced records into readmit.patient_features. Each
// Write is one run: a readmit.feature_runs row plus one feature row per
// patient, committed together.
type FeatureSink struct {
	Pool       *pgxpool.Pool
	RunID      uuid.UUID
	SourceRoot string
	Log        zerolog.Logger
}

// NewFeatureSink returns a sink that tags its rows with a fresh run id.
func NewFeatureSink(pool *pgxpool.Pool, sourceRoot string, log zerolog.Logger) *FeatureSink {
	return &FeatureSink{Pool: pool, RunID: uuid.New(), SourceRoot: sourceRoot, Log: log}
}

// Write copies records in a single transaction.
func (s *FeatureSink) Write(ctx context.Context, records []model.OutputRecord) error {
	start := time.Now()

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin feature load: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, embedsql.CreateFeatureRun, s.RunID, s.SourceRoot); err != nil {
		return fmt.Errorf("create feature run: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"readmit", "patient_features"},
		FeatureColumns,
		NewRecordSource(s.RunID, records),
	)
	if err != nil {
		return fmt.Errorf("copy patient features: %w", err)
	}

	if _, err := tx.Exec(ctx, embedsql.FinishFeatureRun, s.RunID, copied); err != nil {
		return fmt.Errorf("finish feature run: %w", err)
	}

	tag, err := tx.Exec(ctx, embedsql.UpsertRunPatients, s.RunID)
	if err != nil {
		return fmt.Errorf("upsert patients: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit feature load: %w", err)
	}

	s.Log.Info().
		Str("run_id", s.RunID.String()).
		Int64("rows_copied", copied).
		Int64("patients_added", tag.RowsAffected()).
		Dur("duration", time.Since(start)).
		Msg("features loaded")
	return nil
}
