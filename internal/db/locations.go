package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	embedsql "github.com/gyeh/fhirfeatures/internal/sql"
)

// LocationStore runs the location backfill statements against readmit.
type LocationStore struct {
	Pool *pgxpool.Pool
}

// ResolveLocation returns the id of the (city, state, postalCode) location,
// inserting it with the given hospital name when it does not exist yet.
// created reports whether this call inserted it.
func (s *LocationStore) ResolveLocation(ctx context.Context, city, state, postalCode, hospitalName string) (id int64, created bool, err error) {
	err = s.Pool.QueryRow(ctx, embedsql.LookupLocation, city, state, postalCode).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("lookup location: %w", err)
	}

	err = s.Pool.QueryRow(ctx, embedsql.InsertLocation, city, state, postalCode, hospitalName).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("insert location: %w", err)
	}

	// Inserted concurrently (ON CONFLICT DO NOTHING returned no rows); look up again.
	if err2 := s.Pool.QueryRow(ctx, embedsql.LookupLocation, city, state, postalCode).Scan(&id); err2 != nil {
		return 0, false, fmt.Errorf("resolve location: insert=%w, lookup=%w", err, err2)
	}
	return id, false, nil
}

// AssignPatientLocation points an existing patient at a location. matched is
// false when no patient row has that id.
func (s *LocationStore) AssignPatientLocation(ctx context.Context, patientID string, locationID int64) (matched bool, err error) {
	tag, err := s.Pool.Exec(ctx, embedsql.AssignPatientLocation, patientID, locationID)
	if err != nil {
		return false, fmt.Errorf("assign patient location: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IsFileLoaded reports whether a document with this content hash was
// already processed.
func (s *LocationStore) IsFileLoaded(ctx context.Context, sha256 string) (bool, error) {
	var id int64
	err := s.Pool.QueryRow(ctx, embedsql.LookupIngestedFile, sha256).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup ingested file: %w", err)
	}
	return true, nil
}

// MarkFileLoaded records a processed document by content hash.
func (s *LocationStore) MarkFileLoaded(ctx context.Context, fileName, sha256 string) error {
	if _, err := s.Pool.Exec(ctx, embedsql.RegisterIngestedFile, fileName, sha256); err != nil {
		return fmt.Errorf("register ingested file: %w", err)
	}
	return nil
}
