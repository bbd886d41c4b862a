// Package backfill assigns patients to hospital locations derived from the
// address on their Patient resource.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/fhirfeatures/internal/bundle"
	"github.com/gyeh/fhirfeatures/internal/ingest"
	"github.com/gyeh/fhirfeatures/internal/model"
	"github.com/gyeh/fhirfeatures/internal/source"
)

// ErrMissingRequiredField means the document's Patient lacks an id, city,
// state or postal code.
var ErrMissingRequiredField = errors.New("missing required field")

// Store is the relational side of the backfill.
type Store interface {
	ResolveLocation(ctx context.Context, city, state, postalCode, hospitalName string) (id int64, created bool, err error)
	AssignPatientLocation(ctx context.Context, patientID string, locationID int64) (matched bool, err error)
	IsFileLoaded(ctx context.Context, sha256 string) (bool, error)
	MarkFileLoaded(ctx context.Context, fileName, sha256 string) error
}

// Location is a patient's address reduced to the location key.
type Location struct {
	PatientID  string
	City       string
	State      string
	PostalCode string
}

// HospitalName is the placeholder name given to a newly created location.
func (l Location) HospitalName() string {
	return l.City + " General Hospital"
}

// ExtractLocation returns the location of the last Patient resource in a
// document, taken from that Patient's first address.
func ExtractLocation(data []byte) (Location, error) {
	entries, err := bundle.Parse(data)
	if err != nil {
		return Location{}, err
	}

	var last *bundle.Patient
	for _, e := range entries {
		if e.Kind != bundle.KindPatient {
			continue
		}
		var p bundle.Patient
		if err := bundle.Decode(e.Resource, &p); err != nil {
			continue
		}
		last = &p
	}
	if last == nil {
		return Location{}, fmt.Errorf("%w: no Patient resource", ErrMissingRequiredField)
	}

	loc := Location{PatientID: deref(last.ID)}
	if a := last.FirstAddress(); a != nil {
		loc.City, loc.State, loc.PostalCode = deref(a.City), deref(a.State), deref(a.PostalCode)
	}
	switch {
	case loc.PatientID == "":
		return loc, fmt.Errorf("%w: id", ErrMissingRequiredField)
	case loc.City == "":
		return loc, fmt.Errorf("%w: city", ErrMissingRequiredField)
	case loc.State == "":
		return loc, fmt.Errorf("%w: state", ErrMissingRequiredField)
	case loc.PostalCode == "":
		return loc, fmt.Errorf("%w: postalCode", ErrMissingRequiredField)
	}
	return loc, nil
}

// Run processes every document under lister. Incomplete or malformed
// documents are logged and skipped; store failures abort the run. Documents
// whose content hash is already registered are skipped unless force is set.
func Run(ctx context.Context, lister source.Lister, store Store, log zerolog.Logger, force bool) (*model.BackfillSummary, error) {
	start := time.Now()

	paths, err := lister.List(ctx)
	if err != nil {
		return nil, &ingest.PipelineError{Phase: "enumerate", Err: err}
	}
	summary := &model.BackfillSummary{DocumentsListed: int64(len(paths))}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := lister.Read(path)
		if err != nil {
			summary.DocumentsSkipped++
			log.Warn().Err(err).Str("document", path).Msg("document skipped")
			continue
		}

		sha := source.ContentHash(data)
		if !force {
			loaded, err := store.IsFileLoaded(ctx, sha)
			if err != nil {
				return nil, &ingest.PipelineError{Phase: "store", Err: err}
			}
			if loaded {
				summary.DocumentsLoaded++
				log.Debug().Str("document", path).Str("sha256", sha).Msg("document already loaded")
				continue
			}
		}

		loc, err := ExtractLocation(data)
		if err != nil {
			summary.DocumentsSkipped++
			log.Warn().Err(err).Str("document", path).Msg("document skipped")
			continue
		}

		locationID, created, err := store.ResolveLocation(ctx, loc.City, loc.State, loc.PostalCode, loc.HospitalName())
		if err != nil {
			return nil, &ingest.PipelineError{Phase: "store", Err: err}
		}
		if created {
			summary.LocationsCreated++
		}

		matched, err := store.AssignPatientLocation(ctx, loc.PatientID, locationID)
		if err != nil {
			return nil, &ingest.PipelineError{Phase: "store", Err: err}
		}
		if matched {
			summary.DocumentsUpdated++
		} else {
			summary.PatientsUnmatched++
			log.Warn().Str("patient_id", loc.PatientID).Str("document", path).Msg("no patient row to update")
		}

		if err := store.MarkFileLoaded(ctx, filepath.Base(path), sha); err != nil {
			return nil, &ingest.PipelineError{Phase: "store", Err: err}
		}
		log.Debug().
			Str("patient_id", loc.PatientID).
			Int64("location_id", locationID).
			Msg("patient location updated")
	}

	summary.DurationTotal = time.Since(start)
	log.Info().
		Int64("documents_listed", summary.DocumentsListed).
		Int64("documents_updated", summary.DocumentsUpdated).
		Int64("documents_skipped", summary.DocumentsSkipped).
		Int64("documents_already_loaded", summary.DocumentsLoaded).
		Int64("locations_created", summary.LocationsCreated).
		Int64("patients_unmatched", summary.PatientsUnmatched).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("location backfill complete")

	return summary, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
