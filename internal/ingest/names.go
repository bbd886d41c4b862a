package ingest

import (
	"context"
	"regexp"
	"sort"

	"github.com/rs/zerolog"

	"github.com/gyeh/fhirfeatures/internal/bundle"
	"github.com/gyeh/fhirfeatures/internal/model"
	"github.com/gyeh/fhirfeatures/internal/source"
)

// placeholderName matches generated names such as "FN123 LN456".
var placeholderName = regexp.MustCompile(`^FN.*LN`)

// ExtractNames returns patient_id → display name for every Patient resource
// with a real name. Later documents overwrite earlier ones. Documents that
// cannot be read or parsed are skipped.
func ExtractNames(ctx context.Context, lister source.Lister, log zerolog.Logger) (map[string]string, error) {
	paths, err := lister.List(ctx)
	if err != nil {
		return nil, &PipelineError{Phase: "enumerate", Err: err}
	}

	names := make(map[string]string)
	var skipped int
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := lister.Read(path)
		if err != nil {
			skipped++
			continue
		}
		entries, err := bundle.Parse(data)
		if err != nil {
			skipped++
			continue
		}
		for _, e := range entries {
			if e.Kind != bundle.KindPatient {
				continue
			}
			var p bundle.Patient
			if err := bundle.Decode(e.Resource, &p); err != nil || p.ID == nil || *p.ID == "" {
				continue
			}
			name := p.DisplayName()
			if name == "" || placeholderName.MatchString(name) {
				continue
			}
			names[*p.ID] = name
		}
	}

	log.Info().
		Int("documents", len(paths)).
		Int("documents_skipped", skipped).
		Int("patients", len(names)).
		Msg("name extraction complete")
	return names, nil
}

// NameRecords converts a name map into output records sorted by patient id.
func NameRecords(names map[string]string) []model.OutputRecord {
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	records := make([]model.OutputRecord, 0, len(ids))
	for _, id := range ids {
		r := model.NewOutputRecord()
		r.Set(model.FieldPatientID, id)
		r.Set("name", names[id])
		records = append(records, r)
	}
	return records
}
