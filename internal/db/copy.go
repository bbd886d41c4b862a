package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/fhirfeatures/internal/model"
)

// FeatureColumns is the COPY column order for readmit.patient_features.
var FeatureColumns = []string{
	"run_id",
	"patient_id",
	"gender",
	"birth_date",
	"age",
	"city",
	"condition_count",
	"encounter_count",
	"avg_length_of_stay",
	"chronic_conditions",
	"labs",
}

// fixedFields are the record fields that have their own column. Every other
// field is a lab statistic and goes into the labs document.
var fixedFields = map[string]bool{
	model.FieldPatientID:         true,
	model.FieldGender:            true,
	model.FieldBirthDate:         true,
	model.FieldAge:               true,
	model.FieldCity:              true,
	model.FieldConditionCount:    true,
	model.FieldEncounterCount:    true,
	model.FieldAvgLengthOfStay:   true,
	model.FieldChronicConditions: true,
}

// RecordSource implements pgx.CopyFromSource over reduced output records.
type RecordSource struct {
	runID   uuid.UUID
	records []model.OutputRecord
	pos     int
}

// NewRecordSource creates a CopyFromSource that tags every row with runID.
func NewRecordSource(runID uuid.UUID, records []model.OutputRecord) *RecordSource {
	return &RecordSource{runID: runID, records: records, pos: -1}
}

// Next advances to the next record. Returns false after the last one.
func (s *RecordSource) Next() bool {
	s.pos++
	return s.pos < len(s.records)
}

// Values returns the current record's values in FeatureColumns order.
func (s *RecordSource) Values() ([]any, error) {
	return FeatureValues(s.runID, s.records[s.pos]), nil
}

// Err always returns nil; the records are already in memory.
func (s *RecordSource) Err() error {
	return nil
}

// FeatureValues maps one record onto FeatureColumns. Absent fields become
// NULL; the counts default to zero.
func FeatureValues(runID uuid.UUID, r model.OutputRecord) []any {
	labs := make(map[string]any)
	for _, name := range r.Names() {
		if !fixedFields[name] {
			labs[name], _ = r.Get(name)
		}
	}
	return []any{
		runID,
		r.PatientID(),
		value(r, model.FieldGender),
		value(r, model.FieldBirthDate),
		value(r, model.FieldAge),
		value(r, model.FieldCity),
		count(r, model.FieldConditionCount),
		count(r, model.FieldEncounterCount),
		value(r, model.FieldAvgLengthOfStay),
		value(r, model.FieldChronicConditions),
		labs,
	}
}

func value(r model.OutputRecord, name string) any {
	v, ok := r.Get(name)
	if !ok {
		return nil
	}
	return v
}

func count(r model.OutputRecord, name string) int64 {
	n, _ := r.Get(name)
	switch v := n.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Compile-time check that RecordSource satisfies the interface.
var _ pgx.CopyFromSource = (*RecordSource)(nil)
