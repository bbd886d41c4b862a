package db

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/gyeh/fhirfeatures/internal/model"
)

func TestFeatureValues(t *testing.T) {
	runID := uuid.New()
	r := model.NewOutputRecord()
	r.Set(model.FieldPatientID, "p1")
	r.Set(model.FieldGender, "female")
	r.Set(model.FieldAge, int64(35))
	r.Set(model.FieldConditionCount, int64(2))
	r.Set(model.FieldEncounterCount, int64(1))
	r.Set("Glucose_min", 80.0)
	r.Set("Glucose_max", 120.0)

	got := FeatureValues(runID, r)
	if len(got) != len(FeatureColumns) {
		t.Fatalf("got %d values for %d columns", len(got), len(FeatureColumns))
	}

	want := []any{
		runID, "p1", "female", nil, int64(35), nil, int64(2), int64(1), nil, nil,
		map[string]any{"Glucose_min": 80.0, "Glucose_max": 120.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got  %v\nwant %v", got, want)
	}
}

func TestFeatureValues_MissingCountsAreZero(t *testing.T) {
	r := model.NewOutputRecord()
	r.Set(model.FieldPatientID, "p2")

	got := FeatureValues(uuid.Nil, r)
	if got[6] != int64(0) || got[7] != int64(0) {
		t.Errorf("counts: got %v, %v", got[6], got[7])
	}
	if labs := got[10].(map[string]any); len(labs) != 0 {
		t.Errorf("expected empty labs, got %v", labs)
	}
}

func TestRecordSource_Iterates(t *testing.T) {
	var records []model.OutputRecord
	for _, id := range []string{"a", "b", "c"} {
		r := model.NewOutputRecord()
		r.Set(model.FieldPatientID, id)
		records = append(records, r)
	}

	src := NewRecordSource(uuid.New(), records)
	var ids []string
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			t.Fatalf("Values: %v", err)
		}
		ids = append(ids, values[1].(string))
	}
	if src.Err() != nil {
		t.Errorf("Err: %v", src.Err())
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("got %v", ids)
	}

	if NewRecordSource(uuid.New(), nil).Next() {
		t.Error("empty source should yield no rows")
	}
}

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("MigrationNames: %v", err)
	}
	want := []string{"migrations/001_schema.sql", "migrations/002_patient_features.sql"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("got %v, want %v", names, want)
	}
}
