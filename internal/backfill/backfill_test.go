package backfill

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/gyeh/fhirfeatures/internal/bundle"
	"github.com/gyeh/fhirfeatures/internal/ingest"
	"github.com/gyeh/fhirfeatures/internal/source"
)

// ---------- fake store ----------

type locKey struct{ city, state, postal string }

type fakeStore struct {
	locations map[locKey]int64
	names     map[int64]string
	patients  map[string]int64 // existing patient rows; 0 means no location yet
	files     map[string]string
	failOn    string
}

func newFakeStore(patients ...string) *fakeStore {
	s := &fakeStore{
		locations: make(map[locKey]int64),
		names:     make(map[int64]string),
		patients:  make(map[string]int64),
		files:     make(map[string]string),
	}
	for _, p := range patients {
		s.patients[p] = 0
	}
	return s
}

func (s *fakeStore) ResolveLocation(_ context.Context, city, state, postal, hospital string) (int64, bool, error) {
	if s.failOn == "resolve" {
		return 0, false, errors.New("connection reset")
	}
	k := locKey{city, state, postal}
	if id, ok := s.locations[k]; ok {
		return id, false, nil
	}
	id := int64(len(s.locations) + 1)
	s.locations[k] = id
	s.names[id] = hospital
	return id, true, nil
}

func (s *fakeStore) AssignPatientLocation(_ context.Context, patientID string, locationID int64) (bool, error) {
	if _, ok := s.patients[patientID]; !ok {
		return false, nil
	}
	s.patients[patientID] = locationID
	return true, nil
}

func (s *fakeStore) IsFileLoaded(_ context.Context, sha string) (bool, error) {
	_, ok := s.files[sha]
	return ok, nil
}

func (s *fakeStore) MarkFileLoaded(_ context.Context, name, sha string) error {
	s.files[sha] = name
	return nil
}

// ---------- helpers ----------

func patientDoc(id, city, state, postal string) string {
	var fields []string
	if id != "" {
		fields = append(fields, `"id": "`+id+`"`)
	}
	var addr []string
	if city != "" {
		addr = append(addr, `"city": "`+city+`"`)
	}
	if state != "" {
		addr = append(addr, `"state": "`+state+`"`)
	}
	if postal != "" {
		addr = append(addr, `"postalCode": "`+postal+`"`)
	}
	fields = append(fields, `"address": [{`+strings.Join(addr, ", ")+`}]`)
	return `{"resourceType": "Patient", ` + strings.Join(fields, ", ") + `}`
}

func doc(resources ...string) string {
	entries := make([]string, len(resources))
	for i, r := range resources {
		entries[i] = `{"resource": ` + r + `}`
	}
	return `{"resourceType": "Bundle", "entry": [` + strings.Join(entries, ", ") + `]}`
}

func memLister(t *testing.T, docs map[string]string) *source.DirLister {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range docs {
		if err := afero.WriteFile(fs, "/data/"+name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return &source.DirLister{Fs: fs, Root: "/data"}
}

// ---------- tests ----------

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Location
		wantErr error
	}{
		{
			name: "complete",
			data: doc(patientDoc("p1", "Boston", "MA", "02108")),
			want: Location{PatientID: "p1", City: "Boston", State: "MA", PostalCode: "02108"},
		},
		{
			name: "last_patient_wins",
			data: doc(patientDoc("p1", "Boston", "MA", "02108"), patientDoc("p2", "Salem", "MA", "01970")),
			want: Location{PatientID: "p2", City: "Salem", State: "MA", PostalCode: "01970"},
		},
		{
			name:    "missing_state",
			data:    doc(patientDoc("p1", "Boston", "", "02108")),
			wantErr: ErrMissingRequiredField,
		},
		{
			name:    "missing_id",
			data:    doc(patientDoc("", "Boston", "MA", "02108")),
			wantErr: ErrMissingRequiredField,
		},
		{
			name:    "no_patient",
			data:    doc(`{"resourceType": "Encounter"}`),
			wantErr: ErrMissingRequiredField,
		},
		{
			name:    "malformed",
			data:    `{"entry": [`,
			wantErr: bundle.ErrMalformedDocument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractLocation([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHospitalName(t *testing.T) {
	if got := (Location{City: "Worcester"}).HospitalName(); got != "Worcester General Hospital" {
		t.Errorf("got %q", got)
	}
}

func TestRun(t *testing.T) {
	lister := memLister(t, map[string]string{
		"a.json": doc(patientDoc("p1", "Boston", "MA", "02108")),
		"b.json": doc(patientDoc("p2", "Boston", "MA", "02108")),
		"c.json": doc(patientDoc("p3", "Salem", "MA", "01970")),
		"d.json": doc(patientDoc("p4", "Salem", "", "01970")),
		"e.json": `not json`,
		"f.json": doc(patientDoc("ghost", "Lowell", "MA", "01850")),
	})
	store := newFakeStore("p1", "p2", "p3", "p4")
	log := zerolog.New(io.Discard)

	summary, err := Run(context.Background(), lister, store, log, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.DocumentsListed != 6 || summary.DocumentsUpdated != 3 || summary.DocumentsSkipped != 2 {
		t.Errorf("documents: %+v", summary)
	}
	if summary.LocationsCreated != 3 {
		t.Errorf("LocationsCreated: got %d, want 3", summary.LocationsCreated)
	}
	if summary.PatientsUnmatched != 1 {
		t.Errorf("PatientsUnmatched: got %d, want 1", summary.PatientsUnmatched)
	}
	if store.patients["p1"] != store.patients["p2"] || store.patients["p1"] == 0 {
		t.Errorf("p1 and p2 should share a location: %v", store.patients)
	}
	if store.patients["p4"] != 0 {
		t.Errorf("p4 should be untouched, got location %d", store.patients["p4"])
	}
	if store.names[store.patients["p3"]] != "Salem General Hospital" {
		t.Errorf("hospital name: got %q", store.names[store.patients["p3"]])
	}
	if len(store.files) != 4 {
		t.Errorf("registered files: got %d, want 4", len(store.files))
	}

	t.Run("rerun_skips_loaded", func(t *testing.T) {
		again, err := Run(context.Background(), lister, store, log, false)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if again.DocumentsLoaded != 4 || again.DocumentsUpdated != 0 || again.LocationsCreated != 0 {
			t.Errorf("rerun: %+v", again)
		}
	})

	t.Run("force_reprocesses", func(t *testing.T) {
		forced, err := Run(context.Background(), lister, store, log, true)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if forced.DocumentsLoaded != 0 || forced.DocumentsUpdated != 3 || forced.PatientsUnmatched != 1 || forced.LocationsCreated != 0 {
			t.Errorf("forced: %+v", forced)
		}
	})
}

func TestRun_StoreFailureAborts(t *testing.T) {
	lister := memLister(t, map[string]string{"a.json": doc(patientDoc("p1", "Boston", "MA", "02108"))})
	store := newFakeStore("p1")
	store.failOn = "resolve"

	_, err := Run(context.Background(), lister, store, zerolog.New(io.Discard), false)
	var pe *ingest.PipelineError
	if !errors.As(err, &pe) || pe.Phase != "store" {
		t.Fatalf("expected store PipelineError, got %v", err)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	lister := &source.DirLister{Fs: afero.NewMemMapFs(), Root: "/nowhere"}
	_, err := Run(context.Background(), lister, newFakeStore(), zerolog.New(io.Discard), false)
	var pe *ingest.PipelineError
	if !errors.As(err, &pe) || pe.Phase != "enumerate" {
		t.Fatalf("expected enumerate PipelineError, got %v", err)
	}
}
