package fixture

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/gyeh/fhirfeatures/internal/bundle"
)

func TestGenerate_Layout(t *testing.T) {
	fs := afero.NewMemMapFs()
	opts := DefaultOptions()
	opts.Patients, opts.DocsPerPatient, opts.EntriesPerKind = 5, 2, 3

	paths, err := Generate(fs, "/fx", opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(paths) != 10 {
		t.Fatalf("documents: got %d, want 10", len(paths))
	}

	for _, path := range paths {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		entries, err := bundle.Parse(data)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		// One Patient plus three entries of each generated kind.
		if len(entries) != 10 {
			t.Errorf("%s: got %d entries, want 10", path, len(entries))
		}
		if entries[0].Kind != bundle.KindPatient {
			t.Errorf("%s: first entry is %s", path, entries[0].Kind)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, b := afero.NewMemMapFs(), afero.NewMemMapFs()
	paths, err := Generate(a, "/fx", DefaultOptions())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Generate(b, "/fx", DefaultOptions()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, path := range paths {
		da, _ := afero.ReadFile(a, path)
		db, _ := afero.ReadFile(b, path)
		if !bytes.Equal(da, db) {
			t.Fatalf("%s differs between runs with the same seed", path)
		}
	}
}
