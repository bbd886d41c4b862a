// mkfixture writes a directory of synthetic FHIR bundles for local runs.
// Each patient's history is split over several documents.
// Usage: go run ./cmd/mkfixture --out testdata/bundles --patients 200 --docs 3
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/gyeh/fhirfeatures/internal/fixture"
)

func main() {
	opts := fixture.DefaultOptions()
	out := flag.String("out", "testdata/bundles", "output directory")
	flag.IntVar(&opts.Patients, "patients", opts.Patients, "distinct patients")
	flag.IntVar(&opts.DocsPerPatient, "docs", opts.DocsPerPatient, "documents per patient")
	flag.IntVar(&opts.EntriesPerKind, "entries", opts.EntriesPerKind, "conditions, encounters and observations per document")
	flag.Float64Var(&opts.PlaceholderRate, "placeholder-rate", opts.PlaceholderRate, "share of patients with FN/LN placeholder names")
	flag.Float64Var(&opts.NoiseRate, "noise-rate", opts.NoiseRate, "share of entries without a subject or of an untracked kind")
	flag.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	flag.Parse()

	paths, err := fixture.Generate(afero.NewOsFs(), *out, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate fixtures: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d documents for %d patients to %s\n", len(paths), opts.Patients, *out)
}
