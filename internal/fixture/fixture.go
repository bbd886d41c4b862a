// Package fixture generates synthetic FHIR bundle directories for tests and
// local benchmarking.
package fixture

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/gyeh/fhirfeatures/internal/model"
)

// Options controls the shape of a generated corpus.
type Options struct {
	Patients        int
	DocsPerPatient  int
	EntriesPerKind  int     // Conditions, Encounters and Observations per document
	PlaceholderRate float64 // share of patients named "FNnnn LNnnn"
	NoiseRate       float64 // share of entries with no subject or an untracked kind
	Seed            uint64
}

// DefaultOptions is a small corpus that still spreads patients over several
// documents.
func DefaultOptions() Options {
	return Options{
		Patients:        20,
		DocsPerPatient:  3,
		EntriesPerKind:  4,
		PlaceholderRate: 0.2,
		NoiseRate:       0.1,
		Seed:            1,
	}
}

var cities = []struct{ city, state, postal string }{
	{"Boston", "MA", "02108"},
	{"Worcester", "MA", "01608"},
	{"Springfield", "MA", "01103"},
	{"Salem", "MA", "01970"},
	{"Lowell", "MA", "01852"},
}

var (
	givenNames  = []string{"Ann", "Luis", "Mei", "Omar", "Ruth", "Tariq"}
	familyNames = []string{"Baker", "Costa", "Nguyen", "Okafor", "Sato", "Weber"}
	genders     = []string{"female", "male", "other", "unknown"}
)

// plausible lab ranges keyed by LOINC code; codes not listed draw from 1-100.
var labRanges = map[string][2]float64{
	"29463-7": {45, 130},
	"8302-2":  {150, 200},
	"39156-5": {17, 40},
	"8480-6":  {95, 180},
	"8462-4":  {55, 110},
	"8867-4":  {50, 120},
	"9279-1":  {10, 26},
	"8310-5":  {36, 39.5},
	"2339-0":  {65, 250},
	"4548-4":  {4.5, 11},
}

type resource map[string]any

// Generate writes Patients*DocsPerPatient bundle documents under dir on fs
// and returns their paths. Patient documents are interleaved, so each
// patient's history is spread across the directory.
func Generate(fs afero.Fs, dir string, opts Options) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create fixture dir: %w", err)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	var paths []string
	for doc := 0; doc < opts.DocsPerPatient; doc++ {
		for p := 0; p < opts.Patients; p++ {
			pid := fmt.Sprintf("patient-%04d", p)
			entries := []resource{patientResource(rng, pid, p, opts)}

			for i := 0; i < opts.EntriesPerKind; i++ {
				entries = append(entries,
					conditionResource(rng, pid, opts),
					encounterResource(rng, pid, base, opts),
					observationResource(rng, pid, opts),
				)
			}

			data, err := json.MarshalIndent(resource{
				"resourceType": "Bundle",
				"type":         "collection",
				"entry":        wrap(entries),
			}, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode fixture: %w", err)
			}
			path := filepath.Join(dir, fmt.Sprintf("%s-%02d.json", pid, doc))
			if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
				return nil, fmt.Errorf("write fixture: %w", err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func wrap(resources []resource) []resource {
	out := make([]resource, len(resources))
	for i, r := range resources {
		out[i] = resource{"fullUrl": fmt.Sprintf("urn:uuid:%d", i), "resource": r}
	}
	return out
}

func patientResource(rng *rand.Rand, pid string, n int, opts Options) resource {
	loc := cities[rng.IntN(len(cities))]
	name := resource{
		"family": familyNames[rng.IntN(len(familyNames))],
		"given":  []string{givenNames[rng.IntN(len(givenNames))]},
	}
	if rng.Float64() < opts.PlaceholderRate {
		name = resource{"family": fmt.Sprintf("LN%03d", n), "given": []string{fmt.Sprintf("FN%03d", n)}}
	}
	birth := time.Date(1930+rng.IntN(75), time.Month(1+rng.IntN(12)), 1+rng.IntN(28), 0, 0, 0, 0, time.UTC)
	return resource{
		"resourceType": "Patient",
		"id":           pid,
		"gender":       genders[rng.IntN(len(genders))],
		"birthDate":    birth.Format("2006-01-02"),
		"name":         []resource{name},
		"address": []resource{{
			"city":       loc.city,
			"state":      loc.state,
			"postalCode": loc.postal,
		}},
	}
}

func subject(rng *rand.Rand, pid string, opts Options) resource {
	if rng.Float64() < opts.NoiseRate {
		return nil
	}
	return resource{"reference": "Patient/" + pid}
}

func withSubject(r resource, ref resource) resource {
	if ref != nil {
		r["subject"] = ref
	}
	return r
}

func conditionResource(rng *rand.Rand, pid string, opts Options) resource {
	code := fmt.Sprintf("%d", 100000+rng.IntN(900000))
	if rng.IntN(2) == 0 {
		c := model.DefaultChronicConditions[rng.IntN(len(model.DefaultChronicConditions))]
		code = c.Code
	}
	return withSubject(resource{
		"resourceType": "Condition",
		"code":         resource{"coding": []resource{{"system": "http://snomed.info/sct", "code": code}}},
	}, subject(rng, pid, opts))
}

func encounterResource(rng *rand.Rand, pid string, base time.Time, opts Options) resource {
	start := base.Add(time.Duration(rng.IntN(365*24)) * time.Hour)
	end := start.Add(time.Duration(rng.IntN(14*24)) * time.Hour)
	return withSubject(resource{
		"resourceType": "Encounter",
		"period": resource{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
	}, subject(rng, pid, opts))
}

func observationResource(rng *rand.Rand, pid string, opts Options) resource {
	if rng.Float64() < opts.NoiseRate {
		return resource{"resourceType": "Immunization", "patient": resource{"reference": "Patient/" + pid}}
	}
	lab := model.DefaultLabCodes[rng.IntN(len(model.DefaultLabCodes))]
	lo, hi := 1.0, 100.0
	if r, ok := labRanges[lab.Code]; ok {
		lo, hi = r[0], r[1]
	}
	value := lo + rng.Float64()*(hi-lo)
	return withSubject(resource{
		"resourceType": "Observation",
		"code":         resource{"coding": []resource{{"system": "http://loinc.org", "code": lab.Code}}},
		"valueQuantity": resource{
			"value": float64(int(value*10)) / 10,
			"unit":  "1",
		},
	}, subject(rng, pid, opts))
}
