// Package engine folds bundle entries into per-patient accumulators and
// reduces them into flat feature rows.
package engine

import (
	"sort"

	"github.com/gyeh/fhirfeatures/internal/model"
)

// Store maps patient id to its accumulator. It is owned by one run and is not
// safe for concurrent use; parallel callers give each worker its own Store and
// Merge the results in document order.
type Store struct {
	patients map[string]*model.Accumulator
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{patients: make(map[string]*model.Accumulator)}
}

// Get returns the accumulator for id, creating it on first touch.
func (s *Store) Get(id string) *model.Accumulator {
	acc, ok := s.patients[id]
	if !ok {
		acc = model.NewAccumulator(id)
		s.patients[id] = acc
	}
	return acc
}

// Lookup returns the accumulator for id without creating it.
func (s *Store) Lookup(id string) (*model.Accumulator, bool) {
	acc, ok := s.patients[id]
	return acc, ok
}

// Len returns the number of accumulated patients.
func (s *Store) Len() int {
	return len(s.patients)
}

// IDs returns the patient ids in sorted order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.patients))
	for id := range s.patients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Merge folds later into s. The result equals dispatching later's entries
// after s's: counts sum, condition sets union, sequences concatenate and
// Patient scalars come from later when it saw a Patient resource.
// Accumulators are moved, not copied; later must not be used afterwards.
func (s *Store) Merge(later *Store) {
	for id, acc := range later.patients {
		existing, ok := s.patients[id]
		if !ok {
			s.patients[id] = acc
			continue
		}
		existing.Merge(acc)
	}
}
