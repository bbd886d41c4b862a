package engine

import (
	"errors"

	"github.com/gyeh/fhirfeatures/internal/bundle"
	"github.com/gyeh/fhirfeatures/internal/model"
)

var (
	// ErrUnresolvableReference means the entry names no usable patient id.
	// It is expected and frequent, so callers count it without logging.
	ErrUnresolvableReference = errors.New("unresolvable patient reference")
	// ErrUnsupportedKind means the resource kind is not aggregated.
	ErrUnsupportedKind = errors.New("unsupported resource kind")
)

// DocumentStats counts how the entries of one document were handled.
type DocumentStats struct {
	Entries int64
	Ignored int64
	Skipped int64
	ByKind  map[string]int64
}

// Add accumulates other into s.
func (s *DocumentStats) Add(other DocumentStats) {
	s.Entries += other.Entries
	s.Ignored += other.Ignored
	s.Skipped += other.Skipped
	if len(other.ByKind) > 0 && s.ByKind == nil {
		s.ByKind = make(map[string]int64)
	}
	for k, v := range other.ByKind {
		s.ByKind[k] += v
	}
}

// Dispatcher routes entries to the extraction routine for their kind.
type Dispatcher struct {
	tables model.Tables
}

// NewDispatcher returns a dispatcher that consults tables for tracked codes.
func NewDispatcher(tables model.Tables) *Dispatcher {
	return &Dispatcher{tables: tables}
}

// Dispatch applies one entry to store. It returns ErrUnsupportedKind,
// ErrUnresolvableReference, or a decode error; none of these touch store.
func (d *Dispatcher) Dispatch(store *Store, e bundle.Entry) error {
	switch e.Kind {
	case bundle.KindPatient:
		return d.patient(store, e.Resource)
	case bundle.KindCondition:
		return d.condition(store, e.Resource)
	case bundle.KindEncounter:
		return d.encounter(store, e.Resource)
	case bundle.KindObservation:
		return d.observation(store, e.Resource)
	default:
		return ErrUnsupportedKind
	}
}

// DispatchAll applies entries in order and reports what happened to them.
// A failing entry never stops the ones after it.
func (d *Dispatcher) DispatchAll(store *Store, entries []bundle.Entry) (DocumentStats, []error) {
	stats := DocumentStats{ByKind: make(map[string]int64)}
	var decodeErrs []error
	for _, e := range entries {
		stats.Entries++
		if e.Kind != "" {
			stats.ByKind[e.Kind]++
		}
		err := d.Dispatch(store, e)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnsupportedKind), errors.Is(err, ErrUnresolvableReference):
			stats.Ignored++
		default:
			stats.Skipped++
			decodeErrs = append(decodeErrs, err)
		}
	}
	return stats, decodeErrs
}

func (d *Dispatcher) patient(store *Store, raw []byte) error {
	var p bundle.Patient
	if err := bundle.Decode(raw, &p); err != nil {
		return err
	}
	if p.ID == nil || *p.ID == "" {
		return ErrUnresolvableReference
	}
	store.Get(*p.ID).SetPatient(p.Gender, p.BirthDate, p.City())
	return nil
}

func (d *Dispatcher) condition(store *Store, raw []byte) error {
	var c bundle.Condition
	if err := bundle.Decode(raw, &c); err != nil {
		return err
	}
	id, ok := c.Subject.PatientID()
	if !ok {
		return ErrUnresolvableReference
	}
	var label string
	if code := c.Code.FirstCode(); code != nil {
		label, _ = d.tables.Chronic.Label(*code)
	}
	store.Get(id).AddCondition(label)
	return nil
}

func (d *Dispatcher) encounter(store *Store, raw []byte) error {
	var enc bundle.Encounter
	if err := bundle.Decode(raw, &enc); err != nil {
		return err
	}
	id, ok := enc.Subject.PatientID()
	if !ok {
		return ErrUnresolvableReference
	}
	var stay *int
	if enc.Period != nil {
		if days, ok := bundle.StayLength(enc.Period.Start, enc.Period.End); ok {
			stay = &days
		}
	}
	store.Get(id).AddEncounter(stay)
	return nil
}

func (d *Dispatcher) observation(store *Store, raw []byte) error {
	var obs bundle.Observation
	if err := bundle.Decode(raw, &obs); err != nil {
		return err
	}
	id, ok := obs.Subject.PatientID()
	if !ok {
		return ErrUnresolvableReference
	}
	code := obs.Code.FirstCode()
	if code == nil {
		return nil
	}
	if _, tracked := d.tables.Labs.Label(*code); !tracked {
		return nil
	}
	value, ok := obs.ValueQuantity.Number()
	if !ok {
		return nil
	}
	store.Get(id).AddLab(*code, value)
	return nil
}
