package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/gyeh/fhirfeatures/internal/bundle"
	"github.com/gyeh/fhirfeatures/internal/model"
)

// Reduce flattens one accumulator into an output row. It reads nothing but
// its arguments, so patients can be reduced independently. Fields with no
// data are omitted rather than written as zero.
func Reduce(acc *model.Accumulator, tables model.Tables, now time.Time) model.OutputRecord {
	r := model.NewOutputRecord()
	r.Set(model.FieldPatientID, acc.PatientID)
	r.SetString(model.FieldGender, acc.Gender)
	r.SetString(model.FieldBirthDate, acc.BirthDate)
	if age, ok := Age(acc.BirthDate, now); ok {
		r.Set(model.FieldAge, int64(age))
	}
	r.SetString(model.FieldCity, acc.City)
	r.Set(model.FieldConditionCount, int64(acc.ConditionCount))
	r.Set(model.FieldEncounterCount, int64(acc.EncounterCount))

	if len(acc.StayLengths) > 0 {
		sum := 0
		for _, d := range acc.StayLengths {
			sum += d
		}
		r.Set(model.FieldAvgLengthOfStay, float64(sum)/float64(len(acc.StayLengths)))
	}

	if len(acc.ChronicConditions) > 0 {
		labels := make([]string, 0, len(acc.ChronicConditions))
		for label := range acc.ChronicConditions {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		r.Set(model.FieldChronicConditions, strings.Join(labels, model.ChronicConditionSeparator))
	}

	for _, lab := range tables.Labs.Codes() {
		values := acc.Labs[lab.Code]
		if len(values) == 0 {
			continue
		}
		lo, hi, avg := stats(values)
		r.Set(lab.Label+model.SuffixMin, lo)
		r.Set(lab.Label+model.SuffixMax, hi)
		r.Set(lab.Label+model.SuffixAvg, avg)
	}
	return r
}

// ReduceAll reduces every patient in store, ordered by patient id.
func ReduceAll(store *Store, tables model.Tables, now time.Time) []model.OutputRecord {
	ids := store.IDs()
	records := make([]model.OutputRecord, 0, len(ids))
	for _, id := range ids {
		acc, _ := store.Lookup(id)
		records = append(records, Reduce(acc, tables, now))
	}
	return records
}

// Age returns whole years between birthDate and now: the year difference,
// less one when now's month/day falls before the birthday.
func Age(birthDate *string, now time.Time) (int, bool) {
	b, ok := bundle.ParseBirthDate(birthDate)
	if !ok {
		return 0, false
	}
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age, true
}

func stats(values []float64) (lo, hi, avg float64) {
	lo, hi = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	return lo, hi, sum / float64(len(values))
}
