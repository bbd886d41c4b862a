package model

// Accumulator collects every signal seen for one patient across all documents.
// It is created on first reference to the patient id, whichever resource kind
// that is, and reduced exactly once at the end of a run.
type Accumulator struct {
	PatientID string

	// Scalars from the Patient resource. Nil means absent.
	Gender    *string
	BirthDate *string
	City      *string

	// HasPatient is set once a Patient resource has been applied.
	HasPatient bool

	ConditionCount    int
	ChronicConditions map[string]struct{}

	EncounterCount int
	StayLengths    []int

	// Labs maps a tracked lab code to its values in arrival order.
	Labs map[string][]float64
}

// NewAccumulator returns an empty accumulator for id.
func NewAccumulator(id string) *Accumulator {
	return &Accumulator{
		PatientID:         id,
		ChronicConditions: make(map[string]struct{}),
		Labs:              make(map[string][]float64),
	}
}

// SetPatient overwrites the Patient scalars. Absent values overwrite too.
func (a *Accumulator) SetPatient(gender, birthDate, city *string) {
	a.Gender = gender
	a.BirthDate = birthDate
	a.City = city
	a.HasPatient = true
}

// AddCondition counts a Condition entry and records label when non-empty.
func (a *Accumulator) AddCondition(label string) {
	a.ConditionCount++
	if label != "" {
		a.ChronicConditions[label] = struct{}{}
	}
}

// AddEncounter counts an Encounter entry and records its stay length if known.
func (a *Accumulator) AddEncounter(stayDays *int) {
	a.EncounterCount++
	if stayDays != nil {
		a.StayLengths = append(a.StayLengths, *stayDays)
	}
}

// AddLab appends a value for a tracked lab code.
func (a *Accumulator) AddLab(code string, value float64) {
	a.Labs[code] = append(a.Labs[code], value)
}

// Merge folds later into a as if later's entries had been dispatched after a's.
func (a *Accumulator) Merge(later *Accumulator) {
	if later.HasPatient {
		a.SetPatient(later.Gender, later.BirthDate, later.City)
	}
	a.ConditionCount += later.ConditionCount
	for label := range later.ChronicConditions {
		a.ChronicConditions[label] = struct{}{}
	}
	a.EncounterCount += later.EncounterCount
	a.StayLengths = append(a.StayLengths, later.StayLengths...)
	for code, values := range later.Labs {
		a.Labs[code] = append(a.Labs[code], values...)
	}
}
