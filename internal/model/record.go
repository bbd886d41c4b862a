package model

// Output field names shared by every patient row.
const (
	FieldPatientID         = "patient_id"
	FieldGender            = "gender"
	FieldBirthDate         = "birth_date"
	FieldAge               = "age"
	FieldCity              = "city"
	FieldConditionCount    = "condition_count"
	FieldEncounterCount    = "encounter_count"
	FieldAvgLengthOfStay   = "avg_length_of_stay"
	FieldChronicConditions = "chronic_conditions"
)

// ChronicConditionSeparator joins the sorted chronic condition labels.
const ChronicConditionSeparator = "; "

// Lab statistic suffixes appended to a lab label.
const (
	SuffixMin = "_min"
	SuffixMax = "_max"
	SuffixAvg = "_avg"
)

// OutputRecord is one flattened row. Values are string, int64 or float64.
// Fields keep insertion order; absent fields are simply not set.
type OutputRecord struct {
	names  []string
	values map[string]any
}

// NewOutputRecord returns an empty record.
func NewOutputRecord() OutputRecord {
	return OutputRecord{values: make(map[string]any)}
}

// Set assigns a field. Re-setting a field keeps its original position.
func (r *OutputRecord) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// SetString sets name only when v is non-nil.
func (r *OutputRecord) SetString(name string, v *string) {
	if v != nil {
		r.Set(name, *v)
	}
}

// Get returns the value of name and whether it is present.
func (r OutputRecord) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the present field names in insertion order.
func (r OutputRecord) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of present fields.
func (r OutputRecord) Len() int {
	return len(r.names)
}

// String returns a string field, or "" when absent or not a string.
func (r OutputRecord) String(name string) string {
	s, _ := r.values[name].(string)
	return s
}

// PatientID returns the patient_id field.
func (r OutputRecord) PatientID() string {
	return r.String(FieldPatientID)
}
