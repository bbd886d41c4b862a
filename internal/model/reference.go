package model

// Code maps a coded identifier to the human-readable label used in output.
type Code struct {
	Code  string `yaml:"code"`  // e.g. "2339-0"
	Label string `yaml:"label"` // e.g. "Glucose"
}

// DefaultLabCodes lists the LOINC codes tracked as lab features, in column order.
var DefaultLabCodes = []Code{
	{Code: "29463-7", Label: "Weight"},
	{Code: "8302-2", Label: "Height"},
	{Code: "39156-5", Label: "BMI"},
	{Code: "8480-6", Label: "SystolicBP"},
	{Code: "8462-4", Label: "DiastolicBP"},
	{Code: "8867-4", Label: "HeartRate"},
	{Code: "9279-1", Label: "RespRate"},
	{Code: "8310-5", Label: "Temperature"},
	{Code: "2339-0", Label: "Glucose"},
	{Code: "4548-4", Label: "HemoglobinA1C"},
}

// DefaultChronicConditions lists the SNOMED codes flagged as chronic conditions.
var DefaultChronicConditions = []Code{
	{Code: "44054006", Label: "Diabetes"},
	{Code: "38341003", Label: "Hypertension"},
	{Code: "233604007", Label: "COPD"},
	{Code: "195967001", Label: "Asthma"},
	{Code: "55822004", Label: "Depression"},
	{Code: "25064002", Label: "Heart Failure"},
}

// CodeTable is an ordered, read-only code -> label lookup.
type CodeTable struct {
	codes  []Code
	labels map[string]string
}

// NewCodeTable builds a table from codes. A later duplicate code replaces the
// label of the earlier one but keeps its position.
func NewCodeTable(codes []Code) *CodeTable {
	t := &CodeTable{labels: make(map[string]string, len(codes))}
	for _, c := range codes {
		if _, ok := t.labels[c.Code]; !ok {
			t.codes = append(t.codes, c)
		} else {
			for i := range t.codes {
				if t.codes[i].Code == c.Code {
					t.codes[i].Label = c.Label
				}
			}
		}
		t.labels[c.Code] = c.Label
	}
	return t
}

// Label returns the label for code, or ok=false when the code is not tracked.
func (t *CodeTable) Label(code string) (string, bool) {
	label, ok := t.labels[code]
	return label, ok
}

// Codes returns the table entries in canonical order.
func (t *CodeTable) Codes() []Code {
	out := make([]Code, len(t.codes))
	copy(out, t.codes)
	return out
}

// Len returns the number of distinct codes.
func (t *CodeTable) Len() int {
	return len(t.codes)
}

// Tables bundles the reference tables consulted during dispatch and reduction.
type Tables struct {
	Labs    *CodeTable
	Chronic *CodeTable
}

// DefaultTables returns tables built from DefaultLabCodes and DefaultChronicConditions.
func DefaultTables() Tables {
	return Tables{
		Labs:    NewCodeTable(DefaultLabCodes),
		Chronic: NewCodeTable(DefaultChronicConditions),
	}
}
