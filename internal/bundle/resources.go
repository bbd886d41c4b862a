package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/buger/jsonparser"
)

// Reference points from one resource to another, e.g. "Patient/123".
type Reference struct {
	Reference *string `json:"reference"`
}

// Coding is a single code from a code system.
type Coding struct {
	System  *string `json:"system"`
	Code    *string `json:"code"`
	Display *string `json:"display"`
}

// CodeableConcept is a set of codings plus free text.
type CodeableConcept struct {
	Coding []Coding `json:"coding"`
	Text   *string  `json:"text"`
}

// Address is a postal address.
type Address struct {
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postalCode"`
}

// HumanName is a person's name.
type HumanName struct {
	Family *string  `json:"family"`
	Given  []string `json:"given"`
}

// Period is a time range with optional bounds.
type Period struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// Quantity is a measured amount. Value is kept raw so that non-numeric
// values can be told apart from absent ones.
type Quantity struct {
	Value json.RawMessage `json:"value"`
	Unit  *string         `json:"unit"`
}

// Patient holds the Patient fields used for features and location backfill.
type Patient struct {
	ID        *string     `json:"id"`
	Gender    *string     `json:"gender"`
	BirthDate *string     `json:"birthDate"`
	Address   []Address   `json:"address"`
	Name      []HumanName `json:"name"`
}

// Condition holds the Condition fields used for features.
type Condition struct {
	Subject *Reference       `json:"subject"`
	Code    *CodeableConcept `json:"code"`
}

// Encounter holds the Encounter fields used for features.
type Encounter struct {
	Subject *Reference `json:"subject"`
	Period  *Period    `json:"period"`
}

// Observation holds the Observation fields used for features.
type Observation struct {
	Subject       *Reference       `json:"subject"`
	Code          *CodeableConcept `json:"code"`
	ValueQuantity *Quantity        `json:"valueQuantity"`
}

// Decode unmarshals a resource body into v. Fields whose JSON type does not
// match the Go type are left at their zero value (nil for pointers) instead
// of failing the entry.
func Decode(resource []byte, v any) error {
	err := json.Unmarshal(resource, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		// encoding/json allocates pointers before it sees the mismatch and
		// reports only the first one, so every field is checked again.
		scrub(reflect.ValueOf(v), resource, jsonparser.Object)
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}
	return nil
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// scrub zeroes every value in v whose JSON counterpart in data has a
// different kind or is missing.
func scrub(v reflect.Value, data []byte, typ jsonparser.ValueType) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		if !compatible(v.Elem().Type(), typ) {
			v.Set(reflect.Zero(v.Type()))
			return
		}
		scrub(v.Elem(), data, typ)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
			if name == "" || name == "-" {
				continue
			}
			value, vt, _, err := jsonparser.Get(data, name)
			if err != nil {
				vt = jsonparser.NotExist
			}
			scrubField(v.Field(i), value, vt)
		}
	case reflect.Slice:
		if v.Type() == rawMessageType {
			return
		}
		if typ != jsonparser.Array {
			v.Set(reflect.Zero(v.Type()))
			return
		}
		i := 0
		jsonparser.ArrayEach(data, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
			if i < v.Len() {
				scrubField(v.Index(i), value, vt)
			}
			i++
		})
	}
}

func scrubField(f reflect.Value, data []byte, typ jsonparser.ValueType) {
	switch f.Kind() {
	case reflect.Pointer, reflect.Slice:
		scrub(f, data, typ)
	default:
		if !compatible(f.Type(), typ) {
			f.Set(reflect.Zero(f.Type()))
			return
		}
		scrub(f, data, typ)
	}
}

// compatible reports whether a JSON value of kind typ decodes into t.
func compatible(t reflect.Type, typ jsonparser.ValueType) bool {
	switch t.Kind() {
	case reflect.String:
		return typ == jsonparser.String
	case reflect.Bool:
		return typ == jsonparser.Boolean
	case reflect.Int, reflect.Int64, reflect.Float64:
		return typ == jsonparser.Number
	case reflect.Struct:
		return typ == jsonparser.Object
	case reflect.Slice:
		return t == rawMessageType || typ == jsonparser.Array
	}
	return true
}

// PatientID returns the final path segment of the reference. ok is false
// when the reference is absent or resolves to an empty id.
func (r *Reference) PatientID() (string, bool) {
	if r == nil || r.Reference == nil {
		return "", false
	}
	ref := *r.Reference
	id := ref[strings.LastIndex(ref, "/")+1:]
	if id == "" {
		return "", false
	}
	return id, true
}

// FirstCode returns the code of the first coding, or nil.
func (c *CodeableConcept) FirstCode() *string {
	if c == nil || len(c.Coding) == 0 {
		return nil
	}
	return c.Coding[0].Code
}

// Number returns the value when it is a JSON number.
func (q *Quantity) Number() (float64, bool) {
	if q == nil {
		return 0, false
	}
	raw := bytes.TrimSpace(q.Value)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

// FirstAddress returns the first address, or nil.
func (p *Patient) FirstAddress() *Address {
	if p == nil || len(p.Address) == 0 {
		return nil
	}
	return &p.Address[0]
}

// City returns the city of the first address, or nil.
func (p *Patient) City() *string {
	if a := p.FirstAddress(); a != nil {
		return a.City
	}
	return nil
}

// DisplayName joins the first given name and the family name of the first
// name entry. It returns "" when neither is present.
func (p *Patient) DisplayName() string {
	if p == nil || len(p.Name) == 0 {
		return ""
	}
	n := p.Name[0]
	var given, family string
	if len(n.Given) > 0 {
		given = n.Given[0]
	}
	if n.Family != nil {
		family = *n.Family
	}
	return strings.TrimSpace(given + " " + family)
}
