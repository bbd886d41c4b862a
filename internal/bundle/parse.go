// Package bundle splits FHIR bundle documents into typed resource entries.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrMalformedDocument is returned when a document is not a JSON object or
// its entry list is not an array.
var ErrMalformedDocument = errors.New("malformed document")

// Resource kinds the aggregation engine understands.
const (
	KindPatient     = "Patient"
	KindCondition   = "Condition"
	KindEncounter   = "Encounter"
	KindObservation = "Observation"
)

// Entry is one bundle entry: the resource kind tag plus the raw resource body.
// Kind is empty when the entry has no resource or no resourceType.
type Entry struct {
	Kind     string
	Resource []byte
}

// Parse returns the entries of a bundle document in document order.
// A document without an "entry" key yields an empty slice.
func Parse(data []byte) ([]Entry, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedDocument)
	}
	_, typ, _, err := jsonparser.Get(data)
	if err != nil || typ != jsonparser.Object {
		return nil, fmt.Errorf("%w: top-level value is %s, want object", ErrMalformedDocument, typ)
	}

	entries := []Entry{}
	_, err = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		entries = append(entries, newEntry(value, dataType))
	}, "entry")
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: entry: %v", ErrMalformedDocument, err)
	}
	return entries, nil
}

func newEntry(value []byte, dataType jsonparser.ValueType) Entry {
	if dataType != jsonparser.Object {
		return Entry{}
	}
	res, typ, _, err := jsonparser.Get(value, "resource")
	if err != nil || typ != jsonparser.Object {
		return Entry{}
	}
	kind, err := jsonparser.GetString(res, "resourceType")
	if err != nil {
		return Entry{Resource: res}
	}
	return Entry{Kind: kind, Resource: res}
}
