// Package sink writes reduced feature records to tabular outputs.
package sink

import (
	"context"
	"strconv"

	"github.com/gyeh/fhirfeatures/internal/model"
)

// Sink consumes the ordered records of one run.
type Sink interface {
	Write(ctx context.Context, records []model.OutputRecord) error
}

// Columns returns the union of field names across records, in the order each
// name is first seen. Records are ragged; this is the rectangular header.
func Columns(records []model.OutputRecord) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for _, name := range r.Names() {
			if !seen[name] {
				seen[name] = true
				cols = append(cols, name)
			}
		}
	}
	return cols
}

// FormatValue renders a field value as a table cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
