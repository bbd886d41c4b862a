package sink

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"

	"github.com/gyeh/fhirfeatures/internal/model"
)

// Parquet writes records to a Parquet file whose schema is derived from the
// records: one optional column per field name, typed from its values.
type Parquet struct {
	Fs   afero.Fs
	Path string
}

// NewParquet returns a Parquet sink on the OS filesystem.
func NewParquet(path string) *Parquet {
	return &Parquet{Fs: afero.NewOsFs(), Path: path}
}

// Write creates (or truncates) Path and writes the table.
func (s *Parquet) Write(ctx context.Context, records []model.OutputRecord) error {
	f, err := s.Fs.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create parquet: %w", err)
	}
	if err := WriteParquet(ctx, f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close parquet: %w", err)
	}
	return nil
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

// WriteParquet writes records to w as a single Parquet file.
func WriteParquet(ctx context.Context, w io.Writer, records []model.OutputRecord) error {
	cols := Columns(records)
	if len(cols) == 0 {
		cols = []string{model.FieldPatientID}
	}
	kinds := columnKinds(records, cols)

	group := parquet.Group{}
	for _, name := range cols {
		group[name] = parquet.Optional(kinds[name].node())
	}
	schema := parquet.NewSchema("patient_features", group)

	// Group orders its leaf columns by name.
	leaves := append([]string(nil), cols...)
	sort.Strings(leaves)

	rows := make([]parquet.Row, 0, len(records))
	for i, r := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := make(parquet.Row, len(leaves))
		for j, name := range leaves {
			v, ok := r.Get(name)
			if !ok {
				row[j] = parquet.NullValue().Level(0, 0, j)
				continue
			}
			row[j] = parquet.ValueOf(kinds[name].convert(v)).Level(0, 1, j)
		}
		rows = append(rows, row)
	}

	pw := parquet.NewWriter(w, schema)
	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// columnKinds picks the widest kind seen per column: string over float over int.
func columnKinds(records []model.OutputRecord, cols []string) map[string]columnKind {
	kinds := make(map[string]columnKind, len(cols))
	for _, name := range cols {
		kinds[name] = kindInt
	}
	for _, r := range records {
		for _, name := range r.Names() {
			v, _ := r.Get(name)
			var k columnKind
			switch v.(type) {
			case int, int64:
				k = kindInt
			case float64:
				k = kindFloat
			default:
				k = kindString
			}
			if k > kinds[name] {
				kinds[name] = k
			}
		}
	}
	return kinds
}

func (k columnKind) node() parquet.Node {
	switch k {
	case kindInt:
		return parquet.Int(64)
	case kindFloat:
		return parquet.Leaf(parquet.DoubleType)
	default:
		return parquet.String()
	}
}

func (k columnKind) convert(v any) any {
	switch k {
	case kindInt:
		switch x := v.(type) {
		case int:
			return int64(x)
		case int64:
			return x
		}
	case kindFloat:
		switch x := v.(type) {
		case int:
			return float64(x)
		case int64:
			return float64(x)
		case float64:
			return x
		}
	}
	return FormatValue(v)
}

// Compile-time check that Parquet satisfies the interface.
var _ Sink = (*Parquet)(nil)
