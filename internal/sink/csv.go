package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/gyeh/fhirfeatures/internal/model"
)

// CSV writes records to a comma-separated file with a union header.
type CSV struct {
	Fs   afero.Fs
	Path string
}

// NewCSV returns a CSV sink on the OS filesystem.
func NewCSV(path string) *CSV {
	return &CSV{Fs: afero.NewOsFs(), Path: path}
}

// Write creates (or truncates) Path and writes the table.
func (s *CSV) Write(ctx context.Context, records []model.OutputRecord) error {
	f, err := s.Fs.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := WriteCSV(ctx, f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return nil
}

// WriteCSV writes the header and one row per record to w. Cells for fields a
// record lacks are empty.
func WriteCSV(ctx context.Context, w io.Writer, records []model.OutputRecord) error {
	cols := Columns(records)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(cols))
	for i, r := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, name := range cols {
			v, _ := r.Get(name)
			row[j] = FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Compile-time check that CSV satisfies the interface.
var _ Sink = (*CSV)(nil)
