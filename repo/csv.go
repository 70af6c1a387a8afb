package repo

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/lakota-db/lakota/changelog"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/schema"
	"github.com/lakota-db/lakota/series"
)

// ExportCSV writes s's full materialised range as CSV to w: a header row of
// the schema's storage-order column names, one data row per index tuple.
// This is a thin, non-load-bearing convenience for the CLI's illustrative
// read subcommand piping to stdout, not a wire format any other operation
// depends on.
func ExportCSV(ctx context.Context, w io.Writer, s *series.Series) error {
	f, err := s.Read(ctx, nil, nil, nil, series.ClosedBoth, nil)
	if err != nil {
		return fmt.Errorf("repo: export csv: %w", err)
	}
	return WriteCSV(w, s.Schema, f)
}

// WriteCSV writes an already-materialised frame as CSV, in sc's storage
// order. Split out of ExportCSV so callers with a frame in hand (e.g. the
// CLI's ranged read) don't need to re-run Read just to reuse the encoding.
func WriteCSV(w io.Writer, sc *schema.Schema, f *frame.Frame) error {
	names := sc.StorageOrder()
	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("repo: write csv: header: %w", err)
	}
	row := make([]string, len(names))
	for i := 0; i < f.Len(); i++ {
		for j, name := range names {
			row[j] = formatCell(f.Cols[name], i)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("repo: write csv: row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportCSV reads a CSV stream shaped like ExportCSV's output (a header row
// naming columns, in any order, matching s's schema) and writes it as a
// single batch via s.Write.
func ImportCSV(ctx context.Context, r io.Reader, s *series.Series, author string) (changelog.Revision, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return changelog.Revision{}, fmt.Errorf("repo: import csv: header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return changelog.Revision{}, fmt.Errorf("repo: import csv: %w", err)
	}
	cols := make(map[string]frame.Column, len(header))
	for ci, name := range header {
		sc, ok := s.Schema.Column(name)
		if !ok {
			return changelog.Revision{}, fmt.Errorf("repo: import csv: unknown column %q", name)
		}
		col := frame.Column{Type: sc.Type}
		for _, rec := range records {
			if err := appendCell(&col, sc.Type, rec[ci]); err != nil {
				return changelog.Revision{}, fmt.Errorf("repo: import csv: column %q: %w", name, err)
			}
		}
		cols[name] = col
	}
	return s.Write(ctx, cols, author)
}

func formatCell(c frame.Column, i int) string {
	switch c.Type {
	case schema.Float64:
		return strconv.FormatFloat(c.Float64[i], 'g', -1, 64)
	case schema.Bool:
		return strconv.FormatBool(c.Bool[i])
	case schema.String:
		return c.Str[i]
	case schema.Bytes:
		return string(c.Bin[i])
	default:
		return strconv.FormatInt(c.Int64[i], 10)
	}
}

func appendCell(col *frame.Column, t schema.Type, cell string) error {
	switch t {
	case schema.Float64:
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return err
		}
		col.Float64 = append(col.Float64, v)
	case schema.Bool:
		v, err := strconv.ParseBool(cell)
		if err != nil {
			return err
		}
		col.Bool = append(col.Bool, v)
	case schema.String:
		col.Str = append(col.Str, cell)
	case schema.Bytes:
		col.Bin = append(col.Bin, []byte(cell))
	default:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return err
		}
		col.Int64 = append(col.Int64, v)
	}
	return nil
}
