package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// CSVOptions controls ReadCSV.
type CSVOptions struct {
	// X and Y name the coordinate columns. Defaults are "x" and "y".
	X, Y string
	// NoData lists cell values read as no-data in addition to the empty string.
	NoData []string
	// Comma is the field delimiter, ',' when zero.
	Comma rune
}

func (o CSVOptions) withDefaults() CSVOptions {
	if o.X == "" {
		o.X = "x"
	}
	if o.Y == "" {
		o.Y = "y"
	}
	if o.Comma == 0 {
		o.Comma = ','
	}
	return o
}

// ReadCSV reads a point table with a header row. Columns other than X and Y
// become fields when every non-missing cell parses as a number; text columns
// are dropped.
func ReadCSV(r io.Reader, opts CSVOptions) (*MemoryTable, error) {
	opts = opts.withDefaults()

	reader := csv.NewReader(r)
	reader.Comma = opts.Comma
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(records) == 0 {
		return nil, errors.NewModelError("ReadCSV", "empty data", errors.ErrEmptyData)
	}

	header := lo.Map(records[0], func(s string, _ int) string { return strings.TrimSpace(s) })
	xi, yi := lo.IndexOf(header, opts.X), lo.IndexOf(header, opts.Y)
	if xi < 0 {
		return nil, errors.NewValidationError("input.x", "column not found", opts.X)
	}
	if yi < 0 {
		return nil, errors.NewValidationError("input.y", "column not found", opts.Y)
	}

	rows := records[1:]
	missing := func(s string) bool {
		s = strings.TrimSpace(s)
		return s == "" || lo.Contains(opts.NoData, s)
	}

	var fields []int
	for j := range header {
		if j == xi || j == yi {
			continue
		}
		numeric := lo.EveryBy(rows, func(row []string) bool {
			if missing(row[j]) {
				return true
			}
			_, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			return err == nil
		})
		if numeric {
			fields = append(fields, j)
		}
	}

	table := NewMemoryTable(lo.Map(fields, func(j int, _ int) string { return header[j] })...)
	values := make([]float64, len(fields))
	for i, row := range rows {
		x, errX := strconv.ParseFloat(strings.TrimSpace(row[xi]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(row[yi]), 64)
		if errX != nil || errY != nil || !errors.IsFinite(x) || !errors.IsFinite(y) {
			return nil, errors.NewValueError("ReadCSV", "invalid coordinate on line "+strconv.Itoa(i+2))
		}
		for k, j := range fields {
			if missing(row[j]) {
				values[k] = math.NaN()
				continue
			}
			values[k], _ = strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
		}
		if err := table.Append(orb.Point{x, y}, values...); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path string, opts CSVOptions) (*MemoryTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// WriteCSV writes t with x and y columns first. No-data cells are empty.
func WriteCSV(w io.Writer, t PointTable) error {
	writer := csv.NewWriter(w)

	header := []string{"x", "y"}
	for j := 0; j < t.FieldCount(); j++ {
		header = append(header, t.FieldName(j))
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	record := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		p := t.Location(i)
		record[0] = formatFloat(p[0])
		record[1] = formatFloat(p[1])
		for j := 0; j < t.FieldCount(); j++ {
			if v, ok := t.Value(i, j); ok {
				record[j+2] = formatFloat(v)
			} else {
				record[j+2] = ""
			}
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "write csv record")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "flush csv")
}

// WriteCSVFile creates path and calls WriteCSV.
func WriteCSVFile(path string, t PointTable) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
