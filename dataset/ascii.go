package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// DefaultNoData is the value written for no-data cells in ESRI ASCII grids.
const DefaultNoData = -9999.0

// WriteASCIIGrid writes g as an ESRI ASCII raster, north row first. No-data
// cells are written as noData.
func WriteASCIIGrid(w io.Writer, g Grid, noData float64) error {
	cols, rows := g.Dims()
	b := g.Bounds()

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", cols)
	fmt.Fprintf(bw, "nrows %d\n", rows)
	fmt.Fprintf(bw, "xllcorner %s\n", formatFloat(b.Min[0]))
	fmt.Fprintf(bw, "yllcorner %s\n", formatFloat(b.Min[1]))
	fmt.Fprintf(bw, "cellsize %s\n", formatFloat(g.CellSize()))
	fmt.Fprintf(bw, "NODATA_value %s\n", formatFloat(noData))

	for row := rows - 1; row >= 0; row-- {
		for col := 0; col < cols; col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v, ok := g.Value(col, row)
			if !ok {
				v = noData
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write ascii grid")
}

// WriteASCIIGridFile creates path and calls WriteASCIIGrid.
func WriteASCIIGridFile(path string, g Grid, noData float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := WriteASCIIGrid(f, g, noData); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadASCIIGrid reads an ESRI ASCII raster. Both corner and center
// registration headers are accepted.
func ReadASCIIGrid(r io.Reader) (*MemoryGrid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	scanner.Split(bufio.ScanWords)

	header := map[string]float64{}
	var first string
	for scanner.Scan() {
		key := strings.ToLower(scanner.Text())
		if _, err := strconv.ParseFloat(key, 64); err == nil {
			first = key
			break
		}
		if !scanner.Scan() {
			return nil, errors.NewValueError("ReadASCIIGrid", "truncated header")
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, errors.NewValueError("ReadASCIIGrid", "invalid header value for "+key)
		}
		header[key] = v
	}

	cols, rows, size := int(header["ncols"]), int(header["nrows"]), header["cellsize"]
	if cols <= 0 || rows <= 0 || !(size > 0) {
		return nil, errors.NewValueError("ReadASCIIGrid", "ncols, nrows and cellsize must be positive")
	}
	noData, hasNoData := header["nodata_value"]

	var origin orb.Point
	switch {
	case hasKeys(header, "xllcorner", "yllcorner"):
		origin = orb.Point{header["xllcorner"] + size/2, header["yllcorner"] + size/2}
	case hasKeys(header, "xllcenter", "yllcenter"):
		origin = orb.Point{header["xllcenter"], header["yllcenter"]}
	default:
		return nil, errors.NewValueError("ReadASCIIGrid", "missing lower-left coordinates")
	}

	sys := GridSystem{Cols: cols, Rows: rows, CellSize: size, Origin: origin}
	g := NewMemoryGrid(sys)

	next := func() (string, bool) {
		if first != "" {
			s := first
			first = ""
			return s, true
		}
		if scanner.Scan() {
			return scanner.Text(), true
		}
		return "", false
	}

	for row := rows - 1; row >= 0; row-- {
		for col := 0; col < cols; col++ {
			s, ok := next()
			if !ok {
				return nil, errors.NewValueError("ReadASCIIGrid", "fewer values than ncols*nrows")
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.NewValueError("ReadASCIIGrid", "invalid cell value "+s)
			}
			if (hasNoData && v == noData) || math.IsNaN(v) {
				continue
			}
			g.SetValue(col, row, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read ascii grid")
	}
	return g, nil
}

// ReadASCIIGridFile opens path and calls ReadASCIIGrid.
func ReadASCIIGridFile(path string) (*MemoryGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	g, err := ReadASCIIGrid(f)
	if err != nil {
		return nil, err
	}
	g.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return g, nil
}

func hasKeys(m map[string]float64, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return false
		}
	}
	return true
}
