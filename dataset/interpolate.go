package dataset

import (
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// Interpolation selects how a grid is sampled between cell centers.
type Interpolation int

const (
	NearestNeighbour Interpolation = iota
	Bilinear
	InverseDistance
	BicubicSpline
	BSpline
)

var interpolationNames = map[Interpolation]string{
	NearestNeighbour: "nearest",
	Bilinear:         "bilinear",
	InverseDistance:  "idw",
	BicubicSpline:    "bicubic",
	BSpline:          "bspline",
}

func (m Interpolation) String() string {
	if s, ok := interpolationNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseInterpolation accepts the names returned by String.
func ParseInterpolation(s string) (Interpolation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BSpline, nil
	}
	for m, name := range interpolationNames {
		if name == s {
			return m, nil
		}
	}
	return NearestNeighbour, errors.NewValidationError("interpolation", "unknown interpolation", s)
}

// sample interpolates g at p. Points farther than half a cell outside the
// grid fail, as does any interpolation that needs a no-data cell.
func sample(g Grid, p orb.Point, mode Interpolation) (float64, bool) {
	cols, rows := g.Dims()
	origin := g.Origin()
	size := g.CellSize()

	fx := (p[0] - origin[0]) / size
	fy := (p[1] - origin[1]) / size
	if fx < -0.5 || fy < -0.5 || fx > float64(cols)-0.5 || fy > float64(rows)-0.5 || math.IsNaN(fx) || math.IsNaN(fy) {
		return math.NaN(), false
	}

	switch mode {
	case NearestNeighbour:
		return g.Value(clamp(int(math.Floor(fx+0.5)), cols), clamp(int(math.Floor(fy+0.5)), rows))
	case Bilinear:
		return bilinear(g, fx, fy)
	case InverseDistance:
		return inverseDistance(g, fx, fy)
	case BicubicSpline:
		return convolve(g, fx, fy, cubicConvolution)
	case BSpline:
		return convolve(g, fx, fy, cubicBSpline)
	}
	return math.NaN(), false
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// at reads a cell with edge clamping.
func at(g Grid, col, row int) (float64, bool) {
	cols, rows := g.Dims()
	return g.Value(clamp(col, cols), clamp(row, rows))
}

func bilinear(g Grid, fx, fy float64) (float64, bool) {
	c, r := math.Floor(fx), math.Floor(fy)
	dx, dy := fx-c, fy-r
	col, row := int(c), int(r)

	z00, ok00 := at(g, col, row)
	z10, ok10 := at(g, col+1, row)
	z01, ok01 := at(g, col, row+1)
	z11, ok11 := at(g, col+1, row+1)
	if !ok00 || !ok10 || !ok01 || !ok11 {
		return math.NaN(), false
	}

	south := z00 + dx*(z10-z00)
	north := z01 + dx*(z11-z01)
	return south + dy*(north-south), true
}

// inverseDistance weights the four surrounding cell centers by 1/d², skipping
// no-data cells.
func inverseDistance(g Grid, fx, fy float64) (float64, bool) {
	col, row := int(math.Floor(fx)), int(math.Floor(fy))
	var sum, wsum float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			z, ok := at(g, col+dc, row+dr)
			if !ok {
				continue
			}
			dx, dy := fx-float64(col+dc), fy-float64(row+dr)
			d2 := dx*dx + dy*dy
			if d2 == 0 {
				return z, true
			}
			sum += z / d2
			wsum += 1 / d2
		}
	}
	if wsum == 0 {
		return math.NaN(), false
	}
	return sum / wsum, true
}

// cubicConvolution is the Catmull-Rom weight set for offset t in [0, 1).
func cubicConvolution(t float64) [4]float64 {
	t2, t3 := t*t, t*t*t
	return [4]float64{
		(-t3 + 2*t2 - t) / 2,
		(3*t3 - 5*t2 + 2) / 2,
		(-3*t3 + 4*t2 + t) / 2,
		(t3 - t2) / 2,
	}
}

// cubicBSpline is the uniform cubic B-spline weight set for offset t in [0, 1).
func cubicBSpline(t float64) [4]float64 {
	t2, t3 := t*t, t*t*t
	u := 1 - t
	return [4]float64{
		u * u * u / 6,
		(3*t3 - 6*t2 + 4) / 6,
		(-3*t3 + 3*t2 + 3*t + 1) / 6,
		t3 / 6,
	}
}

// convolve applies a separable 4x4 kernel around (fx, fy). Every cell of the
// neighborhood must hold data.
func convolve(g Grid, fx, fy float64, weights func(float64) [4]float64) (float64, bool) {
	c, r := math.Floor(fx), math.Floor(fy)
	wx, wy := weights(fx-c), weights(fy-r)
	col, row := int(c)-1, int(r)-1

	var v float64
	for j := 0; j < 4; j++ {
		var line float64
		for i := 0; i < 4; i++ {
			z, ok := at(g, col+i, row+j)
			if !ok {
				return math.NaN(), false
			}
			line += wx[i] * z
		}
		v += wy[j] * line
	}
	return v, true
}
