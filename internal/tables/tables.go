// Package tables implements piecewise-linear gain-schedule lookup used to
// vary a stabilization or mixer parameter with a flight condition (e.g.
// feed-forward gain vs. throttle, DShot ESC response curve vs. commanded
// throttle).
//
// Adapted from CameronSima-CAMSim's jsbsimxmlparser.go ParsedTable /
// InterpolateTable — the JSBSim aerodynamic-coefficient table interpolator —
// generalized from XML-sourced aerodynamic coefficients to plain in-memory
// breakpoint lists, since this core's configuration source is the
// flash-backed settings store of spec.md §6, not JSBSim XML.
package tables

import "sort"

// Table1D is a monotonic breakpoint table: Lookup(x) linearly interpolates
// between the two bracketing points and clamps outside the table's range.
type Table1D struct {
	x []float64
	y []float64
}

// NewTable1D builds a Table1D from parallel index/value slices. points are
// sorted by index if not already ascending.
func NewTable1D(index, value []float64) *Table1D {
	t := &Table1D{x: append([]float64(nil), index...), y: append([]float64(nil), value...)}
	sort.Sort(byIndex{t.x, t.y})
	return t
}

type byIndex struct {
	x, y []float64
}

func (b byIndex) Len() int           { return len(b.x) }
func (b byIndex) Less(i, j int) bool { return b.x[i] < b.x[j] }
func (b byIndex) Swap(i, j int) {
	b.x[i], b.x[j] = b.x[j], b.x[i]
	b.y[i], b.y[j] = b.y[j], b.y[i]
}

// Lookup returns the linearly interpolated value at x, clamped to the
// table's first/last value outside its domain — the same clamp-at-edges
// rule as the teacher's interpolate1D.
func (t *Table1D) Lookup(x float64) float64 {
	n := len(t.x)
	if n == 0 {
		return 0
	}
	if x <= t.x[0] {
		return t.y[0]
	}
	if x >= t.x[n-1] {
		return t.y[n-1]
	}
	for i := 0; i < n-1; i++ {
		if x >= t.x[i] && x <= t.x[i+1] {
			frac := (x - t.x[i]) / (t.x[i+1] - t.x[i])
			return t.y[i] + frac*(t.y[i+1]-t.y[i])
		}
	}
	return t.y[n-1]
}

// Table2D is a row/column breakpoint grid bilinearly interpolated, clamped
// at the edges on both axes.
type Table2D struct {
	rows []float64
	cols []float64
	data [][]float64
}

// NewTable2D builds a Table2D. data[i][j] is the value at (rows[i], cols[j]).
func NewTable2D(rows, cols []float64, data [][]float64) *Table2D {
	return &Table2D{rows: rows, cols: cols, data: data}
}

// Lookup bilinearly interpolates the value at (row, col).
func (t *Table2D) Lookup(row, col float64) float64 {
	if len(t.rows) == 0 || len(t.cols) == 0 || len(t.data) == 0 {
		return 0
	}
	ri1, ri2, rf := bracket(t.rows, row)
	ci1, ci2, cf := bracket(t.cols, col)

	v11 := t.data[ri1][ci1]
	v12 := t.data[ri1][ci2]
	v21 := t.data[ri2][ci1]
	v22 := t.data[ri2][ci2]

	top := v11 + cf*(v12-v11)
	bottom := v21 + cf*(v22-v21)
	return top + rf*(bottom-top)
}

// bracket returns the two indices that bracket x in a sorted ascending
// slice, and the interpolation fraction between them, clamping at the ends.
func bracket(xs []float64, x float64) (i1, i2 int, frac float64) {
	n := len(xs)
	if x <= xs[0] {
		return 0, 0, 0
	}
	if x >= xs[n-1] {
		return n - 1, n - 1, 0
	}
	for i := 0; i < n-1; i++ {
		if x >= xs[i] && x <= xs[i+1] {
			return i, i + 1, (x - xs[i]) / (xs[i+1] - xs[i])
		}
	}
	return n - 1, n - 1, 0
}
