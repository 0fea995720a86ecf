package model

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Table holds the values of every declared variable for one run. Cells that
// were never set read as NaN.
type Table struct {
	st   *Structure
	dims Dimensions
	cols map[string][]float64
}

func NewTable(st *Structure, dims Dimensions) *Table {
	t := &Table{st: st, dims: dims, cols: make(map[string][]float64, len(st.vars))}
	for _, v := range st.vars {
		col := make([]float64, dims.Size(v.Shape))
		for i := range col {
			col[i] = math.NaN()
		}
		t.cols[v.Name] = col
	}
	return t
}

func (t *Table) Dims() Dimensions { return t.dims }

func (t *Table) Structure() *Structure { return t.st }

// Set stores v at ix. Index components the variable does not have are ignored.
func (t *Table) Set(name string, ix Index, v float64) error {
	col, o, err := t.cell(name, ix)
	if err != nil {
		return err
	}
	col[o] = v
	return nil
}

// Get reads the value at ix. ok is false for unknown names and out-of-range
// indices; unset cells read as NaN.
func (t *Table) Get(name string, ix Index) (float64, bool) {
	col, o, err := t.cell(name, ix)
	if err != nil {
		return math.NaN(), false
	}
	return col[o], true
}

// ValueAt is Get without the flag.
func (t *Table) ValueAt(name string, ix Index) float64 {
	v, _ := t.Get(name, ix)
	return v
}

func (t *Table) cell(name string, ix Index) ([]float64, int, error) {
	v, ok := t.st.Variable(name)
	if !ok {
		return nil, 0, fmt.Errorf("table: unknown variable %q", name)
	}
	o, ok := t.dims.offset(v.Shape, ix)
	if !ok {
		return nil, 0, fmt.Errorf("table: index %s out of range for %s", ix, name)
	}
	return t.cols[name], o, nil
}

// Series returns the time series of name for region r (ignored for
// non-regional variables). Static variables yield a single value.
func (t *Table) Series(name string, r int) []float64 {
	v, ok := t.st.Variable(name)
	if !ok {
		return nil
	}
	if v.Shape.Static() {
		return []float64{t.ValueAt(name, At(0, r))}
	}
	out := make([]float64, t.dims.Steps)
	for i := range out {
		out[i] = t.ValueAt(name, At(i, r))
	}
	return out
}

// Final returns the value of name at the last step, summed over regions for
// regional variables.
func (t *Table) Final(name string) float64 {
	v, ok := t.st.Variable(name)
	if !ok {
		return math.NaN()
	}
	last := t.dims.Steps - 1
	if !v.Shape.HasRegion() {
		return t.ValueAt(name, AtTime(last))
	}
	sum := 0.0
	for r := range t.dims.Regions {
		sum += t.ValueAt(name, At(last, r))
	}
	return sum
}

// Missing lists the variables with at least one unset cell.
func (t *Table) Missing() []string {
	var out []string
	for _, v := range t.st.vars {
		for _, x := range t.cols[v.Name] {
			if math.IsNaN(x) {
				out = append(out, v.Name)
				break
			}
		}
	}
	return out
}

// View combines bound parameters with computed values.
type View struct {
	*Bound
	Table *Table
}

// ValueAt reads a computed value, or a parameter when name is one.
func (v View) ValueAt(name string, ix Index) float64 {
	if _, ok := v.Structure().Parameter(name); ok {
		return v.ParamAt(name, ix)
	}
	return v.Table.ValueAt(name, ix)
}

// Row is one cell of the flat output. Static variables have Step -1 and no
// year; non-regional variables have an empty Region.
type Row struct {
	Variable string
	Step     int
	Year     float64
	Region   string
	Value    float64
	Unit     string
}

// Rows flattens the table: variables in declaration order, cells time-major.
func (t *Table) Rows() []Row {
	var out []Row
	for _, v := range t.st.vars {
		for _, ix := range t.dims.Indices(v.Shape) {
			row := Row{Variable: v.Name, Step: -1, Unit: v.Unit, Value: t.ValueAt(v.Name, ix)}
			if v.Shape.HasTime() {
				row.Step = ix.T
				row.Year = t.dims.Year(ix.T)
			}
			if ix.R != NoRegion {
				row.Region = t.dims.Regions[ix.R]
			}
			out = append(out, row)
		}
	}
	return out
}

// CSVHeader is the header written by WriteCSV.
var CSVHeader = []string{"variable", "year", "region", "value", "unit"}

// WriteCSV writes Rows with shortest round-trip float formatting, so equal
// tables always produce identical bytes.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range t.Rows() {
		year := ""
		if r.Step >= 0 {
			year = strconv.FormatFloat(r.Year, 'g', -1, 64)
		}
		rec := []string{r.Variable, year, r.Region, strconv.FormatFloat(r.Value, 'g', -1, 64), r.Unit}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

