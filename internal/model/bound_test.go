package model

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func threeRegions() Dimensions {
	return Dimensions{BeginYear: 2020, Dt: 5, Steps: 3, Regions: []string{"EU", "USA", "CHN"}}
}

func paramStructure(t *testing.T, declare func(b *Builder)) *Structure {
	t.Helper()
	b := NewBuilder()
	if err := b.Include(funcComponent{name: "params", build: func(b *Builder) ([]Relation, error) {
		declare(b)
		return nil, nil
	}}); err != nil {
		t.Fatal(err)
	}
	st, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestDimensions(t *testing.T) {
	d := threeRegions()
	if d.Year(2) != 2030 {
		t.Errorf("expected 2030, got %v", d.Year(2))
	}
	tests := []struct {
		shape Shape
		size  int
	}{
		{Scalar, 1},
		{Time, 3},
		{Region, 3},
		{TimeRegion, 9},
	}
	for _, tt := range tests {
		if got := len(d.Indices(tt.shape)); got != tt.size {
			t.Errorf("%s: expected %d indices, got %d", tt.shape, tt.size, got)
		}
	}
	if ix := d.Indices(TimeRegion)[4]; ix != At(1, 1) {
		t.Errorf("expected time-major order, got %s", ix)
	}
}

func TestDimensionsValidate(t *testing.T) {
	tests := []struct {
		name string
		dims Dimensions
	}{
		{"no steps", Dimensions{Dt: 1, Regions: []string{"a"}}},
		{"zero dt", Dimensions{Steps: 1, Regions: []string{"a"}}},
		{"no regions", Dimensions{Steps: 1, Dt: 1}},
		{"duplicate region", Dimensions{Steps: 1, Dt: 1, Regions: []string{"a", "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.dims.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestBind(t *testing.T) {
	st := paramStructure(t, func(b *Builder) {
		b.Param("alpha", Scalar, Default(0.3))
		b.Param("pop", TimeRegion, Within(NonNegative))
		b.Param("scale", Region)
		b.Param("trend", Time)
	})
	bs := NewBindings()
	bs.SetRegional("pop", []float64{1, 2, 3})
	bs.SetRegional("scale", []float64{10, 20, 30})
	bs.SetSeries("trend", []float64{0.1, 0.2, 0.3})

	bd, err := Bind(st, threeRegions(), bs)
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if got := bd.ParamAt("alpha", At(2, 1)); got != 0.3 {
		t.Errorf("expected default 0.3, got %v", got)
	}
	if got := bd.ParamAt("pop", At(2, 1)); got != 2 {
		t.Errorf("expected regional broadcast 2, got %v", got)
	}
	if got := bd.ParamAt("scale", At(1, 2)); got != 30 {
		t.Errorf("expected 30, got %v", got)
	}
	if got := bd.ParamAt("trend", At(2, 0)); got != 0.3 {
		t.Errorf("expected 0.3, got %v", got)
	}
	if got := bd.ParamAt("scale", AtTime(0)); !math.IsNaN(got) {
		t.Errorf("expected NaN for regional read without region, got %v", got)
	}
	if _, err := bd.Lookup("missing", AtTime(0)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name    string
		declare func(b *Builder)
		bind    func(bs *Bindings)
	}{
		{
			name:    "missing required",
			declare: func(b *Builder) { b.Param("p", Scalar) },
			bind:    func(*Bindings) {},
		},
		{
			name:    "out of domain",
			declare: func(b *Builder) { b.Param("p", Scalar, Within(Fraction)) },
			bind:    func(bs *Bindings) { bs.SetScalar("p", 1.5) },
		},
		{
			name:    "out of bounds",
			declare: func(b *Builder) { b.Param("p", Time, Bounds(0, 10)) },
			bind:    func(bs *Bindings) { bs.SetSeries("p", []float64{1, 11, 2}) },
		},
		{
			name:    "wrong length",
			declare: func(b *Builder) { b.Param("p", Region) },
			bind:    func(bs *Bindings) { bs.SetRegional("p", []float64{1, 2}) },
		},
		{
			name:    "incompatible shape",
			declare: func(b *Builder) { b.Param("p", Region) },
			bind:    func(bs *Bindings) { bs.SetSeries("p", []float64{1, 2, 3}) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := paramStructure(t, tt.declare)
			bs := NewBindings()
			tt.bind(bs)
			_, err := Bind(st, threeRegions(), bs)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if ce.Field != "p" {
				t.Errorf("expected field p, got %q", ce.Field)
			}
		})
	}
}

func TestTableRowsAndCSV(t *testing.T) {
	st := paramStructure(t, func(b *Builder) {
		b.Control("k", Scalar, Unit("-"))
		b.Control("e", TimeRegion, Unit("GtCO2"))
	})
	dims := Dimensions{BeginYear: 2020, Dt: 10, Steps: 2, Regions: []string{"A", "B"}}
	tbl := NewTable(st, dims)
	if got := tbl.Missing(); len(got) != 2 {
		t.Errorf("expected both variables missing, got %v", got)
	}
	_ = tbl.Set("k", AtTime(0), 0.5)
	for _, ix := range dims.Indices(TimeRegion) {
		_ = tbl.Set("e", ix, float64(ix.T*10+ix.R))
	}
	if err := tbl.Set("e", At(5, 0), 1); err == nil {
		t.Error("expected out of range error")
	}

	rows := tbl.Rows()
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	if rows[0].Step != -1 || rows[0].Region != "" {
		t.Errorf("unexpected static row %+v", rows[0])
	}
	if rows[4].Year != 2030 || rows[4].Region != "B" || rows[4].Value != 11 {
		t.Errorf("unexpected last row %+v", rows[4])
	}
	if got := tbl.Final("e"); got != 21 {
		t.Errorf("expected final sum 21, got %v", got)
	}

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := "variable,year,region,value,unit\n" +
		"k,,,0.5,-\n" +
		"e,2020,A,0,GtCO2\n" +
		"e,2020,B,1,GtCO2\n" +
		"e,2030,A,10,GtCO2\n" +
		"e,2030,B,11,GtCO2\n"
	if buf.String() != want {
		t.Errorf("unexpected csv:\n%s", buf.String())
	}
}
