// Package export writes simulation results and dependency graphs in formats
// other tools can read.
package export

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"

	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

type ExportData struct {
	Name       string             `json:"name"`
	Variants   map[string]string  `json:"variants,omitempty"`
	BeginYear  float64            `json:"begin_year"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Regions    []string           `json:"regions"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	Violations []string           `json:"violations,omitempty"`
	Values     []Value            `json:"values"`
}

// Value is one table cell. NaN cells encode as null.
type Value struct {
	Variable string   `json:"variable"`
	Year     *float64 `json:"year,omitempty"`
	Region   string   `json:"region,omitempty"`
	Value    *float64 `json:"value"`
	Unit     string   `json:"unit,omitempty"`
}

func NewExportData(name string, variants map[string]string, res *sim.Result) ExportData {
	dims := res.Table.Dims()
	data := ExportData{
		Name:      name,
		Variants:  variants,
		BeginYear: dims.BeginYear,
		Dt:        dims.Dt,
		Steps:     dims.Steps,
		Regions:   dims.Regions,
		Metrics:   finite(res.Metrics),
	}
	for _, w := range res.Warnings {
		data.Warnings = append(data.Warnings, w.Error())
	}
	for _, v := range res.Violations {
		data.Violations = append(data.Violations, v.String())
	}
	data.Values = Values(res.Table.Rows())
	return data
}

// Values converts table rows for encoding.
func Values(rows []model.Row) []Value {
	out := make([]Value, 0, len(rows))
	for _, r := range rows {
		v := Value{Variable: r.Variable, Region: r.Region, Unit: r.Unit, Value: number(r.Value)}
		if r.Step >= 0 {
			year := r.Year
			v.Year = &year
		}
		out = append(out, v)
	}
	return out
}

func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finite(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := m[k]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func WriteJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSON writes data to path, or to stdout when path is "-".
func ExportJSON(path string, data any) error {
	if path == "-" {
		return WriteJSON(os.Stdout, data)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}
