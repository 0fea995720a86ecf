package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/ecosim/internal/model"
)

const (
	metadataFile = "metadata.json"
	valuesFile   = "values.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Timestamp      time.Time          `json:"timestamp"`
	Variants       map[string]string  `json:"variants"`
	BeginYear      float64            `json:"begin_year"`
	Dt             float64            `json:"dt"`
	Steps          int                `json:"steps"`
	Regions        []string           `json:"regions"`
	Warnings       int                `json:"warnings"`
	Violations     int                `json:"violations"`
	ElapsedMillis  float64            `json:"elapsed_ms"`
	Objective      string             `json:"objective,omitempty"`
	ObjectiveValue float64            `json:"objective_value,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// NewMetadata fills the grid fields from the table's dimensions.
func NewMetadata(name string, variants map[string]string, dims model.Dimensions) RunMetadata {
	return RunMetadata{
		Name:      name,
		Variants:  variants,
		BeginYear: dims.BeginYear,
		Dt:        dims.Dt,
		Steps:     dims.Steps,
		Regions:   append([]string(nil), dims.Regions...),
	}
}

// Save writes the metadata and the value table of a run and returns its id.
func (s *Store) Save(meta RunMetadata, tbl *model.Table) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%s", nameOr(meta.Name), uuid.NewString()[:8])
	}
	if err := checkID(meta.ID); err != nil {
		return "", err
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, valuesFile), tbl.WriteCSV); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// writeFile creates path and reports the first error of write or Close.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}

// checkID rejects ids that would resolve outside the store.
func checkID(runID string) error {
	if runID == "" || runID == "." || runID == ".." || filepath.Base(runID) != runID {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}

func nameOr(name string) string {
	if name == "" {
		return "run"
	}
	return name
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if err := checkID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadValues reads the value table of a run back as rows.
func (s *Store) LoadValues(runID string) ([]model.Row, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, valuesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadRows(file, meta.BeginYear, meta.Dt)
}

// LoadTable rebuilds the value table of a run over st, which must be the
// structure the run was produced with. Rows naming unknown variables or
// regions are errors.
func (s *Store) LoadTable(runID string, st *model.Structure) (*model.Table, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.LoadValues(runID)
	if err != nil {
		return nil, err
	}
	dims := model.Dimensions{BeginYear: meta.BeginYear, Dt: meta.Dt, Steps: meta.Steps, Regions: meta.Regions}
	tbl := model.NewTable(st, dims)
	for _, row := range rows {
		ix := model.At(max(row.Step, 0), model.NoRegion)
		if row.Region != "" {
			r, ok := dims.RegionIndex(row.Region)
			if !ok {
				return nil, fmt.Errorf("run %s: unknown region %q", runID, row.Region)
			}
			ix.R = r
		}
		if err := tbl.Set(row.Variable, ix, row.Value); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
	}
	return tbl, nil
}

// ReadRows parses the output of model.Table.WriteCSV. Steps are recovered
// from the year on the grid starting at begin with spacing dt.
func ReadRows(r io.Reader, begin, dt float64) ([]model.Row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	if len(header) != len(model.CSVHeader) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var rows []model.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := model.Row{Variable: rec[0], Step: -1, Region: rec[2], Unit: rec[4]}
		if rec[1] != "" {
			year, err := strconv.ParseFloat(rec[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad year %q", rec[0], rec[1])
			}
			row.Year = year
			row.Step = int(math.Round((year - begin) / dt))
		}
		row.Value, err = strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad value %q", rec[0], rec[3])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Delete removes a run directory.
func (s *Store) Delete(runID string) error {
	if err := checkID(runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}
