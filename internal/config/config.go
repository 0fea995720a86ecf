package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ecosim/internal/components"
	"github.com/san-kum/ecosim/internal/control"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/sim"
)

const (
	DefaultBeginYear = 2020.0
	DefaultEndYear   = 2150.0
	DefaultDt        = 5.0
	DefaultWorkers   = 1
)

type Config struct {
	Name       string                   `yaml:"name,omitempty"`
	Variants   map[string]string        `yaml:"variants" validate:"required,dive,keys,identifier,endkeys,identifier"`
	Time       TimeConfig               `yaml:"time"`
	Regions    []RegionConfig           `yaml:"regions" validate:"required,min=1,unique=Name,dive"`
	Params     map[string]float64       `yaml:"params,omitempty" validate:"dive,keys,identifier,endkeys"`
	Series     map[string][]PointConfig `yaml:"series,omitempty" validate:"dive,keys,identifier,endkeys,min=1,dive"`
	Input      *InputConfig             `yaml:"input,omitempty"`
	Simulation SimulationConfig         `yaml:"simulation"`
	Controls   map[string]ControlConfig `yaml:"controls,omitempty" validate:"dive,keys,identifier,endkeys"`
}

type TimeConfig struct {
	BeginYear float64 `yaml:"begin_year" validate:"gte=1800,lte=2300"`
	EndYear   float64 `yaml:"end_year" validate:"gtfield=BeginYear,lte=2500"`
	Dt        float64 `yaml:"dt" validate:"gt=0"`
}

// Steps is the number of grid points from BeginYear up to and including
// EndYear.
func (t TimeConfig) Steps() int {
	return int(math.Floor((t.EndYear-t.BeginYear)/t.Dt+1e-9)) + 1
}

// RegionConfig describes one region. Regional parameters are bound per
// region; the growth blocks generate the baseline scenario when no input
// file provides it.
type RegionConfig struct {
	Name       string             `yaml:"name" validate:"required,identifier"`
	Params     map[string]float64 `yaml:"params,omitempty" validate:"dive,keys,identifier,endkeys"`
	Population GrowthConfig       `yaml:"population"`
	GDP        GrowthConfig       `yaml:"gdp"`
	Emissions  GrowthConfig       `yaml:"emissions"`
}

// GrowthConfig is Initial*(1+Rate)^years + Change*years, years counted from
// the begin year.
type GrowthConfig struct {
	Initial float64 `yaml:"initial" validate:"gte=0"`
	Rate    float64 `yaml:"rate" validate:"gt=-1"`
	Change  float64 `yaml:"change"`
}

func (g GrowthConfig) At(years float64) float64 {
	return g.Initial*math.Pow(1+g.Rate, years) + g.Change*years
}

// PointConfig is one year/value pair of a parameter series.
type PointConfig struct {
	Year  float64 `yaml:"year"`
	Value float64 `yaml:"value"`
}

// InputConfig points at a long-format data file: one row per model,
// scenario, region, variable, unit, year and value.
type InputConfig struct {
	Path     string            `yaml:"path" validate:"required"`
	Model    string            `yaml:"model,omitempty"`
	Scenario string            `yaml:"scenario,omitempty"`
	Mapping  map[string]string `yaml:"mapping,omitempty" validate:"dive,keys,identifier,endkeys,required"`
}

// SimulationConfig holds run options. DefaultControl fills control cells no
// profile covers; null disables it, so an uncovered control fails the run.
type SimulationConfig struct {
	Strict         bool     `yaml:"strict"`
	Workers        int      `yaml:"workers" validate:"gte=0,lte=256"`
	Tolerance      float64  `yaml:"tolerance" validate:"gte=0"`
	DefaultControl *float64 `yaml:"default_control"`
	Audit          bool     `yaml:"audit"`
}

// Sim converts the section for the simulator.
func (s SimulationConfig) Sim() sim.Config {
	return sim.Config{
		Strict:            s.Strict,
		Workers:           s.Workers,
		Tolerance:         s.Tolerance,
		AuditDependencies: s.Audit,
	}
}

// ControlConfig is one control profile: a constant, a ramp or a schedule of
// year/value points. Per-region profiles override the shared one.
type ControlConfig struct {
	Kind    string                   `yaml:"kind" validate:"oneof=constant ramp schedule"`
	Value   float64                  `yaml:"value,omitempty"`
	From    float64                  `yaml:"from,omitempty"`
	To      float64                  `yaml:"to,omitempty"`
	Years   float64                  `yaml:"years,omitempty" validate:"gte=0"`
	Points  []PointConfig            `yaml:"points,omitempty" validate:"required_if=Kind schedule"`
	Regions map[string]ControlConfig `yaml:"regions,omitempty" validate:"dive"`
}

var (
	validate   = validator.New()
	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.\-]*$`)
)

func init() {
	_ = validate.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifier.MatchString(fl.Field().String())
	})
}

func DefaultConfig() *Config {
	return &Config{
		Name:     "default",
		Variants: components.DefaultSelection(),
		Time: TimeConfig{
			BeginYear: DefaultBeginYear,
			EndYear:   DefaultEndYear,
			Dt:        DefaultDt,
		},
		Regions: []RegionConfig{
			{
				Name:       "north",
				Params:     map[string]float64{"MAC_scaling_factor": 1.2, "init_capitalstock_factor": 3.0},
				Population: GrowthConfig{Initial: 1.3, Rate: 0.002},
				GDP:        GrowthConfig{Initial: 55, Rate: 0.015},
				Emissions:  GrowthConfig{Initial: 12, Change: -0.05},
			},
			{
				Name:       "emerging",
				Params:     map[string]float64{"MAC_scaling_factor": 0.8, "init_capitalstock_factor": 2.6},
				Population: GrowthConfig{Initial: 3.2, Rate: 0.004},
				GDP:        GrowthConfig{Initial: 30, Rate: 0.035},
				Emissions:  GrowthConfig{Initial: 20, Change: 0.1},
			},
			{
				Name:       "south",
				Params:     map[string]float64{"MAC_scaling_factor": 0.9, "init_capitalstock_factor": 2.4},
				Population: GrowthConfig{Initial: 3.3, Rate: 0.009},
				GDP:        GrowthConfig{Initial: 12, Rate: 0.04},
				Emissions:  GrowthConfig{Initial: 8, Change: 0.12},
			},
		},
		Params: map[string]float64{},
		Simulation: SimulationConfig{
			Workers:        DefaultWorkers,
			DefaultControl: float(0),
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &model.ConfigurationError{Field: "yaml", Message: "cannot parse", Wrapped: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks struct tags first and then the cross-field rules the tags
// cannot express. Failures are configuration errors naming the field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &model.ConfigurationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
				Wrapped: err,
			}
		}
		return &model.ConfigurationError{Field: "config", Message: "invalid", Wrapped: err}
	}
	if steps := c.Time.Steps(); steps < 2 {
		return model.Configf("time", "grid has %d step, need at least 2", steps)
	}
	for name, ctl := range c.Controls {
		for region := range ctl.Regions {
			if !c.HasRegion(region) {
				return model.Configf("controls."+name, "unknown region %q", region)
			}
		}
	}
	return nil
}

// Clone returns a copy that shares no maps or slices with c.
func (c *Config) Clone() *Config {
	out := *c
	out.Variants = copyMap(c.Variants)
	out.Params = copyMap(c.Params)
	if out.Params == nil {
		out.Params = map[string]float64{}
	}
	out.Series = make(map[string][]PointConfig, len(c.Series))
	for k, v := range c.Series {
		out.Series[k] = append([]PointConfig(nil), v...)
	}
	out.Regions = make([]RegionConfig, len(c.Regions))
	for i, r := range c.Regions {
		r.Params = copyMap(r.Params)
		out.Regions[i] = r
	}
	out.Controls = make(map[string]ControlConfig, len(c.Controls))
	for k, v := range c.Controls {
		out.Controls[k] = v.clone()
	}
	if c.Simulation.DefaultControl != nil {
		out.Simulation.DefaultControl = float(*c.Simulation.DefaultControl)
	}
	if c.Input != nil {
		in := *c.Input
		in.Mapping = copyMap(c.Input.Mapping)
		out.Input = &in
	}
	return &out
}

func float(v float64) *float64 { return &v }

func (cc ControlConfig) clone() ControlConfig {
	cc.Points = append([]PointConfig(nil), cc.Points...)
	if cc.Regions != nil {
		regions := make(map[string]ControlConfig, len(cc.Regions))
		for k, v := range cc.Regions {
			regions[k] = v.clone()
		}
		cc.Regions = regions
	}
	return cc
}

func copyMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (c *Config) HasRegion(name string) bool {
	for _, r := range c.Regions {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (c *Config) RegionNames() []string {
	names := make([]string, len(c.Regions))
	for i, r := range c.Regions {
		names[i] = r.Name
	}
	return names
}

func (c *Config) Dimensions() model.Dimensions {
	return model.Dimensions{
		BeginYear: c.Time.BeginYear,
		Dt:        c.Time.Dt,
		Steps:     c.Time.Steps(),
		Regions:   c.RegionNames(),
	}
}

// Selection returns the variant keys with missing points filled from the
// bundled defaults.
func (c *Config) Selection() map[string]string {
	sel := components.DefaultSelection()
	for k, v := range c.Variants {
		sel[k] = v
	}
	return sel
}

// ControlSet builds the control values of one run.
func (c *Config) ControlSet(dims model.Dimensions) *control.Set {
	set := control.NewSet(dims)
	if d := c.Simulation.DefaultControl; d != nil {
		set.WithDefault(*d)
	}
	names := make([]string, 0, len(c.Controls))
	for name := range c.Controls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		set.Add(name, c.Controls[name].Source())
	}
	return set
}

// Source converts the profile. Regions without their own profile use the
// shared one.
func (cc ControlConfig) Source() control.Source {
	var shared control.Source
	switch cc.Kind {
	case "ramp":
		shared = control.Ramp{From: cc.From, To: cc.To, Years: cc.Years}
	case "schedule":
		shared = control.NewSchedule(Points(cc.Points))
	default:
		shared = control.Constant{V: cc.Value}
	}
	if len(cc.Regions) == 0 {
		return shared
	}
	regional := control.Regional{}
	for name, rc := range cc.Regions {
		regional[name] = rc.Source()
	}
	return withFallback{primary: regional, fallback: shared}
}

type withFallback struct {
	primary, fallback control.Source
}

func (w withFallback) Value(ix model.Index, dims model.Dimensions) (float64, bool) {
	if v, ok := w.primary.Value(ix, dims); ok {
		return v, true
	}
	return w.fallback.Value(ix, dims)
}

// Points converts configured points for interpolation.
func Points(ps []PointConfig) []control.Point {
	out := make([]control.Point, len(ps))
	for i, p := range ps {
		out[i] = control.Point{Year: p.Year, Value: p.Value}
	}
	return out
}
