package automation

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ecosim/internal/config"
	"github.com/san-kum/ecosim/internal/storage"
)

// Scenario is a scripted batch of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset or a configuration file (or the
// default configuration) and applies its overrides on top.
type ScenarioStep struct {
	Name     string                          `yaml:"name"`
	Preset   string                          `yaml:"preset,omitempty"`
	Config   string                          `yaml:"config,omitempty"`
	Variants map[string]string               `yaml:"variants,omitempty"`
	Params   map[string]float64              `yaml:"params,omitempty"`
	Controls map[string]config.ControlConfig `yaml:"controls,omitempty"`
	Save     bool                            `yaml:"save"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Resolve produces the validated configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Preset != "" && s.Config != "":
		return nil, fmt.Errorf("step %s: preset and config are exclusive", s.Name)
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("step %s: unknown preset %q", s.Name, s.Preset)
		}
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", s.Name, err)
		}
		cfg = loaded
	default:
		cfg = config.DefaultConfig()
	}

	cfg = cfg.Clone()
	if cfg.Variants == nil {
		cfg.Variants = map[string]string{}
	}
	if s.Name != "" {
		cfg.Name = s.Name
	}
	for k, v := range s.Variants {
		cfg.Variants[k] = v
	}
	for k, v := range s.Params {
		cfg.Params[k] = v
	}
	for k, v := range s.Controls {
		cfg.Controls[k] = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("step %s: %w", s.Name, err)
	}
	return cfg, nil
}

// StepResult pairs an outcome with the stored run id, if it was saved.
type StepResult struct {
	Name    string
	RunID   string
	Outcome *Outcome
}

// RunScenario executes the steps in order. Saved steps go to store, which
// may be nil when nothing is saved.
func RunScenario(ctx context.Context, scenario *Scenario, runner *Runner, store *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logrus.Infof("running step %d/%d: %s", i+1, len(scenario.Steps), cfg.Name)

		out, err := runner.Run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		sr := StepResult{Name: cfg.Name, Outcome: out}
		if step.Save {
			if store == nil {
				return results, fmt.Errorf("step %d: no store to save to", i+1)
			}
			id, err := store.Save(Metadata(out), out.Result.Table)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// Metadata describes an outcome for the run store.
func Metadata(out *Outcome) storage.RunMetadata {
	meta := storage.NewMetadata(out.Config.Name, out.Config.Selection(), out.Result.Table.Dims())
	meta.Warnings = len(out.Result.Warnings)
	meta.Violations = len(out.Result.Violations)
	meta.ElapsedMillis = float64(out.Result.Elapsed.Microseconds()) / 1000
	meta.Metrics = make(map[string]float64, len(out.Result.Metrics))
	for k, v := range out.Result.Metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			meta.Metrics[k] = v
		}
	}
	if name, v := out.Objective(); !math.IsNaN(v) && !math.IsInf(v, 0) {
		meta.Objective, meta.ObjectiveValue = name, v
	}
	return meta
}
