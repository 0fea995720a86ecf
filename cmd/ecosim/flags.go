package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/san-kum/ecosim/internal/config"
	"github.com/san-kum/ecosim/internal/experiment"
	"github.com/san-kum/ecosim/internal/model"
)

// modelFlags select and adjust the configuration of commands that build a
// model.
type modelFlags struct {
	configFile string
	preset     string
	name       string
	variants   map[string]string
	params     map[string]string
	strict     bool
	workers    int
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&f.name, "name", "", "run name")
	cmd.Flags().StringToStringVar(&f.variants, "variant", nil, "select a variant: extension_point=key")
	cmd.Flags().StringToStringVar(&f.params, "set", nil, "set a scalar parameter: name=value")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "treat numerical warnings as errors")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "workers for region evaluation and concurrent trials")
}

// load resolves preset or file (exclusive) and applies the flag overrides.
// Flags only override what was set explicitly.
func (f *modelFlags) load(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case f.preset != "" && f.configFile != "":
		return nil, fmt.Errorf("--preset and --config are exclusive")
	case f.preset != "":
		cfg = config.GetPreset(f.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets())
		}
	case f.configFile != "":
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		cfg = config.DefaultConfig()
	}

	if err := applyOverrides(cfg, f.variants, f.params); err != nil {
		return nil, err
	}
	if f.name != "" {
		cfg.Name = f.name
	}
	if cmd.Flags().Changed("strict") {
		cfg.Simulation.Strict = f.strict
	}
	if cmd.Flags().Changed("workers") {
		cfg.Simulation.Workers = f.workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, variants, params map[string]string) error {
	if cfg.Variants == nil {
		cfg.Variants = map[string]string{}
	}
	if cfg.Params == nil {
		cfg.Params = map[string]float64{}
	}
	for point, key := range variants {
		cfg.Variants[point] = key
	}
	for name, raw := range params {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Configf(name, "not a number: %q", raw)
		}
		cfg.Params[name] = v
	}
	return nil
}

// structureFor composes the bundled layout for a variant selection.
func structureFor(variants map[string]string) (*model.Structure, error) {
	return experiment.Compose(experiment.NewRegistry(), experiment.StandardLayout(), variants)
}
