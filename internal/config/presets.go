package config

import (
	"math"
	"sort"

	"github.com/san-kum/ecosim/internal/components"
)

// Presets are named scenarios built on the default configuration.
var Presets = map[string]func(*Config){
	"baseline": func(c *Config) {
		c.Variants[components.DamagePoint] = "nodamage"
	},
	"ramp": func(c *Config) {
		c.Controls = map[string]ControlConfig{
			"relative_abatement": {Kind: "ramp", From: 0, To: 1, Years: 60},
		}
	},
	"budget": func(c *Config) {
		c.Params["budget"] = 800
		c.Params["no_pos_emissions_after_budget_year"] = 1
		c.Controls = map[string]ControlConfig{
			"relative_abatement": {Kind: "schedule", Points: []PointConfig{
				{Year: 2020, Value: 0}, {Year: 2050, Value: 0.8}, {Year: 2070, Value: 1.05},
			}},
		}
	},
	"pooled": func(c *Config) {
		c.Variants[components.EmissionTradePoint] = "globalcostpool"
		c.Variants[components.FinancialTransferPoint] = "globaldamagepool"
		c.Variants[components.EffortSharingPoint] = "equal_total_costs"
		c.Controls = map[string]ControlConfig{
			"relative_abatement": {Kind: "ramp", From: 0, To: 0.9, Years: 50},
		}
	},
	"inequality": func(c *Config) {
		c.Variants[components.WelfarePoint] = "inequal_aversion_general"
		c.Params["inequal_aversion"] = 0.7
		c.Controls = map[string]ControlConfig{
			"relative_abatement": {Kind: "ramp", From: 0, To: 0.6, Years: 40, Regions: map[string]ControlConfig{
				"north": {Kind: "ramp", From: 0, To: 1, Years: 30},
			}},
		}
	},
	"target": func(c *Config) {
		c.Params["temperature_target"] = 2
		c.Params["budget"] = math.Inf(1)
		c.Variants[components.ObjectivePoint] = "globalcosts"
	},
}

// GetPreset returns a fresh configuration for a named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Name = name
	apply(cfg)
	return cfg
}

// ListPresets returns the preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
