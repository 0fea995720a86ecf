package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/ecosim/internal/components"
	"github.com/san-kum/ecosim/internal/config"
	"github.com/san-kum/ecosim/internal/experiment"
	"github.com/san-kum/ecosim/internal/export"
	"github.com/san-kum/ecosim/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		mf     modelFlags
		format string
		inputs bool
		out    string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "print the dependency graph of a composition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mf.load(cmd)
			if err != nil {
				return err
			}
			st, err := structureFor(cfg.Selection())
			if err != nil {
				return err
			}
			g, err := graph.Build(st)
			if err != nil {
				return err
			}
			recorder.ObserveGraph(g.Stats())

			w, closeFn, err := output(out)
			if err != nil {
				return err
			}
			defer closeFn()

			switch format {
			case "dot":
				return export.WriteDOT(w, g, inputs)
			case "json":
				return export.WriteJSON(w, export.NewGraphData(g))
			case "order":
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tVARIABLE\tSHAPE\tKIND\tOWNER")
				for i, name := range g.Order() {
					n, _ := g.Node(name)
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, n.Name, n.Shape, n.Kind, n.Owner)
				}
				s := g.Stats()
				fmt.Fprintf(tw, "\n%d variables (%d controls), %d inputs, %d same-time and %d lagged edges\n",
					s.Variables, s.Controls, s.Inputs, s.SameTime, s.Lagged)
				return tw.Flush()
			default:
				return fmt.Errorf("unknown format %q (dot, json, order)", format)
			}
		},
	}
	mf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "order", "dot, json or order")
	cmd.Flags().BoolVar(&inputs, "inputs", false, "include parameters in dot output")
	cmd.Flags().StringVar(&out, "out", "-", "output path (- for stdout)")
	return cmd
}

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "list extension points and their variants",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			defaults := components.DefaultSelection()
			for _, point := range experiment.StandardLayout().Points() {
				fmt.Println(point)
				for _, key := range reg.Variants(point) {
					marker := " "
					if defaults[point] == key {
						marker = "*"
					}
					fmt.Printf("  %s %s\n", marker, key)
				}
			}
			fmt.Println("\n* default")
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			defaults := components.DefaultSelection()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tYEARS\tVARIANTS\tCONTROLS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				var changed []string
				for _, point := range experiment.Selection(cfg.Variants).Keys() {
					if defaults[point] != cfg.Variants[point] {
						changed = append(changed, fmt.Sprintf("%s=%s", point, cfg.Variants[point]))
					}
				}
				var controls []string
				for ctl, cc := range cfg.Controls {
					controls = append(controls, fmt.Sprintf("%s:%s", ctl, cc.Kind))
				}
				sort.Strings(controls)
				fmt.Fprintf(w, "%s\t%g-%g\t%v\t%v\n", name, cfg.Time.BeginYear, cfg.Time.EndYear, changed, controls)
			}
			w.Flush()
		},
	}
}
