package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/ecosim/internal/automation"
	"github.com/san-kum/ecosim/internal/export"
	"github.com/san-kum/ecosim/internal/sim"
	"github.com/san-kum/ecosim/internal/storage"
	"github.com/san-kum/ecosim/internal/viz"
)

// headline variables shown in run summaries.
var headline = []string{"temperature", "global_emissions", "cumulative_emissions", "global_GDP_net", "NPV"}

func newRunner(metricSpecs []string, observers ...sim.Observer) *automation.Runner {
	r := automation.NewRunner()
	r.Metrics = metricSpecs
	r.Observers = observers
	r.Recorder = recorder
	return r
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func newRunCmd() *cobra.Command {
	var (
		mf       modelFlags
		metrics  []string
		noSave   bool
		progress bool
		browse   bool
		plotVars []string
		jsonOut  string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mf.load(cmd)
			if err != nil {
				return err
			}
			var observers []sim.Observer
			if progress {
				observers = append(observers, viz.NewProgress(os.Stderr, "temperature", 30))
			}

			fmt.Printf("running %s simulation...\n", cfg.Name)
			out, err := newRunner(metrics, observers...).Run(context.Background(), cfg)
			if err != nil {
				return err
			}
			res := out.Result

			if !noSave {
				st, err := openStore()
				if err != nil {
					return err
				}
				runID, err := st.Save(automation.Metadata(out), res.Table)
				if err != nil {
					return err
				}
				fmt.Printf("run id: %s\n", runID)
			}

			if jsonOut != "" {
				if err := export.ExportJSON(jsonOut, export.NewExportData(cfg.Name, cfg.Selection(), res)); err != nil {
					return err
				}
			}

			fmt.Println(viz.Summary(cfg.Name, res, headline))
			for _, name := range plotVars {
				chart, err := viz.PlotVariable(res.Table, name, viz.DefaultPlotOptions())
				if err != nil {
					return err
				}
				fmt.Println(chart)
			}

			if browse {
				return viz.RunBrowser(cfg.Name, res.Table)
			}
			return nil
		},
	}
	mf.register(cmd)
	cmd.Flags().StringSliceVar(&metrics, "metric", []string{"peak:temperature", "bounded:temperature:2"},
		"metrics: final:<var>, peak:<var>, bounded:<var>:<threshold>, control_effort")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	cmd.Flags().BoolVar(&progress, "progress", false, "draw a progress bar while running")
	cmd.Flags().BoolVar(&browse, "browse", false, "open the result browser after the run")
	cmd.Flags().StringSliceVar(&plotVars, "plot", nil, "variables to plot after the run")
	cmd.Flags().StringVar(&jsonOut, "json", "", "also export the result as JSON to this path (- for stdout)")
	return cmd
}
