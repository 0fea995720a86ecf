package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/ecosim/internal/export"
	"github.com/san-kum/ecosim/internal/model"
	"github.com/san-kum/ecosim/internal/storage"
	"github.com/san-kum/ecosim/internal/viz"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Printf("no runs found in %s\n", st.Dir())
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIME\tYEARS\tREGIONS\tWARN\tVIOL\tOBJECTIVE")
			for _, run := range runs {
				objective := "-"
				if run.Objective != "" {
					objective = fmt.Sprintf("%s=%.6g", run.Objective, run.ObjectiveValue)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%g-%g\t%d\t%d\t%d\t%s\n",
					run.ID,
					run.Name,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.BeginYear,
					run.BeginYear+float64(run.Steps-1)*run.Dt,
					len(run.Regions),
					run.Warnings,
					run.Violations,
					objective,
				)
			}
			return w.Flush()
		},
	}
}

// loadRun restores the metadata and value table of a stored run.
func loadRun(runID string) (*storage.RunMetadata, *model.Table, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	structure, err := structureFor(meta.Variants)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := st.LoadTable(runID, structure)
	if err != nil {
		return nil, nil, err
	}
	return meta, tbl, nil
}

func newPlotCmd() *cobra.Command {
	var (
		region string
		height int
		width  int
	)
	cmd := &cobra.Command{
		Use:   "plot [run_id] [variable...]",
		Short: "plot variables of a stored run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tbl, err := loadRun(args[0])
			if err != nil {
				return err
			}
			vars := args[1:]
			if len(vars) == 0 {
				vars = []string{"temperature", "regional_emissions", "GDP_net"}
			}
			opts := viz.PlotOptions{Width: width, Height: height, Region: viz.AllRegions}
			if region != "" {
				r, ok := tbl.Dims().RegionIndex(region)
				if !ok {
					return fmt.Errorf("unknown region %q (available: %v)", region, meta.Regions)
				}
				opts.Region = r
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("name: %s\n\n", meta.Name)
			for _, name := range vars {
				chart, err := viz.PlotVariable(tbl, name, opts)
				if err != nil {
					return err
				}
				fmt.Println(chart)
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "plot a single region")
	cmd.Flags().IntVar(&height, "height", 12, "chart height")
	cmd.Flags().IntVar(&width, "width", 80, "chart width")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		format   string
		out      string
		variable string
	)
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json, csv or an svg chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tbl, err := loadRun(args[0])
			if err != nil {
				return err
			}
			switch format {
			case "json":
				data := export.ExportData{
					Name:      meta.Name,
					Variants:  meta.Variants,
					BeginYear: meta.BeginYear,
					Dt:        meta.Dt,
					Steps:     meta.Steps,
					Regions:   meta.Regions,
					Metrics:   meta.Metrics,
					Values:    export.Values(tbl.Rows()),
				}
				return export.ExportJSON(out, data)
			case "csv":
				w, closeFn, err := output(out)
				if err != nil {
					return err
				}
				defer closeFn()
				return tbl.WriteCSV(w)
			case "svg":
				svg, err := chartSVG(tbl, variable)
				if err != nil {
					return err
				}
				w, closeFn, err := output(out)
				if err != nil {
					return err
				}
				defer closeFn()
				_, err = fmt.Fprintln(w, svg)
				return err
			default:
				return fmt.Errorf("unknown format %q (json, csv, svg)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json, csv or svg")
	cmd.Flags().StringVar(&out, "out", "-", "output path (- for stdout)")
	cmd.Flags().StringVar(&variable, "var", "temperature", "variable charted by the svg format")
	return cmd
}

func chartSVG(tbl *model.Table, name string) (string, error) {
	v, ok := tbl.Structure().Variable(name)
	if !ok || v.Shape.Static() {
		return "", fmt.Errorf("%q is not a time-varying variable", name)
	}
	dims := tbl.Dims()
	years := make([]float64, dims.Steps)
	for t := range years {
		years[t] = dims.Year(t)
	}
	var lines []export.Line
	if v.Shape.HasRegion() {
		for r, region := range dims.Regions {
			lines = append(lines, export.Line{Label: region, Values: tbl.Series(name, r)})
		}
	} else {
		lines = append(lines, export.Line{Label: name, Values: tbl.Series(name, model.NoRegion)})
	}
	svg := export.SeriesToSVG(fmt.Sprintf("%s [%s]", name, v.Unit), years, lines, 800, 400)
	if svg == "" {
		return "", fmt.Errorf("%s has no values to chart", name)
	}
	return svg, nil
}

func output(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [run_id]",
		Short: "browse the variables of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tbl, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return viz.RunBrowser(meta.Name+" ("+meta.ID+")", tbl)
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [run_id...]",
		Short: "delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			for _, id := range args {
				if _, err := st.Load(id); err != nil {
					return err
				}
				if err := st.Delete(id); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", id)
			}
			return nil
		},
	}
}
