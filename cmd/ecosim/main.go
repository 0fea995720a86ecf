package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/ecosim/internal/telemetry"
	"github.com/san-kum/ecosim/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	metricsFile string
	theme       string

	recorder = telemetry.NewRecorder()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ecosim",
		Short:         "integrated assessment model composer and simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			viz.SetTheme(theme)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" {
				return nil
			}
			return recorder.WriteTextfile(metricsFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ecosim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write prometheus metrics to this textfile on exit")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "terminal", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	rootCmd.AddCommand(
		newRunCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newBrowseCmd(),
		newDeleteCmd(),
		newGraphCmd(),
		newVariantsCmd(),
		newPresetsCmd(),
		newBatchCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
		newPrerunCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
