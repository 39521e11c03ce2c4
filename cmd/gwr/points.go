package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/gwr"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

var pointsCommand = &cobra.Command{
	Use:   "points",
	Short: "Fit local models at the records of a point table",
	Long: `Fit a local model at every record of the targets CSV and write it back with
the fields intercept, slope_<predictor> and r2 appended.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, base, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		targetsPath, _ := cmd.Flags().GetString("targets")
		outPath, _ := cmd.Flags().GetString("out")

		targets, err := dataset.ReadCSVFile(targetsPath, cfg.CSVOptions())
		if err != nil {
			return err
		}

		driver, progress, err := newDriver(cfg, base, quiet)
		if err != nil {
			return err
		}
		defer driver.Finalize()

		progress.desc = "points"
		res, err := driver.Run(cmd.Context(), gwr.NewPointTarget(targets))
		if errors.Is(err, errors.ErrCancelled) {
			printCancelled(cmd.ErrOrStderr(), res)
			return err
		}
		if err != nil {
			return err
		}

		if err := dataset.WriteCSVFile(outPath, targets); err != nil {
			return err
		}
		return printRunSummary(cmd.OutOrStdout(), res, driver.References())
	},
}

func init() {
	pointsCommand.Flags().String("targets", "", "CSV file of target locations")
	pointsCommand.Flags().String("out", "gwr_points.csv", "Output CSV file")
	_ = pointsCommand.MarkFlagRequired("targets")
}
