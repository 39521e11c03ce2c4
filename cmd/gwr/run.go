package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gwr/config"
	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/gwr"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/pkg/log"
	"github.com/YuminosukeSato/gwr/render"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Fit local models on a grid and write coefficient rasters",
	Long: `Fit a local model at the center of every cell of the target grid and write
intercept.asc, slope_<predictor>.asc and r2.asc to the output directory.
prediction.asc is added when every predictor is given as a grid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, base, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		residuals, _ := cmd.Flags().GetBool("residuals")

		driver, progress, err := newDriver(cfg, base, quiet)
		if err != nil {
			return err
		}
		defer driver.Finalize()

		sys, err := cfg.GridSystem(driver.Extent())
		if err != nil {
			return err
		}
		target := gwr.NewGridTarget(sys)

		progress.desc = "cells"
		res, err := driver.Run(cmd.Context(), target)
		if errors.Is(err, errors.ErrCancelled) {
			printCancelled(cmd.ErrOrStderr(), res)
			return err
		}
		if err != nil {
			return err
		}

		dir := resolve(base, cfg.Output.Dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", dir)
		}
		grids := target.MemoryGrids()
		for _, g := range grids {
			if err := dataset.WriteASCIIGridFile(filepath.Join(dir, g.Name+".asc"), g, cfg.Output.NoData); err != nil {
				return err
			}
			if !cfg.Output.Plot {
				continue
			}
			if g.NoDataCount() == len(g.Data()) {
				log.GetLoggerWithName("gwr").Warn("Skipping plot of an empty grid.", log.ComponentKey, "render", log.OutputKey, g.Name)
				continue
			}
			if err := render.HeatMap(g, g.Name, filepath.Join(dir, g.Name+".png"), render.DefaultSize, render.DefaultSize); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if err := printRunSummary(out, res, driver.References()); err != nil {
			return err
		}
		if err := printGridSummary(out, grids); err != nil {
			return err
		}
		if global, err := driver.GlobalModel(); err == nil {
			if err := printGlobalModel(out, global, cfg.Predictors); err != nil {
				return err
			}
		} else {
			log.GetLoggerWithName("gwr").Warn("Global model could not be fitted.", log.ErrAttrKey, err)
		}

		if !residuals {
			return nil
		}
		return reportResiduals(cmd, driver, cfg, dir)
	},
}

func init() {
	runCommand.Flags().Bool("residuals", false, "Fit the local model at every reference point and report residuals")
}

// newDriver reads the reference points and initializes a driver whose
// progress callback draws a bar per pass.
func newDriver(cfg *config.Config, base string, quiet bool) (*gwr.Driver, *rowProgress, error) {
	table, err := dataset.ReadCSVFile(resolve(base, cfg.Input.Points), cfg.CSVOptions())
	if err != nil {
		return nil, nil, err
	}
	grids, err := cfg.LoadGrids(base)
	if err != nil {
		return nil, nil, err
	}
	dc, err := cfg.DriverConfig(grids)
	if err != nil {
		return nil, nil, err
	}

	progress := &rowProgress{desc: "rows", quiet: quiet}
	dc.Progress = progress.report
	dc.Logger = log.GetLoggerWithName("gwr")

	driver := gwr.New(dc)
	if err := driver.Initialize(table); err != nil {
		return nil, nil, err
	}
	return driver, progress, nil
}

func reportResiduals(cmd *cobra.Command, driver *gwr.Driver, cfg *config.Config, dir string) error {
	residuals, summary, err := driver.Residuals(cmd.Context())
	if err != nil {
		return err
	}
	if err := printResidualSummary(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	table := dataset.NewMemoryTable("record", "observed", "fitted", "residual", "r2")
	observed := make([]float64, 0, len(residuals))
	fitted := make([]float64, 0, len(residuals))
	for _, r := range residuals {
		if err := table.Append(r.Location, float64(r.Record), r.Observed, r.Fitted, r.Residual, r.R2); err != nil {
			return err
		}
		observed = append(observed, r.Observed)
		fitted = append(fitted, r.Fitted)
	}
	if err := dataset.WriteCSVFile(filepath.Join(dir, "residuals.csv"), table); err != nil {
		return err
	}
	if cfg.Output.Plot && summary.N > 0 {
		return render.Scatter(observed, fitted, "observed vs fitted", filepath.Join(dir, "residuals.png"), render.DefaultSize, render.DefaultSize)
	}
	return nil
}
