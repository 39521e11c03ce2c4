package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gwr/config"
	"github.com/YuminosukeSato/gwr/pkg/errors"
)

var initCommand = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(out); err == nil && !force {
			return errors.Newf("%s already exists, use --force to overwrite it", out)
		}

		cfg := config.Default()
		cfg.Dependent = "value"
		cfg.Predictors = []string{"elevation"}
		cfg.Input.Points = "points.csv"
		cfg.Target.CellSize = 100
		if err := config.Save(cfg, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration was written to %s.\n", out)
		return nil
	},
}

func init() {
	initCommand.Flags().String("out", "gwr.yaml", "Path of the configuration file")
	initCommand.Flags().Bool("force", false, "Overwrite an existing file")
}
