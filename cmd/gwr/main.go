// Command gwr fits geographically weighted regressions on point data and
// writes the local coefficients as rasters or point tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/gwr/config"
	"github.com/YuminosukeSato/gwr/pkg/log"
)

var rootCommand = &cobra.Command{
	Use:   "gwr",
	Short: "Geographically weighted regression",
	Long: `gwr fits a weighted least squares model at every cell of a grid, or at
every record of a point table, using the reference points around it.`,
	SilenceUsage: true,
}

func init() {
	rootCommand.PersistentFlags().StringP("config", "c", "gwr.yaml", "Configuration file")
	rootCommand.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error), overrides log_level")
	rootCommand.PersistentFlags().Bool("quiet", false, "Hide progress bars")
	rootCommand.AddCommand(runCommand, pointsCommand, initCommand)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCommand.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the file named by --config and installs the logger. It
// also returns the directory relative input paths are resolved against.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	level := cfg.LogLevel
	if l, _ := cmd.Flags().GetString("log-level"); l != "" {
		level = l
	}
	if err := log.SetupLogger(os.Stderr, level); err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(path), nil
}

// resolve joins a relative path onto base.
func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
