package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gwr/config"
	"github.com/YuminosukeSato/gwr/dataset"
)

// writeProject creates a reference CSV where value = 1 + 2·elev holds
// exactly, and a configuration pointing at it.
func writeProject(t *testing.T, extra string) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()

	var b strings.Builder
	b.WriteString("x,y,elev,value,station\n")
	for i := 0; i <= 10; i += 2 {
		for j := 0; j <= 10; j += 2 {
			elev := float64((i*7+j*3)%11) + 0.5*float64(j)
			fmt.Fprintf(&b, "%d,%d,%g,%g,s%d_%d\n", i, j, elev, 1+2*elev, i, j)
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "points.csv"), []byte(b.String()), 0o644))

	cfgPath = filepath.Join(dir, "gwr.yaml")
	text := `
dependent: value
predictors: [elev]
weighting: {kernel: gaussian, bandwidth: 5}
target: {cell_size: 5}
input: {points: points.csv}
output: {dir: out}
workers: 2
` + extra
	require.NoError(t, os.WriteFile(cfgPath, []byte(text), 0o644))
	return dir, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCommand.SetOut(&out)
	rootCommand.SetErr(&out)
	rootCommand.SetArgs(append(args, "--quiet", "--log-level", "error"))
	err := rootCommand.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunWritesGrids(t *testing.T) {
	dir, cfgPath := writeProject(t, "")

	out, err := execute(t, "run", "--config", cfgPath, "--residuals")
	require.NoError(t, err, out)

	for _, name := range []string{"intercept", "slope_elev", "r2"} {
		g, err := dataset.ReadASCIIGridFile(filepath.Join(dir, "out", name+".asc"))
		require.NoError(t, err, name)
		cols, rows := g.Dims()
		assert.Equal(t, 2, cols)
		assert.Equal(t, 2, rows)
		assert.Zero(t, g.NoDataCount(), name)
	}

	intercept, err := dataset.ReadASCIIGridFile(filepath.Join(dir, "out", "intercept.asc"))
	require.NoError(t, err)
	for _, v := range intercept.Data() {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
	slope, err := dataset.ReadASCIIGridFile(filepath.Join(dir, "out", "slope_elev.asc"))
	require.NoError(t, err)
	for _, v := range slope.Data() {
		assert.InDelta(t, 2.0, v, 1e-6)
	}

	assert.FileExists(t, filepath.Join(dir, "out", "residuals.csv"))
	assert.Contains(t, out, "intercept")
	assert.Contains(t, out, "RMSE")
}

func TestRunPlots(t *testing.T) {
	dir, cfgPath := writeProject(t, "")
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Output.Plot = true
	require.NoError(t, config.Save(cfg, cfgPath))

	out, err := execute(t, "run", "--config", cfgPath, "--residuals=false")
	require.NoError(t, err, out)
	assert.FileExists(t, filepath.Join(dir, "out", "intercept.png"))
	assert.FileExists(t, filepath.Join(dir, "out", "r2.png"))
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, cfgPath := writeProject(t, "search: {radius: -1}\n")
	_, err := execute(t, "run", "--config", cfgPath, "--residuals=false")
	assert.Error(t, err)
}

func TestPoints(t *testing.T) {
	dir, cfgPath := writeProject(t, "")
	targets := filepath.Join(dir, "targets.csv")
	require.NoError(t, os.WriteFile(targets, []byte("x,y,name\n1,1,a\n5,5,b\n9,3,c\n"), 0o644))
	outPath := filepath.Join(dir, "result.csv")

	out, err := execute(t, "points", "--config", cfgPath, "--targets", targets, "--out", outPath)
	require.NoError(t, err, out)

	table, err := dataset.ReadCSVFile(outPath, dataset.CSVOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	for _, v := range table.Column("intercept") {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
	for _, v := range table.Column("slope_elev") {
		assert.InDelta(t, 2.0, v, 1e-6)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gwr.yaml")

	out, err := execute(t, "init", "--out", path, "--force=false")
	require.NoError(t, err, out)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "value", cfg.Dependent)
	assert.Equal(t, []string{"elevation"}, cfg.Predictors)

	_, err = execute(t, "init", "--out", path, "--force=false")
	assert.Error(t, err)
	_, err = execute(t, "init", "--out", path, "--force")
	assert.NoError(t, err)
}
