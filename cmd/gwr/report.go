package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"

	"github.com/YuminosukeSato/gwr/core/model"
	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/gwr"
)

// rowProgress draws one progress bar per pass over the rows. A bar is
// created on the first row of a pass and closed on the final call.
type rowProgress struct {
	desc  string
	quiet bool
	bar   *progressbar.ProgressBar
}

func (p *rowProgress) report(row, rows int) bool {
	if p.quiet {
		return true
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(rows,
			progressbar.OptionSetDescription(p.desc),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(row)
	if row >= rows {
		_ = p.bar.Finish()
		p.bar = nil
	}
	return true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func printRunSummary(w io.Writer, res *gwr.Result, references int) error {
	table := tablewriter.NewWriter(w)
	table.Header("References", "Locations", "Produced", "No-data", "Duration")
	if err := table.Append([]string{
		strconv.Itoa(references),
		strconv.Itoa(res.Locations),
		strconv.Itoa(res.Produced),
		strconv.Itoa(res.NoData),
		res.Duration.Round(time.Millisecond).String(),
	}); err != nil {
		return err
	}
	return table.Render()
}

func printGridSummary(w io.Writer, grids []*dataset.MemoryGrid) error {
	table := tablewriter.NewWriter(w)
	table.Header("Output", "Cells", "No-data", "Min", "Max")
	rows := lo.Map(grids, func(g *dataset.MemoryGrid, _ int) []string {
		minText, maxText := "-", "-"
		if low, high, ok := g.Range(); ok {
			minText, maxText = formatFloat(low), formatFloat(high)
		}
		return []string{g.Name, strconv.Itoa(len(g.Data())), strconv.Itoa(g.NoDataCount()), minText, maxText}
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func printGlobalModel(w io.Writer, m *model.LocalModel, predictors []string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Term", "Global coefficient")
	rows := [][]string{{"intercept", formatFloat(m.Intercept)}}
	for j, name := range predictors {
		rows = append(rows, []string{name, formatFloat(m.Slopes[j])})
	}
	rows = append(rows, []string{"R²", formatFloat(m.R2)})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func printResidualSummary(w io.Writer, s gwr.ResidualSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Fitted points", "RMSE", "MAE", "R²")
	if err := table.Append([]string{strconv.Itoa(s.N), formatFloat(s.RMSE), formatFloat(s.MAE), formatFloat(s.R2)}); err != nil {
		return err
	}
	return table.Render()
}

func printCancelled(w io.Writer, res *gwr.Result) {
	fmt.Fprintf(w, "run cancelled after %d of the locations, no output written\n", res.Locations)
}
