package gwr

import (
	"context"
	"testing"

	"github.com/YuminosukeSato/gwr/spatial"
	"github.com/YuminosukeSato/gwr/weighting"
)

func benchmarkRun(b *testing.B, search Search, workers int) {
	tbl := randomTable(b, 2000, 7)
	sys := gridOver(b, 0, 0, 100, 100, 5)

	cfg := DefaultConfig()
	cfg.Dependent = "z"
	cfg.Predictors = []string{"a"}
	cfg.Weighting = weighting.Config{Kernel: weighting.Gaussian, Bandwidth: 15}
	cfg.Search = search
	cfg.Workers = workers
	cfg.Logger = quietLogger()

	d := New(cfg)
	if err := d.Initialize(tbl); err != nil {
		b.Fatal(err)
	}
	defer d.Finalize()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Run(context.Background(), NewGridTarget(sys)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRunGlobal(b *testing.B) {
	benchmarkRun(b, Search{}, 0)
}

func BenchmarkRunNearest(b *testing.B) {
	benchmarkRun(b, Search{MaxCount: 32, MinCount: 8}, 0)
}

func BenchmarkRunQuadrantSequential(b *testing.B) {
	benchmarkRun(b, Search{MaxCount: 8, MinCount: 8, Direction: spatial.Quadrant}, 1)
}
