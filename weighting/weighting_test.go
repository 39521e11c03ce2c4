package weighting

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allConfigs() []Config {
	var configs []Config
	for _, b := range []float64{0.01, 0.5, 1, 10, 1e4} {
		configs = append(configs,
			Config{Kernel: None},
			Config{Kernel: Uniform, Bandwidth: b},
			Config{Kernel: Linear, Bandwidth: b},
			Config{Kernel: Exponential, Bandwidth: b},
			Config{Kernel: Gaussian, Bandwidth: b},
		)
	}
	for _, p := range []float64{0.5, 1, 2, 3, 40} {
		configs = append(configs,
			Config{Kernel: InverseDistance, Power: p},
			Config{Kernel: InverseDistance, Power: p, Offset: true},
		)
	}
	return configs
}

var distances = []float64{1e-9, 1e-3, 0.1, 0.5, 1, 1.0000001, 2, 5, 10, 100, 1e4, 1e8}

func TestWeightMonotonic(t *testing.T) {
	for _, c := range allConfigs() {
		for i := 1; i < len(distances); i++ {
			w1 := c.Weight(distances[i-1])
			w2 := c.Weight(distances[i])
			assert.GreaterOrEqual(t, w1, w2, "%s: w(%g) < w(%g)", c, distances[i-1], distances[i])
		}
	}
}

func TestWeightFiniteNonNegative(t *testing.T) {
	for _, c := range allConfigs() {
		for _, d := range append([]float64{0, -1, math.NaN()}, distances...) {
			w := c.Weight(d)
			assert.False(t, math.IsNaN(w) || math.IsInf(w, 0), "%s: w(%g) = %g", c, d, w)
			assert.GreaterOrEqual(t, w, 0.0, "%s: w(%g)", c, d)
		}
	}
}

func TestWeightAtZeroDistance(t *testing.T) {
	for _, c := range allConfigs() {
		w0 := c.Weight(0)
		assert.Greater(t, w0, 0.0, "%s must keep self-influence", c)
		assert.GreaterOrEqual(t, w0, c.Weight(1e-6), "%s", c)
	}

	assert.InDelta(t, 1.0, Config{Kernel: Gaussian, Bandwidth: 1}.Weight(0), 1e-12)
	assert.InDelta(t, 1.0, Config{Kernel: Exponential, Bandwidth: 1}.Weight(0), 1e-9)
	assert.InDelta(t, 1.0, Config{Kernel: Linear, Bandwidth: 1}.Weight(0), 1e-9)
	assert.Equal(t, 1.0, Config{Kernel: Uniform, Bandwidth: 1}.Weight(0))
}

func TestWeightFormulas(t *testing.T) {
	tests := []struct {
		name string
		c    Config
		d    float64
		want float64
	}{
		{"gaussian", Config{Kernel: Gaussian, Bandwidth: 2}, 2, math.Exp(-0.5)},
		{"exponential", Config{Kernel: Exponential, Bandwidth: 2}, 4, math.Exp(-2)},
		{"idw", Config{Kernel: InverseDistance, Power: 2}, 4, 1.0 / 16},
		{"idw offset", Config{Kernel: InverseDistance, Power: 1, Offset: true}, 3, 0.25},
		{"linear inside", Config{Kernel: Linear, Bandwidth: 4}, 1, 0.75},
		{"linear outside", Config{Kernel: Linear, Bandwidth: 4}, 5, 0},
		{"uniform edge", Config{Kernel: Uniform, Bandwidth: 4}, 4, 1},
		{"uniform outside", Config{Kernel: Uniform, Bandwidth: 4}, 4.01, 0},
		{"none", Config{Kernel: None}, 1e9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.c.Weight(tt.d), 1e-12)
		})
	}
}

func TestParseKernel(t *testing.T) {
	cases := map[string]Kernel{
		"Gaussian":         Gaussian,
		"exp":              Exponential,
		"IDW":              InverseDistance,
		"inverse-distance": InverseDistance,
		"uniform":          Uniform,
		"linear":           Linear,
		"":                 None,
	}
	for in, want := range cases {
		got, err := ParseKernel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKernel("spherical")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{Kernel: None}.Validate())
	assert.Error(t, Config{Kernel: Gaussian}.Validate())
	assert.Error(t, Config{Kernel: Linear, Bandwidth: -1}.Validate())
	assert.Error(t, Config{Kernel: Exponential, Bandwidth: math.Inf(1)}.Validate())
	assert.Error(t, Config{Kernel: InverseDistance}.Validate())
	assert.Error(t, Config{Kernel: "cubic", Bandwidth: 1}.Validate())
}
