// Package weighting maps a distance to a non-negative sample weight.
//
// A Config is evaluated with Weight for every candidate neighbor of a target
// location. All kernels are deterministic, finite, non-negative and
// monotonically non-increasing in distance.
package weighting

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/gwr/pkg/errors"
)

// Kernel selects the distance-decay function.
type Kernel string

const (
	// None gives every sample weight 1 regardless of distance.
	None Kernel = "none"
	// Uniform gives weight 1 inside the bandwidth and 0 outside.
	Uniform Kernel = "uniform"
	// Linear decays from 1 at distance 0 to 0 at the bandwidth.
	Linear Kernel = "linear"
	// InverseDistance is 1/d^p, or 1/(1+d)^p with Offset.
	InverseDistance Kernel = "inverse_distance"
	// Exponential is exp(-d/b).
	Exponential Kernel = "exponential"
	// Gaussian is exp(-0.5 (d/b)^2).
	Gaussian Kernel = "gaussian"
)

// Epsilon replaces zero or negative distances before evaluating a kernel.
const Epsilon = 1e-12

// maxWeight bounds inverse-distance weights so they stay finite.
const maxWeight = 1e300

// Kernels lists every supported kernel.
var Kernels = []Kernel{None, Uniform, Linear, InverseDistance, Exponential, Gaussian}

// ParseKernel parses a kernel name. Dashes, spaces and case are ignored, and
// "idw" is accepted for InverseDistance.
func ParseKernel(s string) (Kernel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)
	switch name {
	case "", "none", "no_weighting":
		return None, nil
	case "uniform", "box":
		return Uniform, nil
	case "linear":
		return Linear, nil
	case "inverse_distance", "idw", "inverse":
		return InverseDistance, nil
	case "exponential", "exp":
		return Exponential, nil
	case "gaussian", "gauss":
		return Gaussian, nil
	}
	return "", errors.NewValidationError("weighting.kernel", "unknown kernel", s)
}

// Config configures the distance-weighting function.
type Config struct {
	Kernel Kernel
	// Bandwidth controls how quickly the weight decays.
	Bandwidth float64
	// Power is the exponent of the inverse-distance kernel.
	Power float64
	// Offset evaluates inverse distance as 1/(1+d)^p.
	Offset bool
}

// DefaultConfig returns a Gaussian kernel with unit bandwidth.
func DefaultConfig() Config {
	return Config{Kernel: Gaussian, Bandwidth: 1, Power: 2}
}

// Validate checks that the parameters required by the kernel are usable.
func (c Config) Validate() error {
	switch c.Kernel {
	case None:
		return nil
	case Uniform, Linear, Exponential, Gaussian:
		if !(c.Bandwidth > 0) || math.IsInf(c.Bandwidth, 0) {
			return errors.NewValidationError("weighting.bandwidth", "must be a positive finite number", c.Bandwidth)
		}
		return nil
	case InverseDistance:
		if !(c.Power > 0) || math.IsInf(c.Power, 0) {
			return errors.NewValidationError("weighting.power", "must be a positive finite number", c.Power)
		}
		return nil
	}
	return errors.NewValidationError("weighting.kernel", "unknown kernel", string(c.Kernel))
}

// Weight returns the weight of a sample at distance d.
func (c Config) Weight(d float64) float64 {
	if !(d > 0) {
		d = Epsilon
	}

	switch c.Kernel {
	case Uniform:
		if d <= c.Bandwidth {
			return 1
		}
		return 0

	case Linear:
		return math.Max(0, 1-d/c.Bandwidth)

	case InverseDistance:
		if c.Offset {
			return math.Min(maxWeight, 1/math.Pow(1+d, c.Power))
		}
		return math.Min(maxWeight, 1/math.Pow(d, c.Power))

	case Exponential:
		return errors.StabilizeExp(-d / c.Bandwidth)

	case Gaussian:
		r := d / c.Bandwidth
		return errors.StabilizeExp(-0.5 * r * r)
	}

	return 1
}

// String describes the configuration for logs.
func (c Config) String() string {
	switch c.Kernel {
	case InverseDistance:
		if c.Offset {
			return fmt.Sprintf("%s(power=%g, offset)", c.Kernel, c.Power)
		}
		return fmt.Sprintf("%s(power=%g)", c.Kernel, c.Power)
	case None:
		return string(c.Kernel)
	}
	return fmt.Sprintf("%s(bandwidth=%g)", c.Kernel, c.Bandwidth)
}
