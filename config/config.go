// Package config loads the YAML run configuration of the gwr command and
// turns it into a gwr.Config.
//
// Values are read from the file given to Load and may be overridden by
// environment variables prefixed with GWR_, with dots replaced by
// underscores (GWR_SEARCH_RADIUS, GWR_WEIGHTING_KERNEL). Lists such as
// predictors accept a comma separated string in the environment.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/gwr/dataset"
	"github.com/YuminosukeSato/gwr/gwr"
	"github.com/YuminosukeSato/gwr/pkg/errors"
	"github.com/YuminosukeSato/gwr/spatial"
	"github.com/YuminosukeSato/gwr/weighting"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "GWR"

// Config is the content of a configuration file.
type Config struct {
	Dependent  string   `mapstructure:"dependent" yaml:"dependent" validate:"required"`
	Predictors []string `mapstructure:"predictors" yaml:"predictors" validate:"required,min=1,unique,dive,required"`

	Weighting WeightingConfig `mapstructure:"weighting" yaml:"weighting"`
	Search    SearchConfig    `mapstructure:"search" yaml:"search"`
	Target    TargetConfig    `mapstructure:"target" yaml:"target"`
	Input     InputConfig     `mapstructure:"input" yaml:"input"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`

	// Workers is the number of goroutines per row, 0 for one per CPU.
	Workers  int    `mapstructure:"workers" yaml:"workers" validate:"gte=0"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

type WeightingConfig struct {
	Kernel    string  `mapstructure:"kernel" yaml:"kernel" validate:"required"`
	Bandwidth float64 `mapstructure:"bandwidth" yaml:"bandwidth" validate:"gte=0"`
	Power     float64 `mapstructure:"power" yaml:"power" validate:"gte=0"`
	Offset    bool    `mapstructure:"offset" yaml:"offset"`
}

type SearchConfig struct {
	// Radius of the neighborhood, 0 for unbounded.
	Radius    float64 `mapstructure:"radius" yaml:"radius" validate:"gte=0"`
	MaxPoints int     `mapstructure:"max_points" yaml:"max_points" validate:"gte=0"`
	MinPoints int     `mapstructure:"min_points" yaml:"min_points" validate:"gte=0"`
	Direction string  `mapstructure:"direction" yaml:"direction" validate:"omitempty,oneof=all quadrant quadrants"`
}

// TargetConfig describes the output raster. A zero extent means the
// bounding box of the reference points.
type TargetConfig struct {
	CellSize float64 `mapstructure:"cell_size" yaml:"cell_size" validate:"gte=0"`
	Extent   Extent  `mapstructure:"extent" yaml:"extent"`
}

type Extent struct {
	XMin float64 `mapstructure:"xmin" yaml:"xmin"`
	YMin float64 `mapstructure:"ymin" yaml:"ymin"`
	XMax float64 `mapstructure:"xmax" yaml:"xmax"`
	YMax float64 `mapstructure:"ymax" yaml:"ymax"`
}

// IsZero reports whether no extent was configured.
func (e Extent) IsZero() bool {
	return e == Extent{}
}

// Bound returns the extent as a bounding box.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.XMin, e.YMin}, Max: orb.Point{e.XMax, e.YMax}}
}

type InputConfig struct {
	// Points is the CSV file of reference points.
	Points string   `mapstructure:"points" yaml:"points" validate:"required"`
	X      string   `mapstructure:"x" yaml:"x" validate:"required"`
	Y      string   `mapstructure:"y" yaml:"y" validate:"required"`
	NoData []string `mapstructure:"nodata" yaml:"nodata"`
	// Grids supplies predictors as ESRI ASCII rasters.
	Grids         []GridInput `mapstructure:"grids" yaml:"grids,omitempty" validate:"dive"`
	Interpolation string      `mapstructure:"interpolation" yaml:"interpolation" validate:"omitempty,oneof=nearest bilinear idw bicubic bspline"`
}

// GridInput binds a predictor to a raster file.
type GridInput struct {
	Predictor string `mapstructure:"predictor" yaml:"predictor" validate:"required"`
	Path      string `mapstructure:"path" yaml:"path" validate:"required"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
	// Plot also renders every output grid as a PNG heat map.
	Plot   bool    `mapstructure:"plot" yaml:"plot"`
	NoData float64 `mapstructure:"nodata" yaml:"nodata"`
}

// Default returns the configuration every file is merged onto. Dependent,
// Predictors and Input.Points have no default.
func Default() *Config {
	return &Config{
		Weighting: WeightingConfig{Kernel: string(weighting.Gaussian), Bandwidth: 1, Power: 2},
		Search:    SearchConfig{Direction: spatial.All.String()},
		Input: InputConfig{
			X:             "x",
			Y:             "y",
			NoData:        []string{"NA"},
			Interpolation: dataset.BSpline.String(),
		},
		Output:   OutputConfig{Dir: "output", NoData: dataset.DefaultNoData},
		Workers:  0,
		LogLevel: "info",
	}
}

// Load reads a configuration file and applies environment overrides on top
// of Default. An empty path reads the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every leaf of cfg under its dotted key so that
// AutomaticEnv can see keys absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) error {
	var m map[string]interface{}
	if err := mapstructure.Decode(*cfg, &m); err != nil {
		return errors.Wrap(err, "failed to encode default config")
	}
	var walk func(prefix string, m map[string]interface{})
	walk = func(prefix string, m map[string]interface{}) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]interface{}); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", m)
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the target extent. Names in the
// returned ValidationError are dotted configuration keys.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewValidationError(keyOf(fe.Namespace()), "failed on '"+fe.Tag()+"' rule", fe.Value())
		}
		return errors.Wrap(err, "invalid config")
	}
	if e := c.Target.Extent; !e.IsZero() && (e.XMax <= e.XMin || e.YMax <= e.YMin) {
		return errors.NewValidationError("target.extent", "max must exceed min", e)
	}
	for _, g := range c.Input.Grids {
		if !lo.Contains(c.Predictors, g.Predictor) {
			return errors.NewValidationError("input.grids", "grid for unselected predictor", g.Predictor)
		}
	}
	return nil
}

// keyOf strips the struct name from a validator namespace.
func keyOf(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Save writes cfg as YAML, creating the parent directory.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

// CSVOptions returns the reader options for Input.Points.
func (c *Config) CSVOptions() dataset.CSVOptions {
	return dataset.CSVOptions{X: c.Input.X, Y: c.Input.Y, NoData: c.Input.NoData}
}

// LoadGrids reads the predictor rasters listed under input.grids. Relative
// paths are resolved against base.
func (c *Config) LoadGrids(base string) (map[string]dataset.Grid, error) {
	if len(c.Input.Grids) == 0 {
		return nil, nil
	}
	grids := make(map[string]dataset.Grid, len(c.Input.Grids))
	for _, in := range c.Input.Grids {
		path := in.Path
		if !filepath.IsAbs(path) && base != "" {
			path = filepath.Join(base, path)
		}
		g, err := dataset.ReadASCIIGridFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load grid for predictor %s", in.Predictor)
		}
		grids[in.Predictor] = g
	}
	return grids, nil
}

// DriverConfig converts the file settings into a gwr.Config. grids may be
// nil.
func (c *Config) DriverConfig(grids map[string]dataset.Grid) (gwr.Config, error) {
	kernel, err := weighting.ParseKernel(c.Weighting.Kernel)
	if err != nil {
		return gwr.Config{}, err
	}
	direction, err := spatial.ParseDirection(c.Search.Direction)
	if err != nil {
		return gwr.Config{}, err
	}
	interp, err := dataset.ParseInterpolation(c.Input.Interpolation)
	if err != nil {
		return gwr.Config{}, err
	}

	cfg := gwr.DefaultConfig()
	cfg.Dependent = c.Dependent
	cfg.Predictors = append([]string(nil), c.Predictors...)
	cfg.PredictorGrids = grids
	cfg.Interpolation = interp
	cfg.Weighting = weighting.Config{
		Kernel:    kernel,
		Bandwidth: c.Weighting.Bandwidth,
		Power:     c.Weighting.Power,
		Offset:    c.Weighting.Offset,
	}
	cfg.Search = gwr.Search{
		Radius:    c.Search.Radius,
		MaxCount:  c.Search.MaxPoints,
		MinCount:  c.Search.MinPoints,
		Direction: direction,
	}
	cfg.Workers = c.Workers
	return cfg, nil
}

// GridSystem builds the output raster. data is used when no extent is
// configured.
func (c *Config) GridSystem(data orb.Bound) (dataset.GridSystem, error) {
	if !(c.Target.CellSize > 0) {
		return dataset.GridSystem{}, errors.NewValidationError("target.cell_size", "must be positive", c.Target.CellSize)
	}
	extent := data
	if !c.Target.Extent.IsZero() {
		extent = c.Target.Extent.Bound()
	}
	return dataset.NewGridSystem(extent, c.Target.CellSize)
}
