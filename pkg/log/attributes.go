// Package log defines standard attribute keys for gwr operations.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that records from the driver, the solver and the CLI can be filtered
// the same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the model type.
	// Examples: "GWR", "LinearRegression"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "gwr", "spatial", "cli"
	ComponentKey = "ml.component"
)

// Data Shape
const (
	// SamplesKey is the number of reference points (rows) used.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of predictors.
	FeaturesKey = "data.features"

	// SkippedKey is the number of input records discarded as no-data.
	SkippedKey = "data.skipped"
)

// Performance and quality
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey records the number of parallel workers.
	WorkersKey = "perf.workers"

	// R2ScoreKey records R² for regression summaries.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records the root mean squared residual.
	RMSEKey = "metrics.rmse"
)

// GWR run context
const (
	// KernelKey is the distance-weighting kernel.
	KernelKey = "gwr.kernel"

	// BandwidthKey is the kernel bandwidth.
	BandwidthKey = "gwr.bandwidth"

	// SearchModeKey is "global" or "local".
	SearchModeKey = "gwr.search_mode"

	// DirectionKey is "all" or "quadrant".
	DirectionKey = "gwr.direction"

	// LocationsKey is the number of target locations in a run.
	LocationsKey = "gwr.locations"

	// ProducedKey is the number of locations with a fitted model.
	ProducedKey = "gwr.produced"

	// NoDataKey is the number of locations written as no-data.
	NoDataKey = "gwr.nodata"

	// RowKey is the raster row at which something happened.
	RowKey = "gwr.row"

	// OutputKey names an output grid or file.
	OutputKey = "gwr.output"
)

// Error context
const (
	// ErrorCodeKey provides a structured error code.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationInitialize = "initialize"
	OperationEvaluate   = "evaluate"
	OperationFinalize   = "finalize"
	OperationFit        = "fit"
	OperationResiduals  = "residuals"

	ErrorInvalidConfig  = "INVALID_CONFIG"
	ErrorConstruction   = "CONSTRUCTION_FAILURE"
	ErrorCancelled      = "CANCELLED"
	ErrorSingularMatrix = "SINGULAR_MATRIX"
)
