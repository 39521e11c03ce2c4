// Package errors provides the error taxonomy and warning system used across gwr.
//
// Configuration and construction errors abort a run before any computation.
// Fit errors are local to one target location and are recovered by the driver,
// which writes no-data for that location. Cancellation is reported with
// ErrCancelled and is neither success nor failure.
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Global warning handling
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		log.Printf("GWR-Warning: %v\n", w)
	}
	// set by pkg/log to avoid an import cycle
	zerologWarnFunc func(warning error)
)

// SetWarningHandler replaces the package-wide warning handler.
//
// Example:
//
//	errors.SetWarningHandler(func(w error) {
//	    // ignore warnings
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc installs a structured warning sink. It takes precedence
// over the plain handler.
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn emits a warning through the structured sink if one is installed,
// otherwise through the plain handler.
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}
	if warningHandler != nil {
		warningHandler(w)
	}
}

// UndefinedMetricWarning is raised when a metric cannot be computed and a
// conventional value is returned instead.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// MarshalZerologObject adds the warning fields to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Float64("result", w.Result).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// NotFittedError is returned when a model is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("gwr: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// DimensionError reports a shape mismatch.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/predictors
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("gwr: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, axisName(e.Axis), e.Expected, e.Got)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName(e.Axis)).
		Str("type", "DimensionError")
}

func axisName(axis int) string {
	if axis == 0 {
		return "rows"
	}
	return "predictors"
}

// NewDimensionError creates a DimensionError with a stack trace.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValidationError is a configuration error: a parameter failed validation.
// It always aborts the run before any computation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gwr: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace.
func NewValidationError(param, reason string, value interface{}) error {
	return errors.WithStack(&ValidationError{ParamName: param, Reason: reason, Value: value})
}

// ValueError reports an inappropriate argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("gwr: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// ConstructionError is returned when a run-wide structure, such as the
// spatial index, cannot be built.
type ConstructionError struct {
	Component string
	Reason    string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("gwr: cannot construct %s: %s", e.Component, e.Reason)
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *ConstructionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("component", e.Component).
		Str("reason", e.Reason).
		Str("type", "ConstructionError")
}

// NewConstructionError creates a ConstructionError with a stack trace.
func NewConstructionError(component, reason string) error {
	return errors.WithStack(&ConstructionError{Component: component, Reason: reason})
}

// FitError is a local model failure at one target location.
type FitError struct {
	Op   string
	Kind string
	Err  error
}

// Error omits the wrapped error when its text repeats Kind.
func (e *FitError) Error() string {
	if e.Err != nil && e.Err.Error() != e.Kind {
		return fmt.Sprintf("gwr: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("gwr: %s: %s", e.Op, e.Kind)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the error fields to a zerolog event.
func (e *FitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("kind", e.Kind).
		Str("type", "FitError")
}

// NewFitError creates a FitError wrapping one of the Err* sentinels.
func NewFitError(op, kind string, err error) error {
	return errors.WithStack(&FitError{Op: op, Kind: kind, Err: err})
}

// ModelError is a general model failure outside a single location fit.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gwr: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("gwr: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError creates a ModelError with a stack trace.
func NewModelError(op, kind string, err error) error {
	return errors.WithStack(&ModelError{Op: op, Kind: kind, Err: err})
}

// NumericalInstabilityError reports NaN or Inf values in a computation.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
	Index     int
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("gwr: numerical instability detected in %s at index %d. Values: [%s]",
		e.Operation, e.Index, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, index int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Index:     index,
	})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates an error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when an input set has no usable records.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is returned when the design does not determine the coefficients.
	ErrSingularMatrix = New("singular matrix")

	// ErrInsufficientSamples is returned when fewer samples than parameters are available.
	ErrInsufficientSamples = New("insufficient samples")

	// ErrNonFinite is returned when a dependent or predictor value is NaN or Inf.
	ErrNonFinite = New("non-finite value")

	// ErrZeroWeight is returned when the weights of all samples sum to zero.
	ErrZeroWeight = New("zero total weight")

	// ErrCancelled is returned when a run is stopped before every location was visited.
	// Output written so far is left in place but must not be treated as complete.
	ErrCancelled = New("run cancelled")
)
