// Package log defines standard attribute keys for dataset and comparison operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so runs can be filtered in log analysis.

package log

// Model and Operation Context
const (
	// ModelNameKey is the name a model was registered under in a comparison.
	ModelNameKey = "model.name"

	// ModelTypeKey is the Go type of a registered model, e.g. "*linear_model.LogisticRegression".
	ModelTypeKey = "model.type"

	// EstimatorIDKey is a per-registration UUID, unique even when names are reused.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "predict_proba", "score", "load", "fill_na"
	OperationKey = "ml.operation"

	// ComponentKey identifies the package performing the operation.
	// Examples: "dataset", "compare", "transform"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the comparison.
	// Examples: "training", "testing", "cross_validation"
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of encoded feature columns.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names touched by an operation.
	ColumnsKey = "data.columns"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// ClassesKey is the number of target classes.
	ClassesKey = "data.classes"

	// SourceKey is the path or query a dataset was loaded from.
	SourceKey = "data.source"

	// FoldKey is the current cross-validation fold.
	FoldKey = "cv.fold"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// MetricKey names the metric being reported, e.g. "Accuracy".
	MetricKey = "metrics.name"

	// MetricValueKey is the value of the metric named by MetricKey.
	MetricValueKey = "metrics.value"

	// AccuracyKey records model accuracy.
	AccuracyKey = "metrics.accuracy"

	// WorkersKey records the number of parallel workers used.
	WorkersKey = "perf.workers"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"

	// ThresholdKey records decision cutoffs used for classification.
	ThresholdKey = "preds.threshold"

	// CacheHitKey reports whether predictions were served from cache.
	CacheHitKey = "preds.cache_hit"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationScore        = "score"
	OperationTransform    = "transform"
	OperationLoad         = "load"
	OperationFillNA       = "fill_na"
	OperationSample       = "sample"

	PhaseTraining        = "training"
	PhaseTesting         = "testing"
	PhaseCrossValidation = "cross_validation"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorMissingValue      = "MISSING_VALUE"
	ErrorModelPanic        = "MODEL_PANIC"
)
