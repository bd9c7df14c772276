// Standard attribute keys for pipeline log records.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that records from different stages can be filtered
// the same way.

package log

// Model and operation context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "RandomForestClassifier", "StandardScaler", "LinearRegression"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a specific estimator instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// StageKey names the pipeline stage: preprocess, explore, model, visualize, regress.
	StageKey = "pipeline.stage"

	// RunIDKey carries the per-invocation run identifier.
	RunIDKey = "pipeline.run_id"

	// TreesKey, NodesKey and DepthKey describe a fitted forest.
	TreesKey = "model.trees"
	NodesKey = "model.nodes"
	DepthKey = "model.max_depth"
)

// Data shape and provenance
const (
	// SamplesKey indicates the number of rows.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ColumnsKey lists column names.
	ColumnsKey = "data.columns"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// DroppedKey counts rows removed during cleaning.
	DroppedKey = "data.dropped"

	// PathKey is a file path read or written by a stage.
	PathKey = "io.path"

	// FormatKey is an output format chosen by file extension.
	FormatKey = "io.format"
)

// Performance and evaluation
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy in [0, 1].
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records the coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// MSEKey records mean squared error.
	MSEKey = "metrics.mse"

	// AUCKey records ROC AUC for binary classification.
	AUCKey = "metrics.auc"

	// LogLossKey records binary cross-entropy on the test split.
	LogLossKey = "metrics.log_loss"
)

// Error context
const (
	// ErrorKey holds the error message.
	ErrorKey = "error"

	// WarningKey holds the message of a routed warning.
	WarningKey = "warning"

	// DetailSuffix is appended to an error or warning key for the structured
	// fields of a typed error, e.g. "error.detail".
	DetailSuffix = ".detail"

	// StacktraceKey contains stack trace information extracted from cockroachdb/errors.
	StacktraceKey = "error.stacktrace"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Configuration
const (
	// HyperParamsKey contains estimator hyperparameters.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
)
