// Package log defines standard attribute keys for transformer operations.
//
// These keys follow a hierarchical naming convention (e.g., "model.name",
// "data.samples") to enable structured log analysis and filtering.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of transformer.
	// Examples: "Sphering", "RobustMAD", "StandardScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "transform", "fit_transform"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	ComponentKey = "ml.component"

	// MethodKey records the sphering variant ("PCA", "ZCA", "PCA-cor", "ZCA-cor").
	MethodKey = "model.method"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ColumnKey names a single column involved in the log record.
	ColumnKey = "data.column"
)

// Linear algebra diagnostics
const (
	// RankKey records the numerical rank of a matrix.
	RankKey = "linalg.rank"

	// ToleranceKey records the singular value threshold used for rank detection.
	ToleranceKey = "linalg.tolerance"

	// ConditionKey records the ratio of the largest to the smallest regularized singular value.
	ConditionKey = "linalg.condition"

	// ExtendedKey records how many singular values were filled in for zero-variance directions.
	ExtendedKey = "linalg.extended"
)

// Error and Warning Context
const (
	// ErrorKey holds the error value attached to a log record.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Automatically populated by the zerolog backend for cockroachdb errors.
	StacktraceKey = "error.stacktrace"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains transformer hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RegularizationKey records the epsilon added to singular values or MADs.
	RegularizationKey = "hyperparams.epsilon"
)

// Standard attribute value constants for common operations.
const (
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
)
