package preprocessing

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/core/model"
	"github.com/cytoprof/cytoprof/core/parallel"
	"github.com/cytoprof/cytoprof/core/table"
	"github.com/cytoprof/cytoprof/pkg/errors"
	"github.com/cytoprof/cytoprof/pkg/log"
)

const (
	// MADNormalConstant makes the MAD a consistent estimator of the standard
	// deviation for normally distributed data.
	MADNormalConstant = 1.4826

	defaultMADEpsilon = 1e-18
	robustModelType   = "RobustMAD"
)

// RobustMAD は中央値と中央絶対偏差（MAD）による頑健なスケーリング
// 各列を (x - median) / (mad + epsilon) に変換する。NaN は統計量の計算から除外される
//
// 使用例:
//
//	r, err := preprocessing.NewRobustMAD()
//	if err != nil { ... }
//	scaled, err := r.FitTransform(X)
type RobustMAD struct {
	model.BaseEstimator

	epsilon   float64
	rawOutput bool

	median    []float64
	mad       []float64
	features  []string
	nFeatures int
}

var (
	_ model.Transformer    = (*RobustMAD)(nil)
	_ model.ParamsExporter = (*RobustMAD)(nil)
)

// NewRobustMAD は新しいRobustMADを作成する（デフォルト epsilon=1e-18）
func NewRobustMAD(opts ...RobustOption) (*RobustMAD, error) {
	r := &RobustMAD{epsilon: defaultMADEpsilon}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RobustMAD) validate() error {
	if r.epsilon < 0 || math.IsNaN(r.epsilon) || math.IsInf(r.epsilon, 0) {
		return errors.NewConfigurationError("epsilon", "must be a finite non-negative number", r.epsilon, "")
	}
	return nil
}

// Fit は各列の中央値とMADを計算する
// 有限値を一つも持たない列の統計量は NaN になる
func (r *RobustMAD) Fit(X mat.Matrix) error {
	r.Reset()
	r.median, r.mad, r.features, r.nFeatures = nil, nil, nil, 0

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("RobustMAD.Fit", "empty data", errors.ErrEmptyData)
	}
	features := table.ColumnsOf(X)

	median := make([]float64, d)
	mad := make([]float64, d)
	parallel.ForEachColumn(d, func(j int) {
		median[j], mad[j] = medianAbsDeviation(mat.Col(nil, j, X))
	})

	for j, m := range mad {
		if m == 0 {
			errors.Warn(errors.NewZeroSpreadWarning(robustModelType, table.ColumnName(features, j), r.epsilon))
		}
	}

	r.median = median
	r.mad = mad
	r.features = features
	r.nFeatures = d
	r.SetFitted()

	log.GetLoggerWithName("preprocessing.robust").Debug("robust scaler fitted",
		log.ModelNameKey, robustModelType,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.RegularizationKey, r.epsilon,
	)
	return nil
}

// medianAbsDeviation returns the NaN-omitting median of xs and the scaled
// median absolute deviation around it. xs is reordered.
func medianAbsDeviation(xs []float64) (med, mad float64) {
	xs = slices.DeleteFunc(xs, math.IsNaN)
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	med = median(xs)
	for i, v := range xs {
		xs[i] = math.Abs(v - med)
	}
	return med, MADNormalConstant * median(xs)
}

// median sorts xs in place and returns its middle value, averaging the two
// central values when len(xs) is even.
func median(xs []float64) float64 {
	slices.Sort(xs)
	m := len(xs) / 2
	if len(xs)%2 == 1 {
		return xs[m]
	}
	return (xs[m-1] + xs[m]) / 2
}

// Transform は学習済みの中央値とMADでデータをスケーリングする
//
// 学習時と入力の両方に列名がある場合、列は名前で対応付けられる（順序は問わない）。
// 出力の列順は入力と同じ。
func (r *RobustMAD) Transform(X mat.Matrix) (mat.Matrix, error) {
	const op = "RobustMAD.Transform"
	if err := r.CheckFitted(robustModelType, "Transform"); err != nil {
		return nil, err
	}

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if d != r.nFeatures {
		return nil, errors.NewShapeMismatchError(op, r.nFeatures, d, "")
	}

	names := table.ColumnsOf(X)
	lookup, err := r.alignColumns(op, names)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(n, d, nil)
	out.Apply(func(_, j int, v float64) float64 {
		k := lookup[j]
		return (v - r.median[k]) / (r.mad[k] + r.epsilon)
	}, X)

	log.GetLoggerWithName("preprocessing.robust").Debug("robust scaler applied",
		log.ModelNameKey, robustModelType,
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, n,
		log.FeaturesKey, d,
	)

	if names == nil || r.rawOutput {
		return out, nil
	}
	return table.New(names, out)
}

// alignColumns maps each query column to the index of its fitted statistics.
func (r *RobustMAD) alignColumns(op string, names []string) ([]int, error) {
	lookup := make([]int, r.nFeatures)
	if names == nil || r.features == nil {
		for j := range lookup {
			lookup[j] = j
		}
		return lookup, nil
	}

	fitted := make(map[string]int, len(r.features))
	for k, name := range r.features {
		fitted[name] = k
	}
	for j, name := range names {
		k, ok := fitted[name]
		if !ok {
			return nil, errors.NewShapeMismatchError(op, r.nFeatures, len(names), name)
		}
		lookup[j] = k
	}
	return lookup, nil
}

// FitTransform は学習と変換を同じ行列で行う
func (r *RobustMAD) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := r.Fit(X); err != nil {
		return nil, err
	}
	return r.Transform(X)
}

// Median returns a copy of the fitted per-column medians.
func (r *RobustMAD) Median() []float64 { return append([]float64(nil), r.median...) }

// MAD returns a copy of the fitted per-column scaled MADs.
func (r *RobustMAD) MAD() []float64 { return append([]float64(nil), r.mad...) }

// FeatureNames returns the column names seen by Fit, or nil for unlabeled input.
func (r *RobustMAD) FeatureNames() []string {
	if r.features == nil {
		return nil
	}
	return append([]string(nil), r.features...)
}

// GetParams はパラメータを取得する
func (r *RobustMAD) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"epsilon":    r.epsilon,
		"raw_output": r.rawOutput,
	}
}

// String は文字列表現を返す
func (r *RobustMAD) String() string {
	if !r.IsFitted() {
		return fmt.Sprintf("RobustMAD(epsilon=%g)", r.epsilon)
	}
	return fmt.Sprintf("RobustMAD(epsilon=%g, n_features=%d)", r.epsilon, r.nFeatures)
}

// ExportParams は学習済みパラメータをエクスポートする
// 全てが NaN の列があると、その統計量は NaN のままなので ToJSON は失敗する
func (r *RobustMAD) ExportParams() (*model.FittedParams, error) {
	if err := r.CheckFitted(robustModelType, "ExportParams"); err != nil {
		return nil, err
	}
	return &model.FittedParams{
		ModelType:       robustModelType,
		Version:         model.ParamsVersion,
		Features:        r.FeatureNames(),
		NFeatures:       r.nFeatures,
		Hyperparameters: r.GetParams(),
		Vectors: map[string][]float64{
			"median": r.Median(),
			"mad":    r.MAD(),
		},
	}, nil
}

// ImportParams はエクスポートされたパラメータから学習済みの状態を復元する
func (r *RobustMAD) ImportParams(p *model.FittedParams) error {
	if err := p.Validate(robustModelType); err != nil {
		return err
	}
	median, okMedian := p.Vectors["median"]
	mad, okMAD := p.Vectors["mad"]
	if !okMedian || !okMAD {
		return errors.NewValueError("RobustMAD.ImportParams", "median and mad vectors are required")
	}

	next := &RobustMAD{
		epsilon:   floatParam(p.Hyperparameters, "epsilon", defaultMADEpsilon),
		rawOutput: boolParam(p.Hyperparameters, "raw_output", false),
	}
	if err := next.validate(); err != nil {
		return err
	}
	next.median = append([]float64(nil), median...)
	next.mad = append([]float64(nil), mad...)
	if p.Features != nil {
		next.features = append([]string(nil), p.Features...)
	}
	next.nFeatures = p.NFeatures
	next.SetFitted()

	*r = *next
	return nil
}
