package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/core/linalg"
	"github.com/cytoprof/cytoprof/core/model"
	"github.com/cytoprof/cytoprof/core/table"
	"github.com/cytoprof/cytoprof/pkg/errors"
	"github.com/cytoprof/cytoprof/pkg/log"
)

// Method は白色化の方式
type Method int

const (
	// PCA は主成分の軸へ回転してから各軸を単位分散にする
	PCA Method = iota + 1
	// ZCA はPCA白色化の後に元の軸へ戻す（入力に最も近い白色化）
	ZCA
	// PCACor は標準化した行列（相関行列）に対するPCA白色化
	PCACor
	// ZCACor は標準化した行列（相関行列）に対するZCA白色化
	ZCACor
)

// DefaultMethod is used by NewSpheringDefault.
const DefaultMethod = ZCA

const (
	defaultSpheringEpsilon = 1e-6
	spheringModelType      = "Sphering"
)

var methodNames = map[Method]string{
	PCA:    "PCA",
	ZCA:    "ZCA",
	PCACor: "PCA-cor",
	ZCACor: "ZCA-cor",
}

// ParseMethod maps "PCA", "ZCA", "PCA-cor" and "ZCA-cor" onto a Method.
func ParseMethod(name string) (Method, error) {
	for m, s := range methodNames {
		if s == name {
			return m, nil
		}
	}
	return 0, errors.NewConfigurationError("method", "unknown sphering method", name,
		`use one of "PCA", "ZCA", "PCA-cor", "ZCA-cor"`)
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Valid reports whether m is one of the four methods.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// Correlation reports whether the method standardizes columns before the decomposition.
func (m Method) Correlation() bool {
	return m == PCACor || m == ZCACor
}

// Rotates reports whether the whitened data is rotated back onto the input axes.
func (m Method) Rotates() bool {
	return m == ZCA || m == ZCACor
}

// Sphering は参照行列から白色化（球面化）変換を学習する
//
// 学習後の射影行列 W (d×d) を使い、Transform は X′·W を返す。
// X′ は学習時の平均（"-cor" 系では平均と標準偏差）で変換した入力。
// 参照行列の数値ランクは特徴量数 d か サンプル数-1 のどちらかでなければならない。
//
// 使用例:
//
//	s, err := preprocessing.NewSphering(preprocessing.ZCA, preprocessing.WithEpsilon(1e-6))
//	if err != nil { ... }
//	if err := s.Fit(controls); err != nil { ... }
//	whitened, err := s.Transform(profiles)
type Sphering struct {
	model.BaseEstimator

	method    Method
	epsilon   float64
	center    bool
	rawOutput bool
	rankTol   float64

	// 学習結果
	scaler     *StandardScaler
	projection *mat.Dense
	values     []float64
	rank       int
	features   []string
	nFeatures  int
}

var (
	_ model.Transformer    = (*Sphering)(nil)
	_ model.ParamsExporter = (*Sphering)(nil)
)

// NewSphering は設定を検証して新しいSpheringを作成する
//
// デフォルト: epsilon=1e-6, center=true, 生の行列ではなくラベル付きの出力
func NewSphering(method Method, opts ...SpheringOption) (*Sphering, error) {
	s := &Sphering{
		method:  method,
		epsilon: defaultSpheringEpsilon,
		center:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSpheringDefault はZCAとデフォルト設定でSpheringを作成する
func NewSpheringDefault() *Sphering {
	s, _ := NewSphering(DefaultMethod)
	return s
}

func (s *Sphering) validate() error {
	if !s.method.Valid() {
		return errors.NewConfigurationError("method", "unknown sphering method", s.method,
			"use PCA, ZCA, PCACor or ZCACor")
	}
	if s.method.Correlation() && !s.center {
		return errors.NewConfigurationError("center", s.method.String()+" requires centered data", s.center,
			"drop WithCenter(false) or use PCA/ZCA")
	}
	if s.epsilon < 0 || math.IsNaN(s.epsilon) || math.IsInf(s.epsilon, 0) {
		return errors.NewConfigurationError("epsilon", "must be a finite non-negative number", s.epsilon, "")
	}
	if s.rankTol < 0 || math.IsNaN(s.rankTol) || math.IsInf(s.rankTol, 0) {
		return errors.NewConfigurationError("rank_tolerance", "must be a finite non-negative number", s.rankTol,
			"use 0 for the default tolerance")
	}
	return nil
}

func (s *Sphering) clear() {
	s.Reset()
	s.scaler = nil
	s.projection = nil
	s.values = nil
	s.rank = 0
	s.features = nil
	s.nFeatures = 0
}

// Fit は参照行列（通常は陰性対照のプロファイル）から射影行列を学習する
// 失敗した場合、インスタンスは未学習の状態に戻る
func (s *Sphering) Fit(X mat.Matrix) (err error) {
	const op = "Sphering.Fit"
	defer errors.Recover(&err, op)

	s.clear()

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if n < 2 {
		return errors.NewValueError(op, "at least two samples are required to estimate a covariance")
	}
	if err := errors.CheckMatrix(op, X, n, d); err != nil {
		return err
	}
	features := table.ColumnsOf(X)

	// 中心化 / 標準化
	var scaler *StandardScaler
	switch {
	case s.method.Correlation():
		scaler = NewStandardScaler(true, true)
	case s.center:
		scaler = NewStandardScaler(true, false)
	}

	var xc mat.Matrix = X
	if scaler != nil {
		if err := scaler.Fit(X); err != nil {
			return err
		}
		if scaler.WithStd {
			if zero := zeroVarianceColumns(scaler.Var, features); len(zero) > 0 {
				return errors.NewDegenerateInputError(op, zero)
			}
		}
		if xc, err = scaler.transformDense(X, op); err != nil {
			return err
		}
	}

	dec, err := linalg.SVD(xc)
	if err != nil {
		return err
	}

	tol := dec.Tolerance(s.rankTol)
	rank := dec.Rank(tol)

	if rank != d && rank != n-1 {
		return errors.NewRankDeficiencyError(op, rank, n, d,
			"rank must equal the number of features or the number of samples minus one")
	}
	if s.method.Rotates() && rank != d {
		return errors.NewRankDeficiencyError(op, rank, n, d,
			s.method.String()+" requires full column rank")
	}

	sigma := dec.Values
	if n <= d {
		if len(sigma) != n {
			panic(errors.AssertionFailedf("%s: got %d singular values for %d samples", op, len(sigma), n))
		}
		sigma = extendSpectrum(sigma, rank, d)
	} else {
		sigma = append([]float64(nil), sigma...)
	}
	for i := range sigma {
		sigma[i] += s.epsilon
	}

	// W = V · diag(1/Σ) · sqrt(n-1)
	w := mat.DenseCopyOf(dec.V)
	dof := math.Sqrt(float64(n - 1))
	w.Apply(func(_, j int, v float64) float64 {
		return v / sigma[j] * dof
	}, w)

	if s.method.Rotates() {
		var zca mat.Dense
		zca.Mul(w, dec.VT())
		w = &zca
	}

	if r, c := w.Dims(); r != d || c != d {
		panic(errors.AssertionFailedf("%s: projection is %dx%d, want %dx%d", op, r, c, d, d))
	}

	s.scaler = scaler
	s.projection = w
	s.values = sigma
	s.rank = rank
	s.features = features
	s.nFeatures = d
	s.SetFitted()

	extended := 0
	if n <= d {
		extended = d - rank
	}
	log.GetLoggerWithName("preprocessing.sphering").Debug("sphering fitted",
		log.ModelNameKey, spheringModelType,
		log.MethodKey, s.method.String(),
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.RankKey, rank,
		log.ToleranceKey, tol,
		log.ExtendedKey, extended,
		log.RegularizationKey, s.epsilon,
		log.ConditionKey, floats.Max(sigma)/floats.Min(sigma),
	)
	return nil
}

// extendSpectrum keeps the first rank values and repeats the last of them up to length d.
func extendSpectrum(values []float64, rank, d int) []float64 {
	out := make([]float64, d)
	copy(out, values[:rank])
	for i := rank; i < d; i++ {
		out[i] = values[rank-1]
	}
	return out
}

func zeroVarianceColumns(variance []float64, features []string) []string {
	var cols []string
	for j, v := range variance {
		if v == 0 {
			cols = append(cols, table.ColumnName(features, j))
		}
	}
	return cols
}

// Transform は学習時の中心化・標準化を再適用し、射影行列を掛ける
//
// 入力が *table.Table で WithRawOutput(true) でなければ、結果も *table.Table になる。
// 列名は PCA 系では PC1..PCd、ZCA 系では入力の列名。
func (s *Sphering) Transform(X mat.Matrix) (mat.Matrix, error) {
	const op = "Sphering.Transform"
	if err := s.CheckFitted(spheringModelType, "Transform"); err != nil {
		return nil, err
	}

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	names := table.ColumnsOf(X)
	if err := checkColumns(op, s.nFeatures, s.features, d, names); err != nil {
		return nil, err
	}

	var xc mat.Matrix = X
	if s.scaler != nil {
		var err error
		if xc, err = s.scaler.transformDense(X, op); err != nil {
			return nil, err
		}
	}

	out := mat.NewDense(n, d, nil)
	out.Mul(xc, s.projection)

	log.GetLoggerWithName("preprocessing.sphering").Debug("sphering applied",
		log.MethodKey, s.method.String(),
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, n,
		log.FeaturesKey, d,
	)

	if names == nil || s.rawOutput {
		return out, nil
	}
	labels := names
	if !s.method.Rotates() {
		labels = table.Ordinal("PC", d)
	}
	return table.New(labels, out)
}

// FitTransform は学習と変換を同じ行列で行う
func (s *Sphering) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// checkColumns enforces the column contract shared by the transformers: the
// count must match, and when both sides are labeled the names must match in order.
func checkColumns(op string, fitted int, fittedNames []string, got int, names []string) error {
	if got != fitted {
		return errors.NewShapeMismatchError(op, fitted, got, "")
	}
	if names == nil || fittedNames == nil {
		return nil
	}
	for j := range names {
		if names[j] != fittedNames[j] {
			return errors.NewShapeMismatchError(op, fitted, got, names[j])
		}
	}
	return nil
}


// Method returns the configured whitening method.
func (s *Sphering) Method() Method { return s.method }

// Projection returns a copy of W, or nil before Fit.
func (s *Sphering) Projection() *mat.Dense {
	if s.projection == nil {
		return nil
	}
	return mat.DenseCopyOf(s.projection)
}

// SingularValues returns the d singular values used to build W, after
// extension and the epsilon shift.
func (s *Sphering) SingularValues() []float64 {
	return append([]float64(nil), s.values...)
}

// Rank returns the numerical rank of the reference matrix seen by Fit.
func (s *Sphering) Rank() int { return s.rank }

// Mean returns the fitted column means, or nil when the data was not centered.
func (s *Sphering) Mean() []float64 {
	if s.scaler == nil {
		return nil
	}
	return append([]float64(nil), s.scaler.Mean...)
}

// Variance returns the fitted population variances for the -cor methods, otherwise nil.
func (s *Sphering) Variance() []float64 {
	if s.scaler == nil || s.scaler.Var == nil {
		return nil
	}
	return append([]float64(nil), s.scaler.Var...)
}

// FeatureNames returns the column names seen by Fit, or nil for unlabeled input.
func (s *Sphering) FeatureNames() []string {
	if s.features == nil {
		return nil
	}
	return append([]string(nil), s.features...)
}

// GetParams はパラメータを取得する
func (s *Sphering) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"method":         s.method.String(),
		"epsilon":        s.epsilon,
		"center":         s.center,
		"raw_output":     s.rawOutput,
		"rank_tolerance": s.rankTol,
	}
}

// String は文字列表現を返す
func (s *Sphering) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("Sphering(method=%s, epsilon=%g, center=%t)", s.method, s.epsilon, s.center)
	}
	return fmt.Sprintf("Sphering(method=%s, epsilon=%g, center=%t, n_features=%d, rank=%d)",
		s.method, s.epsilon, s.center, s.nFeatures, s.rank)
}

// ExportParams は学習済みパラメータをエクスポートする
func (s *Sphering) ExportParams() (*model.FittedParams, error) {
	if err := s.CheckFitted(spheringModelType, "ExportParams"); err != nil {
		return nil, err
	}

	p := &model.FittedParams{
		ModelType:       spheringModelType,
		Version:         model.ParamsVersion,
		Features:        s.FeatureNames(),
		NFeatures:       s.nFeatures,
		Hyperparameters: s.GetParams(),
		Vectors: map[string][]float64{
			"singular_values": s.SingularValues(),
		},
		Matrices: map[string]*model.MatrixParams{
			"projection": model.NewMatrixParams(s.projection),
		},
		Metadata: map[string]interface{}{
			"rank": s.rank,
		},
	}
	if mean := s.Mean(); mean != nil {
		p.Vectors["mean"] = mean
	}
	if variance := s.Variance(); variance != nil {
		p.Vectors["variance"] = variance
	}
	return p, nil
}

// ImportParams はエクスポートされたパラメータから学習済みの状態を復元する
// 設定（method, epsilon など）もパラメータの値で置き換えられる
func (s *Sphering) ImportParams(p *model.FittedParams) error {
	const op = "Sphering.ImportParams"
	if err := p.Validate(spheringModelType); err != nil {
		return err
	}

	name, _ := p.Hyperparameters["method"].(string)
	method, err := ParseMethod(name)
	if err != nil {
		return err
	}
	next := &Sphering{
		method:    method,
		epsilon:   floatParam(p.Hyperparameters, "epsilon", defaultSpheringEpsilon),
		center:    boolParam(p.Hyperparameters, "center", true),
		rawOutput: boolParam(p.Hyperparameters, "raw_output", false),
		rankTol:   floatParam(p.Hyperparameters, "rank_tolerance", 0),
	}
	if err := next.validate(); err != nil {
		return err
	}

	d := p.NFeatures
	proj, ok := p.Matrices["projection"]
	if !ok || proj.Rows != d || proj.Cols != d {
		return errors.NewValueError(op, fmt.Sprintf("projection must be a %dx%d matrix", d, d))
	}
	mean, hasMean := p.Vectors["mean"]
	variance, hasVar := p.Vectors["variance"]
	if (next.center || method.Correlation()) && !hasMean {
		return errors.NewValueError(op, "centered sphering requires a mean vector")
	}
	if method.Correlation() && !hasVar {
		return errors.NewValueError(op, method.String()+" requires a variance vector")
	}
	if hasMean {
		next.scaler = NewStandardScaler(true, hasVar)
		next.scaler.restore(mean, variance)
	}

	next.projection = proj.Dense()
	next.values = append([]float64(nil), p.Vectors["singular_values"]...)
	next.rank = int(floatParam(p.Metadata, "rank", float64(d)))
	if p.Features != nil {
		next.features = append([]string(nil), p.Features...)
	}
	next.nFeatures = d
	next.SetFitted()

	*s = *next
	return nil
}

// floatParam reads a number that may have been decoded from JSON as float64.
func floatParam(m map[string]interface{}, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func boolParam(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
