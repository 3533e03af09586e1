package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cytoprof/cytoprof/core/linalg"
	"github.com/cytoprof/cytoprof/core/model"
	"github.com/cytoprof/cytoprof/core/parallel"
	"github.com/cytoprof/cytoprof/pkg/errors"
)

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
// Sphering はこのスケーラーを中心化（WithStd=false）と "-cor" 系の標準化に使う
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Var は各特徴量の母分散（分母 n）。WithStd=false の場合は nil
	Var []float64

	// Scale は各特徴量の標準偏差（ゼロに近い場合は1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// WithMean は平均を引くかどうか (デフォルト: true)
	WithMean bool

	// WithStd は標準偏差で割るかどうか (デフォルト: true)
	WithStd bool
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// パラメータ:
//   - withMean: 平均を引くかどうか
//   - withStd: 標準偏差で割るかどうか
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	err := scaler.Fit(X)
//	XScaled, err := scaler.Transform(X)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault はデフォルト設定でStandardScalerを作成する
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit は訓練データから統計情報（平均、母分散）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	s.Reset()

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	mean := make([]float64, c)
	scale := make([]float64, c)
	var variance []float64
	if s.WithStd {
		variance = make([]float64, c)
	}

	// 列ごとに独立して計算する（各ゴルーチンは自分の列にのみ書き込む）
	parallel.ForEachColumn(c, func(j int) {
		col := mat.Col(nil, j, X)
		m, v := stat.PopMeanVariance(col, nil)

		if s.WithMean {
			mean[j] = m
		}
		scale[j] = 1.0
		if s.WithStd {
			variance[j] = v
			// 標準偏差が0に近い場合は1に設定（ゼロ除算を避ける）
			if sd := math.Sqrt(v); sd >= 10*linalg.MachineEpsilon {
				scale[j] = sd
			}
		}
	})

	s.NFeatures = c
	s.Mean = mean
	s.Var = variance
	s.Scale = scale
	s.SetFitted()
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	return s.transformDense(X, "StandardScaler.Transform")
}

func (s *StandardScaler) transformDense(X mat.Matrix, op string) (*mat.Dense, error) {
	if err := s.CheckFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewShapeMismatchError(op, s.NFeatures, c, "")
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)

	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.CheckFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewShapeMismatchError("StandardScaler.InverseTransform", s.NFeatures, c, "")
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return v*s.Scale[j] + s.Mean[j]
	}, X)

	return result, nil
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"with_mean": s.WithMean,
		"with_std":  s.WithStd,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}

// restore rebuilds a fitted scaler from exported statistics.
func (s *StandardScaler) restore(mean, variance []float64) {
	s.NFeatures = len(mean)
	s.Mean = append([]float64(nil), mean...)
	s.Scale = make([]float64, len(mean))
	for j := range s.Scale {
		s.Scale[j] = 1.0
	}
	if variance != nil {
		s.Var = append([]float64(nil), variance...)
		for j, v := range variance {
			if sd := math.Sqrt(v); sd >= 10*linalg.MachineEpsilon {
				s.Scale[j] = sd
			}
		}
	}
	s.SetFitted()
}
