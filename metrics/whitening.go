// Package metrics は白色化の結果を検証するための診断指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

// Covariance は列間の標本共分散行列（分母 n-1）を計算する
func Covariance(X mat.Matrix) (*mat.SymDense, error) {
	n, d := X.Dims()
	if n < 2 || d == 0 {
		return nil, errors.NewValueError("Covariance", "need at least two rows and one column")
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, X, nil)
	return &cov, nil
}

// IdentityDeviation は共分散行列と単位行列の要素ごとの差の最大絶対値を返す
// 完全に白色化されたデータでは0に近くなる
func IdentityDeviation(cov mat.Symmetric) float64 {
	d := cov.SymmetricDim()
	var worst float64
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			worst = math.Max(worst, math.Abs(cov.At(i, j)-want))
		}
	}
	return worst
}

// MaxOffDiagonal は非対角要素の最大絶対値を返す
func MaxOffDiagonal(cov mat.Symmetric) float64 {
	d := cov.SymmetricDim()
	var worst float64
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			worst = math.Max(worst, math.Abs(cov.At(i, j)))
		}
	}
	return worst
}

// ColumnCorrelations は a と b の同じ位置の列どうしのピアソン相関を返す
// ZCA 白色化では各出力列が対応する入力列と最も強く相関する
func ColumnCorrelations(a, b mat.Matrix) ([]float64, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra < 2 || ca == 0 {
		return nil, errors.NewValueError("ColumnCorrelations", "need at least two rows and one column")
	}
	if ra != rb {
		return nil, errors.NewValueError("ColumnCorrelations", "row counts differ")
	}
	if ca != cb {
		return nil, errors.NewShapeMismatchError("ColumnCorrelations", ca, cb, "")
	}

	corr := make([]float64, ca)
	for j := range corr {
		corr[j] = stat.Correlation(mat.Col(nil, j, a), mat.Col(nil, j, b), nil)
	}
	return corr, nil
}

// CrossCorrelations は a の列 i と b の列 j の相関を (i, j) 要素に持つ行列を返す
func CrossCorrelations(a, b mat.Matrix) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra < 2 || ca == 0 || cb == 0 {
		return nil, errors.NewValueError("CrossCorrelations", "need at least two rows and one column")
	}
	if ra != rb {
		return nil, errors.NewValueError("CrossCorrelations", "row counts differ")
	}

	cols := make([][]float64, cb)
	for j := range cols {
		cols[j] = mat.Col(nil, j, b)
	}
	out := mat.NewDense(ca, cb, nil)
	for i := 0; i < ca; i++ {
		x := mat.Col(nil, i, a)
		for j := 0; j < cb; j++ {
			out.Set(i, j, stat.Correlation(x, cols[j], nil))
		}
	}
	return out, nil
}
