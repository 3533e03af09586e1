// Package linalg wraps the gonum decompositions the transformers rely on and
// fixes the numerical-rank rule in one place.
package linalg

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

// MachineEpsilon is the float64 unit round-off, math.Nextafter(1, 2) - 1.
const MachineEpsilon = 2.220446049250313e-16

// Decomposition holds the parts of X = U Σ Vᵀ the whitening code needs.
// U is never formed.
type Decomposition struct {
	// Values are the singular values in descending order, min(Rows, Cols) of them.
	Values []float64

	// V is the Cols×Cols matrix of right singular vectors, one per column.
	V *mat.Dense

	Rows, Cols int
}

// SVD computes the singular values and the full right singular basis of X.
// Panics raised inside gonum (for example on a zero-sized matrix) are
// returned as errors.
func SVD(X mat.Matrix) (dec *Decomposition, err error) {
	defer errors.Recover(&err, "linalg.SVD")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("linalg.SVD", "empty data", errors.ErrEmptyData)
	}

	var svd mat.SVD
	if ok := svd.Factorize(X, mat.SVDFullV); !ok {
		return nil, errors.NewModelError("linalg.SVD", "factorization failed", errors.ErrSingularMatrix)
	}

	var v mat.Dense
	svd.VTo(&v)

	return &Decomposition{
		Values: svd.Values(nil),
		V:      &v,
		Rows:   r,
		Cols:   c,
	}, nil
}

// VT returns Vᵀ as a view.
func (d *Decomposition) VT() mat.Matrix {
	return d.V.T()
}

// Tolerance resolves a user tolerance: tol <= 0 selects DefaultTolerance.
func (d *Decomposition) Tolerance(tol float64) float64 {
	if tol <= 0 {
		return DefaultTolerance(d.Values, d.Rows, d.Cols)
	}
	return tol
}

// Rank returns the numerical rank under Tolerance(tol).
func (d *Decomposition) Rank(tol float64) int {
	return Rank(d.Values, d.Tolerance(tol))
}

// DefaultTolerance is the threshold below which a singular value counts as
// zero: max(Σ) · max(rows, cols) · MachineEpsilon.
func DefaultTolerance(values []float64, rows, cols int) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Max(values) * float64(max(rows, cols)) * MachineEpsilon
}

// Rank counts the singular values strictly greater than tol.
func Rank(values []float64, tol float64) int {
	rank := 0
	for _, s := range values {
		if s > tol {
			rank++
		}
	}
	return rank
}

// MatrixRank is a convenience for the numerical rank of X with the default tolerance.
func MatrixRank(X mat.Matrix) (int, error) {
	dec, err := SVD(X)
	if err != nil {
		return 0, err
	}
	return dec.Rank(0), nil
}
