package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

func TestCovariance(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})

	cov, err := Covariance(X)
	require.NoError(t, err)

	// var(col0) = 5/3, var(col1) = 20/3, cov = 10/3
	assert.InDelta(t, 5.0/3.0, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 20.0/3.0, cov.At(1, 1), 1e-12)
	assert.InDelta(t, 10.0/3.0, cov.At(0, 1), 1e-12)
	assert.InDelta(t, 10.0/3.0, MaxOffDiagonal(cov), 1e-12)

	_, err = Covariance(mat.NewDense(1, 2, []float64{1, 2}))
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestIdentityDeviation(t *testing.T) {
	tests := []struct {
		name string
		cov  *mat.SymDense
		want float64
	}{
		{
			name: "identity",
			cov:  mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
			want: 0,
		},
		{
			name: "diagonal off",
			cov:  mat.NewSymDense(2, []float64{1.5, 0, 0, 1}),
			want: 0.5,
		},
		{
			name: "off diagonal dominates",
			cov:  mat.NewSymDense(2, []float64{1.1, -0.3, -0.3, 1}),
			want: 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IdentityDeviation(tt.cov), 1e-12)
		})
	}
}

func TestColumnCorrelations(t *testing.T) {
	a := mat.NewDense(4, 2, []float64{
		1, 4,
		2, 3,
		3, 2,
		4, 1,
	})
	b := mat.NewDense(4, 2, []float64{
		2, 1,
		4, 2,
		6, 3,
		8, 4,
	})

	corr, err := ColumnCorrelations(a, b)
	require.NoError(t, err)
	require.Len(t, corr, 2)
	assert.InDelta(t, 1.0, corr[0], 1e-12)
	assert.InDelta(t, -1.0, corr[1], 1e-12)

	cross, err := CrossCorrelations(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cross.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, cross.At(0, 1), 1e-12)
	assert.InDelta(t, -1.0, cross.At(1, 0), 1e-12)

	_, err = ColumnCorrelations(a, mat.NewDense(4, 3, nil))
	var shapeErr *errors.ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))
}
