package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	s := NewStandardScalerDefault()
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{2.5, 10}, s.Mean)
	// 母分散（分母 n）
	assert.InDeltaSlice(t, []float64{1.25, 0}, s.Var, 1e-12)
	// 分散ゼロの列はスケール1
	assert.Equal(t, 1.0, s.Scale[1])

	assert.InDelta(t, -1.5/1.118033988749895, out.At(0, 0), 1e-12)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}

	back, err := s.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScaler_CenterOnly(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 6})

	s := NewStandardScaler(true, false)
	out, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.Nil(t, s.Var)
	assert.Equal(t, []float64{3}, s.Mean)
	assert.Equal(t, []float64{-2, -1, 3}, mat.Col(nil, 0, out))
	assert.Equal(t, "StandardScaler(with_mean=true, with_std=false, n_features=1)", s.String())
}

func TestStandardScaler_Errors(t *testing.T) {
	s := NewStandardScalerDefault()

	_, err := s.Transform(mat.NewDense(1, 1, []float64{1}))
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	_, err = s.InverseTransform(mat.NewDense(1, 1, []float64{1}))
	assert.True(t, errors.As(err, &notFitted))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var shapeErr *errors.ShapeMismatchError
	assert.True(t, errors.As(err, &shapeErr))

	assert.True(t, errors.Is(s.Fit(&mat.Dense{}), errors.ErrEmptyData))
}
