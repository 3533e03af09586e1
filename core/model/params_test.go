package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

func sampleParams() *FittedParams {
	return &FittedParams{
		ModelType: "Sphering",
		Version:   ParamsVersion,
		Features:  []string{"a", "b"},
		NFeatures: 2,
		Hyperparameters: map[string]interface{}{
			"method":  "ZCA",
			"epsilon": 1e-6,
		},
		Vectors: map[string][]float64{
			"mean": {1, 2},
		},
		Matrices: map[string]*MatrixParams{
			"projection": NewMatrixParams(mat.NewDense(2, 2, []float64{1, 0, 0, 1})),
		},
		Metadata: map[string]interface{}{"rank": 2},
	}
}

func TestFittedParams_JSON(t *testing.T) {
	params := sampleParams()

	data, err := params.ToJSON()
	require.NoError(t, err)

	var decoded FittedParams
	require.NoError(t, decoded.FromJSON(data))
	require.NoError(t, decoded.Validate("Sphering"))

	assert.Equal(t, params.Features, decoded.Features)
	assert.Equal(t, params.Vectors["mean"], decoded.Vectors["mean"])
	assert.Equal(t, "ZCA", decoded.Hyperparameters["method"])
	assert.True(t, mat.Equal(params.Matrices["projection"].Dense(), decoded.Matrices["projection"].Dense()))
}

func TestFittedParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *FittedParams)
	}{
		{"wrong model type", func(p *FittedParams) { p.ModelType = "RobustMAD" }},
		{"wrong version", func(p *FittedParams) { p.Version = "0" }},
		{"no features", func(p *FittedParams) { p.NFeatures = 0 }},
		{"feature names length", func(p *FittedParams) { p.Features = []string{"a"} }},
		{"vector length", func(p *FittedParams) { p.Vectors["mean"] = []float64{1} }},
		{"matrix shape", func(p *FittedParams) { p.Matrices["projection"].Rows = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := sampleParams()
			tt.mutate(params)

			err := params.Validate("Sphering")
			require.Error(t, err)
			var valErr *errors.ValueError
			assert.True(t, errors.As(err, &valErr))
		})
	}
}

func TestFittedParams_Clone(t *testing.T) {
	params := sampleParams()
	clone := params.Clone()

	clone.Features[0] = "changed"
	clone.Vectors["mean"][0] = 99
	clone.Matrices["projection"].Data[0] = 99
	clone.Hyperparameters["method"] = "PCA"

	assert.Equal(t, "a", params.Features[0])
	assert.Equal(t, 1.0, params.Vectors["mean"][0])
	assert.Equal(t, 1.0, params.Matrices["projection"].Data[0])
	assert.Equal(t, "ZCA", params.Hyperparameters["method"])
}

func TestBaseEstimator_CheckFitted(t *testing.T) {
	var est BaseEstimator

	err := est.CheckFitted("Sphering", "Transform")
	var nfErr *errors.NotFittedError
	require.True(t, errors.As(err, &nfErr))
	assert.Equal(t, "Transform", nfErr.Method)

	est.SetFitted()
	assert.NoError(t, est.CheckFitted("Sphering", "Transform"))

	est.Reset()
	assert.False(t, est.IsFitted())
}
