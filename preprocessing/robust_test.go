package preprocessing

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/core/model"
	"github.com/cytoprof/cytoprof/core/parallel"
	"github.com/cytoprof/cytoprof/core/table"
	"github.com/cytoprof/cytoprof/pkg/errors"
	"github.com/cytoprof/cytoprof/pkg/log"
)

func TestNewRobustMAD(t *testing.T) {
	r, err := NewRobustMAD()
	require.NoError(t, err)
	assert.Equal(t, 1e-18, r.GetParams()["epsilon"])
	assert.Equal(t, "RobustMAD(epsilon=1e-18)", r.String())

	for _, eps := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := NewRobustMAD(WithMADEpsilon(eps))
		var cfgErr *errors.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr), "epsilon=%g", eps)
	}
}

func TestMedianAbsDeviation(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantMedian float64
		wantMAD    float64
	}{
		{"odd", []float64{5, 1, 4, 2, 3}, 3, MADNormalConstant},
		{"even averages the middle pair", []float64{1, 2, 3, 4}, 2.5, MADNormalConstant},
		{"NaN omitted", []float64{1, math.NaN(), 3, 5}, 3, 2 * MADNormalConstant},
		{"constant", []float64{4, 4, 4}, 4, 0},
		{"single value", []float64{7}, 7, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med, mad := medianAbsDeviation(append([]float64(nil), tt.values...))
			assert.InDelta(t, tt.wantMedian, med, 1e-12)
			assert.InDelta(t, tt.wantMAD, mad, 1e-12)
		})
	}

	med, mad := medianAbsDeviation([]float64{math.NaN(), math.NaN()})
	assert.True(t, math.IsNaN(med))
	assert.True(t, math.IsNaN(mad))
}

func TestRobustMAD_CentersOnMedian(t *testing.T) {
	r, err := NewRobustMAD()
	require.NoError(t, err)

	X := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	out, err := r.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 0.0, out.At(2, 0))
	assert.InDelta(t, 2/MADNormalConstant, out.At(4, 0), 1e-12)
	assert.InDelta(t, -2/MADNormalConstant, out.At(0, 0), 1e-12)
	assert.Equal(t, []float64{3}, r.Median())
	assert.InDeltaSlice(t, []float64{MADNormalConstant}, r.MAD(), 1e-12)
	assert.Nil(t, r.FeatureNames())
}

func TestRobustMAD_ZeroSpreadWarns(t *testing.T) {
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	prev := log.SetProvider(provider)
	defer log.SetProvider(prev)

	tbl, err := table.FromRows([]string{"flat", "varied"}, [][]float64{
		{4, 1},
		{4, 2},
		{4, 9},
	})
	require.NoError(t, err)

	r, err := NewRobustMAD()
	require.NoError(t, err)
	out, err := r.FitTransform(tbl)
	require.NoError(t, err)

	logger := provider.GetLogger().(*log.TestLogger)
	assert.True(t, logger.ContainsMessage("column flat has zero median absolute deviation"))
	assert.False(t, logger.ContainsMessage("column varied"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 0))
	}
}

func TestRobustMAD_AlignsColumnsByName(t *testing.T) {
	reference, err := table.FromRows([]string{"a", "b"}, [][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	})
	require.NoError(t, err)

	r, err := NewRobustMAD()
	require.NoError(t, err)
	require.NoError(t, r.Fit(reference))

	query, err := table.FromRows([]string{"b", "a"}, [][]float64{
		{20, 2},
		{30, 1},
	})
	require.NoError(t, err)

	out, err := r.Transform(query)
	require.NoError(t, err)

	tbl, ok := out.(*table.Table)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, tbl.Columns())
	assert.Equal(t, 0.0, tbl.At(0, 0))
	assert.Equal(t, 0.0, tbl.At(0, 1))
	assert.InDelta(t, 10/(10*MADNormalConstant), tbl.At(1, 0), 1e-12)
	assert.InDelta(t, -1/MADNormalConstant, tbl.At(1, 1), 1e-12)
}

func TestRobustMAD_TransformErrors(t *testing.T) {
	r, err := NewRobustMAD()
	require.NoError(t, err)

	_, err = r.Transform(mat.NewDense(1, 1, []float64{1}))
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))

	reference, err := table.FromRows([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	require.NoError(t, r.Fit(reference))

	unknown, err := table.FromRows([]string{"a", "c"}, [][]float64{{1, 2}})
	require.NoError(t, err)
	_, err = r.Transform(unknown)
	var shapeErr *errors.ShapeMismatchError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, "c", shapeErr.Column)

	missing, err := table.FromRows([]string{"a"}, [][]float64{{1}})
	require.NoError(t, err)
	_, err = r.Transform(missing)
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 2, shapeErr.Expected)
	assert.Equal(t, 1, shapeErr.Got)

	// 列名のない入力は位置で対応付ける
	out, err := r.Transform(mat.NewDense(1, 2, []float64{2, 3}))
	require.NoError(t, err)
	_, isDense := out.(*mat.Dense)
	assert.True(t, isDense)
	assert.Equal(t, 0.0, out.At(0, 0))

	err = r.Fit(&mat.Dense{})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
	assert.False(t, r.IsFitted())
}

func TestRobustMAD_RawOutput(t *testing.T) {
	r, err := NewRobustMAD(WithRobustRawOutput(true))
	require.NoError(t, err)

	tbl, err := table.FromRows([]string{"a"}, [][]float64{{1}, {2}, {3}})
	require.NoError(t, err)
	out, err := r.FitTransform(tbl)
	require.NoError(t, err)

	_, isDense := out.(*mat.Dense)
	assert.True(t, isDense)
}

func TestRobustMAD_WideMatrix(t *testing.T) {
	// 閾値を超える列数では列ごとの統計量が並列に計算される
	cols := parallel.ColumnThreshold * 2
	X := mat.NewDense(3, cols, nil)
	for j := 0; j < cols; j++ {
		X.Set(0, j, float64(j))
		X.Set(1, j, float64(j)+1)
		X.Set(2, j, float64(j)+3)
	}

	r, err := NewRobustMAD()
	require.NoError(t, err)
	require.NoError(t, r.Fit(X))

	median := r.Median()
	mad := r.MAD()
	for j := 0; j < cols; j++ {
		assert.Equal(t, float64(j)+1, median[j])
		// |x - median| = 1, 0, 2
		assert.InDelta(t, MADNormalConstant, mad[j], 1e-12)
	}
}

func TestRobustMAD_ConcurrentTransform(t *testing.T) {
	reference, err := table.FromRows([]string{"a", "b"}, [][]float64{
		{1, 10},
		{2, 40},
		{3, 30},
		{7, 20},
	})
	require.NoError(t, err)

	r, err := NewRobustMAD()
	require.NoError(t, err)
	require.NoError(t, r.Fit(reference))

	// 中央値は a=2.5, b=25
	query, err := table.FromRows([]string{"b", "a"}, [][]float64{
		{25, 2.5},
		{55, 9},
	})
	require.NoError(t, err)
	want, err := r.Transform(query)
	require.NoError(t, err)

	const workers, calls = 8, 50
	errs := make(chan error, workers*calls)
	mismatches := make(chan int, workers*calls)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				got, err := r.Transform(query)
				if err != nil {
					errs <- err
					continue
				}
				if !mat.Equal(want, got) {
					mismatches <- i
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	close(mismatches)

	for err := range errs {
		t.Errorf("concurrent Transform failed: %v", err)
	}
	assert.Empty(t, mismatches, "concurrent Transform diverged from the sequential result")
	assert.Equal(t, 0.0, want.At(0, 0))
	assert.Equal(t, 0.0, want.At(0, 1))
}

func TestRobustMAD_ExportImport(t *testing.T) {
	tbl, err := table.FromRows([]string{"x", "y"}, [][]float64{
		{1, 8},
		{4, 2},
		{2, 5},
		{9, 3},
	})
	require.NoError(t, err)

	r, err := NewRobustMAD(WithMADEpsilon(1e-9))
	require.NoError(t, err)
	want, err := r.FitTransform(tbl)
	require.NoError(t, err)

	params, err := r.ExportParams()
	require.NoError(t, err)
	data, err := params.ToJSON()
	require.NoError(t, err)

	var decoded model.FittedParams
	require.NoError(t, decoded.FromJSON(data))

	restored, err := NewRobustMAD()
	require.NoError(t, err)
	require.NoError(t, restored.ImportParams(&decoded))
	assert.Equal(t, 1e-9, restored.GetParams()["epsilon"])
	assert.Equal(t, []string{"x", "y"}, restored.FeatureNames())

	got, err := restored.Transform(tbl)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(want, got, 1e-15))

	incomplete := params.Clone()
	delete(incomplete.Vectors, "mad")
	assert.Error(t, restored.ImportParams(incomplete))
}
