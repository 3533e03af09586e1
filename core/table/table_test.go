package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

func TestNew(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	tbl, err := New([]string{"a", "b", "c"}, data)
	require.NoError(t, err)

	r, c := tbl.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 6.0, tbl.At(1, 2))
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns())

	j, ok := tbl.Index("b")
	assert.True(t, ok)
	assert.Equal(t, 1, j)

	col, err := tbl.Col("c")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, col)

	assert.Equal(t, 2.0, tbl.T().At(1, 0))
}

func TestNew_Invalid(t *testing.T) {
	data := mat.NewDense(1, 2, []float64{1, 2})

	tests := []struct {
		name    string
		columns []string
		data    *mat.Dense
	}{
		{"nil data", []string{"a", "b"}, nil},
		{"too few names", []string{"a"}, data},
		{"duplicate names", []string{"a", "a"}, data},
		{"empty name", []string{"a", ""}, data},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.columns, tt.data)
			var valErr *errors.ValueError
			assert.True(t, errors.As(err, &valErr), "got %v", err)
		})
	}
}

func TestColumnsCopied(t *testing.T) {
	names := []string{"x", "y"}
	tbl, err := New(names, mat.NewDense(1, 2, []float64{1, 2}))
	require.NoError(t, err)

	names[0] = "changed"
	assert.Equal(t, "x", tbl.Columns()[0])

	cols := tbl.Columns()
	cols[1] = "changed"
	assert.Equal(t, "y", tbl.Columns()[1])
}

func TestFromRows(t *testing.T) {
	tbl, err := FromRows([]string{"a", "b"}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, tbl.At(1, 0))

	_, err = FromRows([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	_, err = FromRows([]string{"a"}, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, []string{"PC1", "PC2", "PC3"}, Ordinal("PC", 3))
	assert.Equal(t, "1", ColumnName(nil, 1))
	assert.Equal(t, "b", ColumnName([]string{"a", "b"}, 1))

	tbl, err := New([]string{"a"}, mat.NewDense(1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ColumnsOf(tbl))
	assert.Nil(t, ColumnsOf(mat.NewDense(1, 1, nil)))
}
