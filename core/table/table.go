// Package table provides a labeled numeric table: an ordered list of column
// names over a dense float64 matrix. A *Table satisfies mat.Matrix, so it can
// be passed anywhere the transformers accept a matrix; they then carry the
// column names through to their output.
package table

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

// Table is a dense matrix with named columns. Column names are unique.
type Table struct {
	columns []string
	index   map[string]int
	data    *mat.Dense
}

var _ mat.Matrix = (*Table)(nil)

// New wraps data with the given column names. The table shares data; callers
// that keep mutating data should pass a copy.
func New(columns []string, data *mat.Dense) (*Table, error) {
	if data == nil {
		return nil, errors.NewValueError("table.New", "data must not be nil")
	}
	_, c := data.Dims()
	if len(columns) != c {
		return nil, errors.NewValueError("table.New",
			fmt.Sprintf("got %d column names for %d columns", len(columns), c))
	}

	index := make(map[string]int, len(columns))
	for j, name := range columns {
		if name == "" {
			return nil, errors.NewValueError("table.New", fmt.Sprintf("column %d has an empty name", j))
		}
		if _, dup := index[name]; dup {
			return nil, errors.NewValueError("table.New", fmt.Sprintf("duplicate column name %q", name))
		}
		index[name] = j
	}

	return &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		data:    data,
	}, nil
}

// FromRows builds a table from row slices, which must all have len(columns) values.
func FromRows(columns []string, rows [][]float64) (*Table, error) {
	if len(rows) == 0 || len(columns) == 0 {
		return nil, errors.NewModelError("table.FromRows", "empty data", errors.ErrEmptyData)
	}
	flat := make([]float64, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.NewValueError("table.FromRows",
				fmt.Sprintf("row %d has %d values, want %d", i, len(row), len(columns)))
		}
		flat = append(flat, row...)
	}
	return New(columns, mat.NewDense(len(rows), len(columns), flat))
}

// Dims implements mat.Matrix.
func (t *Table) Dims() (r, c int) { return t.data.Dims() }

// At implements mat.Matrix.
func (t *Table) At(i, j int) float64 { return t.data.At(i, j) }

// T implements mat.Matrix. The transpose drops the column names.
func (t *Table) T() mat.Matrix { return mat.Transpose{Matrix: t} }

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	j, ok := t.index[name]
	return j, ok
}

// Col returns a copy of the named column.
func (t *Table) Col(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, errors.NewValueError("Table.Col", fmt.Sprintf("unknown column %q", name))
	}
	return mat.Col(nil, j, t.data), nil
}

// Dense returns the underlying matrix (shared, not copied).
func (t *Table) Dense() *mat.Dense { return t.data }

// ColumnsOf returns the column names of m when it is a *Table, or nil.
func ColumnsOf(m mat.Matrix) []string {
	if t, ok := m.(*Table); ok {
		return t.Columns()
	}
	return nil
}

// Ordinal returns prefix1..prefixN, e.g. PC1, PC2, ...
func Ordinal(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = prefix + strconv.Itoa(i+1)
	}
	return names
}

// ColumnName returns names[j], or the position j ("0", "1", ...) for
// unlabeled input.
func ColumnName(names []string, j int) string {
	if names != nil {
		return names[j]
	}
	return strconv.Itoa(j)
}
