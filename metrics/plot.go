package metrics

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/cytoprof/cytoprof/pkg/errors"
)

// SpectrumPlot はSphering.SingularValues() などの特異値を成分番号に対してプロットする（スクリープロット）
// logScale が true の場合、全ての値が正でなければならない
func SpectrumPlot(values []float64, logScale bool) (*plot.Plot, error) {
	if len(values) == 0 {
		return nil, errors.NewModelError("SpectrumPlot", "empty data", errors.ErrEmptyData)
	}

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		if logScale && v <= 0 {
			return nil, errors.NewValueError("SpectrumPlot", "log scale requires positive singular values")
		}
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	if err := errors.CheckNumericalStability("SpectrumPlot", values); err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Singular value spectrum"
	p.X.Label.Text = "Component"
	p.Y.Label.Text = "Singular value"
	if logScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "spectrum line")
	}
	points, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "spectrum points")
	}
	p.Add(plotter.NewGrid(), line, points)
	return p, nil
}

// WriteSpectrum renders SpectrumPlot(values, logScale) to w in the given
// format ("png", "svg", "pdf", ...).
func WriteSpectrum(w io.Writer, values []float64, logScale bool, format string) error {
	p, err := SpectrumPlot(values, logScale)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return errors.Wrapf(err, "render spectrum as %s", format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "write spectrum")
	}
	return nil
}
