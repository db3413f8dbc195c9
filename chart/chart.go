// Package chart はデータセットとモデル比較の図をgonum/plotで描画します。
// 各関数は *plot.Plot を返すだけで、保存は Save で行います。
package chart

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/copper/pkg/errors"
)

// DefaultSize は Save に0を渡した場合の一辺の長さ
const DefaultSize = 5 * vg.Inch

// Series は名前付きの点列です。GroupedScatter と ROC で使います。
type Series struct {
	Name string
	X, Y []float64
}

// Histogram は values のヒストグラムを描画する。NaNは無視される。
func Histogram(title string, values []float64, bins int) (*plot.Plot, error) {
	if bins <= 0 {
		return nil, errors.NewValidationError("bins", "must be positive", bins)
	}
	vs := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			vs = append(vs, v)
		}
	}
	if len(vs) == 0 {
		return nil, errors.NewValueError("chart.Histogram", "no non-missing values")
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(vs, bins)
	if err != nil {
		return nil, errors.Wrap(err, "chart.Histogram")
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return p, nil
}

// Scatter は (xs[i], ys[i]) の散布図を描画する
func Scatter(title, xLabel, yLabel string, xs, ys []float64) (*plot.Plot, error) {
	return GroupedScatter(title, xLabel, yLabel, []Series{{X: xs, Y: ys}})
}

// GroupedScatter はグループごとに色を変えた散布図を描画する。
// 名前のあるグループは凡例に表示される。
func GroupedScatter(title, xLabel, yLabel string, groups []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	for i, g := range groups {
		pts, err := points("chart.GroupedScatter", g)
		if err != nil {
			return nil, err
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, "chart.GroupedScatter")
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = plotutil.Shape(i)
		p.Add(s)
		if g.Name != "" {
			p.Legend.Add(g.Name, s)
		}
	}
	return p, nil
}

// ROC は各モデルのROC曲線と対角線を描画する。
// Series.X が偽陽性率、Series.Y が真陽性率。
func ROC(curves []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "ROC"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = false

	chance := plotter.NewFunction(func(x float64) float64 { return x })
	chance.Color = color.Gray{Y: 128}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)

	for i, c := range curves {
		pts, err := points("chart.ROC", c)
		if err != nil {
			return nil, err
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrap(err, "chart.ROC")
		}
		l.LineStyle.Color = plotutil.Color(i)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(c.Name, l)
	}
	return p, nil
}

// ConfusionMatrix は混同行列をヒートマップとして描画し、各セルに件数を表示する。
// 行が正解ラベル、列が予測ラベル。
func ConfusionMatrix(title string, cm mat.Matrix, labels []string) (*plot.Plot, error) {
	r, c := cm.Dims()
	if r == 0 || r != c {
		return nil, errors.NewValueError("chart.ConfusionMatrix", "confusion matrix must be square and non-empty")
	}
	if len(labels) != r {
		return nil, errors.NewDimensionError("chart.ConfusionMatrix", r, len(labels), 0)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Actual"

	grid := cmGrid{m: cm, n: r}
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	p.Add(hm)

	cells := plotter.XYLabels{}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cells.XYs = append(cells.XYs, plotter.XY{X: grid.X(j), Y: grid.rowY(i)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.0f", cm.At(i, j)))
		}
	}
	text, err := plotter.NewLabels(cells)
	if err != nil {
		return nil, errors.Wrap(err, "chart.ConfusionMatrix")
	}
	p.Add(text)

	xTicks := make([]plot.Tick, r)
	yTicks := make([]plot.Tick, r)
	for i, l := range labels {
		xTicks[i] = plot.Tick{Value: grid.X(i), Label: l}
		yTicks[i] = plot.Tick{Value: grid.rowY(i), Label: l}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	return p, nil
}

// Save は拡張子（.png, .svg, .pdf など）に応じた形式で p を保存する。
// size が0の場合は DefaultSize を使う。
func Save(p *plot.Plot, path string, size vg.Length) error {
	if filepath.Ext(path) == "" {
		return errors.NewValidationError("path", "must have a file extension", path)
	}
	if size <= 0 {
		size = DefaultSize
	}
	if err := p.Save(size, size, path); err != nil {
		return errors.Wrapf(err, "chart.Save %s", path)
	}
	return nil
}

func points(op string, s Series) (plotter.XYs, error) {
	if len(s.X) != len(s.Y) {
		return nil, errors.NewDimensionError(op, len(s.X), len(s.Y), 0)
	}
	pts := make(plotter.XYs, 0, len(s.X))
	for i := range s.X {
		if math.IsNaN(s.X[i]) || math.IsNaN(s.Y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: s.X[i], Y: s.Y[i]})
	}
	if len(pts) == 0 {
		return nil, errors.NewValueError(op, "no points to draw")
	}
	return pts, nil
}

// cmGrid は混同行列を plotter.GridXYZ として公開する。
// 行列の1行目が上に来るように、グリッドの行 r には行列の行 n-1-r を対応させる。
type cmGrid struct {
	m mat.Matrix
	n int
}

func (g cmGrid) Dims() (c, r int)   { return g.n, g.n }
func (g cmGrid) Z(c, r int) float64 { return g.m.At(g.n-1-r, c) }
func (g cmGrid) X(c int) float64    { return float64(c) }
func (g cmGrid) Y(r int) float64    { return float64(r) }

// rowY は行列の行 i が描画されるY座標
func (g cmGrid) rowY(i int) float64 { return float64(g.n - 1 - i) }
