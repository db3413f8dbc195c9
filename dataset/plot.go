package dataset

import (
	"sort"

	"gonum.org/v1/plot"

	"github.com/YuminosukeSato/copper/chart"
)

// Histogram は列のヒストグラムを描画する
func (d *Dataset) Histogram(col string, bins int) (*plot.Plot, error) {
	s, err := d.Col(col)
	if err != nil {
		return nil, err
	}
	return chart.Histogram(col, present(s), bins)
}

// Scatter は2つの列の散布図を描画する
func (d *Dataset) Scatter(x, y string) (*plot.Plot, error) {
	if err := d.requireColumns("Dataset.Scatter", x, y); err != nil {
		return nil, err
	}
	return chart.Scatter(x+" vs "+y, x, y, d.frame.Col(x).Float(), d.frame.Col(y).Float())
}

// ScatterBy は group 列の値ごとに色を分けた散布図を描画する
func (d *Dataset) ScatterBy(x, y, group string) (*plot.Plot, error) {
	if err := d.requireColumns("Dataset.ScatterBy", x, y, group); err != nil {
		return nil, err
	}
	xs, ys := d.frame.Col(x).Float(), d.frame.Col(y).Float()
	g := d.frame.Col(group)
	mask := missingMask(g)

	byName := make(map[string]*chart.Series)
	for i, label := range g.Records() {
		if mask[i] {
			continue
		}
		s, ok := byName[label]
		if !ok {
			s = &chart.Series{Name: label}
			byName[label] = s
		}
		s.X = append(s.X, xs[i])
		s.Y = append(s.Y, ys[i])
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	groups := make([]chart.Series, len(names))
	for i, n := range names {
		groups[i] = *byName[n]
	}
	return chart.GroupedScatter(x+" vs "+y+" by "+group, x, y, groups)
}
