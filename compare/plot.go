package compare

import (
	"fmt"

	"gonum.org/v1/plot"

	"github.com/YuminosukeSato/copper/chart"
	"github.com/YuminosukeSato/copper/metrics"
	"github.com/YuminosukeSato/copper/pkg/errors"
)

// ROC は確率を出力できる各モデルのROC曲線を、凡例にAUCを付けてAUCの降順で描画する
func (c *Comparison) ROC() (*plot.Plot, error) {
	const op = "Comparison.ROC"
	aucs, err := c.AUC()
	if err != nil {
		return nil, err
	}
	y, err := c.testTarget(op)
	if err != nil {
		return nil, err
	}

	curves := make([]chart.Series, 0, aucs.Len())
	for i, name := range aucs.Labels {
		e, err := c.lookup(name)
		if err != nil {
			return nil, err
		}
		score, err := c.positiveScores(op, e)
		if err != nil {
			return nil, err
		}
		fpr, tpr, _, err := metrics.ROCCurve(y, score)
		if err != nil {
			return nil, errors.NewModelError(op, name, err)
		}
		curves = append(curves, chart.Series{
			Name: fmt.Sprintf("%s (area = %0.2f)", name, aucs.Values[i]),
			X:    fpr,
			Y:    tpr,
		})
	}
	return chart.ROC(curves)
}

// PlotConfusionMatrix はモデルの混同行列をヒートマップで描画する
func (c *Comparison) PlotConfusionMatrix(name string) (*plot.Plot, error) {
	cm, labels, err := c.ConfusionMatrix(name)
	if err != nil {
		return nil, err
	}
	return chart.ConfusionMatrix(name+" confusion matrix", cm, labels)
}
