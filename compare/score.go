package compare

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/metrics"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// testTarget はテストデータの目的変数をベクトルで返す
func (c *Comparison) testTarget(op string) (*mat.VecDense, error) {
	if c.xTest == nil {
		return nil, errors.NewMissingDataError(op, "test")
	}
	if c.yTest == nil {
		return nil, errors.NewMissingDataError(op, "test target")
	}
	n, _ := c.yTest.Dims()
	return mat.NewVecDense(n, mat.Col(nil, 0, c.yTest)), nil
}

// scoreFunc はモデル1つ分の評価値を返す。skip が true のモデルは結果から除外される。
type scoreFunc func(e *entry, y *mat.VecDense) (score float64, skip bool, err error)

// score は names の各モデルを fn で評価し、良い順に並べたSummaryを返す。
// lowerIsBetter が true なら昇順、そうでなければ降順。
func (c *Comparison) score(op, metric string, lowerIsBetter bool, names []string, fn scoreFunc) (dataset.Summary, error) {
	y, err := c.testTarget(op)
	if err != nil {
		return dataset.Summary{}, err
	}
	entries, err := c.selected(names)
	if err != nil {
		return dataset.Summary{}, err
	}

	s := dataset.Summary{Name: metric}
	for _, e := range entries {
		v, skip, err := fn(e, y)
		if err != nil {
			return dataset.Summary{}, err
		}
		if skip {
			continue
		}
		s.Labels = append(s.Labels, e.name)
		s.Values = append(s.Values, v)
		e.logger.Debug("Model scored", log.OperationKey, log.OperationScore, log.MetricKey, metric, log.MetricValueKey, v)
	}
	return s.Sorted(!lowerIsBetter), nil
}

func (c *Comparison) predictionMetric(op, metric string, lowerIsBetter bool, names []string,
	fn func(yTrue, yPred *mat.VecDense) (float64, error)) (dataset.Summary, error) {
	return c.score(op, metric, lowerIsBetter, names, func(e *entry, y *mat.VecDense) (float64, bool, error) {
		pred, err := c.predictions(e, c.xTest, c.cache != nil)
		if err != nil {
			return 0, false, err
		}
		v, err := fn(y, pred)
		if err != nil {
			return 0, false, errors.NewModelError(op, e.name, err)
		}
		return v, false, nil
	})
}

// Accuracy はテストデータに対する各モデルの正解率を降順で返す
func (c *Comparison) Accuracy(names ...string) (dataset.Summary, error) {
	return c.predictionMetric("Comparison.Accuracy", "Accuracy", false, names, metrics.Accuracy)
}

// MSE はテストデータに対する各モデルの平均二乗誤差を昇順で返す
func (c *Comparison) MSE(names ...string) (dataset.Summary, error) {
	return c.predictionMetric("Comparison.MSE", "MSE", true, names, metrics.MSE)
}

// RMSE はテストデータに対する各モデルの平方根平均二乗誤差を昇順で返す
func (c *Comparison) RMSE(names ...string) (dataset.Summary, error) {
	return c.predictionMetric("Comparison.RMSE", "RMSE", true, names, metrics.RMSE)
}

// MAE はテストデータに対する各モデルの平均絶対誤差を昇順で返す
func (c *Comparison) MAE(names ...string) (dataset.Summary, error) {
	return c.predictionMetric("Comparison.MAE", "MAE", true, names, metrics.MAE)
}

// R2 はテストデータに対する各モデルの決定係数を降順で返す
func (c *Comparison) R2(names ...string) (dataset.Summary, error) {
	return c.predictionMetric("Comparison.R2", "R2", false, names, metrics.R2Score)
}

// RMSLE はテストデータに対する各モデルの対数平均二乗誤差の平方根を昇順で返す
func (c *Comparison) RMSLE(names ...string) (dataset.Summary, error) {
	return c.predictionMetric("Comparison.RMSLE", "RMSLE", true, names, metrics.RMSLE)
}

// AUC は二値分類のテストデータに対する各モデルのROC曲線下面積を降順で返す。
// スコアにはクラス1の確率を使う。PredictProba を持たないモデルは警告を出して除外する。
func (c *Comparison) AUC(names ...string) (dataset.Summary, error) {
	const op = "Comparison.AUC"
	entries, _, err := c.probabilistic(op, names)
	if err != nil {
		return dataset.Summary{}, err
	}
	keep := make([]string, len(entries))
	for i, e := range entries {
		keep[i] = e.name
	}
	if len(keep) == 0 {
		return dataset.Summary{Name: "AUC"}, nil
	}

	return c.score(op, "AUC", false, keep, func(e *entry, y *mat.VecDense) (float64, bool, error) {
		score, err := c.positiveScores(op, e)
		if err != nil {
			return 0, false, err
		}
		v, err := metrics.AUC(y, score)
		if err != nil {
			return 0, false, errors.NewModelError(op, e.name, err)
		}
		return v, false, nil
	})
}

// positiveScores はテストデータに対するクラス1の確率を返す
func (c *Comparison) positiveScores(op string, e *entry) (*mat.VecDense, error) {
	if c.xTest == nil {
		return nil, errors.NewMissingDataError(op, "test")
	}
	pm, ok := asProbabilistic(e)
	if !ok {
		return nil, errors.NewModelError(op, e.name, errors.ErrNotImplemented)
	}
	proba, err := c.probabilities(e, pm, c.xTest, c.cache != nil)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	if k != 2 {
		return nil, errors.NewModelError(op, e.name, errors.NewDimensionError(op, 2, k, 1))
	}
	return mat.NewVecDense(n, mat.Col(nil, 1, proba)), nil
}
