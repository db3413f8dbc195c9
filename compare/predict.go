package compare

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/core/model"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// inputs は ds をエンコードした入力行列を返す。ds がnilならテストデータを使い、
// その場合だけ予測結果をキャッシュできる。
func (c *Comparison) inputs(op string, ds *dataset.Dataset) (*mat.Dense, bool, error) {
	if ds == nil {
		if c.xTest == nil {
			return nil, false, errors.NewMissingDataError(op, "test")
		}
		return c.xTest, c.cache != nil, nil
	}
	if c.encoder == nil {
		return nil, false, errors.NewMissingDataError(op, "train")
	}
	X, err := c.encoder.Transform(ds)
	if err != nil {
		return nil, false, errors.Wrap(err, op)
	}
	return X, false, nil
}

// predictOn は外部モデルの Predict を呼び出し、結果を長さ n のベクトルにする
func predictOn(e *entry, X mat.Matrix) (*mat.VecDense, error) {
	if !e.fitted {
		return nil, errors.NewNotFittedError(e.name, "Predict")
	}
	var out mat.Matrix
	err := errors.SafeExecute(e.name+".Predict", func() error {
		var err error
		out, err = e.model.Predict(X)
		return err
	})
	if err != nil {
		return nil, errors.NewModelError("Comparison.Predict", e.name, err)
	}
	n, _ := X.Dims()
	return asVector("Comparison.Predict", out, n)
}

// asVector accepts n×1 and 1×n results.
func asVector(op string, m mat.Matrix, n int) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "model returned no predictions")
	}
	r, cols := m.Dims()
	switch {
	case r == n && cols >= 1:
		return mat.NewVecDense(n, mat.Col(nil, 0, m)), nil
	case r == 1 && cols == n:
		return mat.NewVecDense(n, mat.Row(nil, 0, m)), nil
	default:
		return nil, errors.NewDimensionError(op, n, r, 0)
	}
}

func probaOn(e *entry, pm model.ProbabilisticModel, X mat.Matrix) (mat.Matrix, error) {
	if !e.fitted {
		return nil, errors.NewNotFittedError(e.name, "PredictProba")
	}
	var out mat.Matrix
	err := errors.SafeExecute(e.name+".PredictProba", func() error {
		var err error
		out, err = pm.PredictProba(X)
		return err
	})
	if err != nil {
		return nil, errors.NewModelError("Comparison.PredictProba", e.name, err)
	}
	if out == nil {
		return nil, errors.NewValueError("Comparison.PredictProba", "model returned no probabilities")
	}
	n, _ := X.Dims()
	if r, _ := out.Dims(); r != n {
		return nil, errors.NewDimensionError("Comparison.PredictProba", n, r, 0)
	}
	return out, nil
}

func (c *Comparison) cached(e *entry, kind string, cacheable bool, compute func() (mat.Matrix, error)) (mat.Matrix, error) {
	key := kind + "/" + e.name
	if cacheable {
		if m, ok := c.cache.Get(key); ok {
			e.logger.Debug("Prediction cache hit", log.OperationKey, kind, log.CacheHitKey, true)
			return m, nil
		}
	}
	m, err := compute()
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.cache.Add(key, m)
	}
	return m, nil
}

func (c *Comparison) predictions(e *entry, X *mat.Dense, cacheable bool) (*mat.VecDense, error) {
	m, err := c.cached(e, log.OperationPredict, cacheable, func() (mat.Matrix, error) {
		v, err := predictOn(e, X)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return m.(*mat.VecDense), nil
}

func (c *Comparison) probabilities(e *entry, pm model.ProbabilisticModel, X *mat.Dense, cacheable bool) (mat.Matrix, error) {
	return c.cached(e, log.OperationPredictProba, cacheable, func() (mat.Matrix, error) {
		return probaOn(e, pm, X)
	})
}

// probabilistic は names のうち PredictProba を持つモデルを返す。
// names が空なら全モデルが対象で、PredictProba を持たないモデルは警告を出して除外する。
// 明示的に指定したモデルが PredictProba を持たない場合はエラー。
func (c *Comparison) probabilistic(op string, names []string) ([]*entry, []model.ProbabilisticModel, error) {
	entries, err := c.selected(names)
	if err != nil {
		return nil, nil, err
	}
	var (
		keep []*entry
		pms  []model.ProbabilisticModel
	)
	for _, e := range entries {
		pm, ok := model.AsProbabilistic(e.model)
		if !ok {
			if len(names) > 0 {
				return nil, nil, errors.NewModelError(op, e.name, errors.ErrNotImplemented)
			}
			errors.Warn(errors.NewCapabilityWarning(e.name, "PredictProba"))
			continue
		}
		keep = append(keep, e)
		pms = append(pms, pm)
	}
	return keep, pms, nil
}

// Predict は各モデルの予測を1列ずつ持つフレームを返す。ds がnilならテストデータを使う。
// Category目的変数ではクラス名に戻した文字列列になる。
func (c *Comparison) Predict(ds *dataset.Dataset, names ...string) (dataframe.DataFrame, error) {
	const op = "Comparison.Predict"
	X, cacheable, err := c.inputs(op, ds)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	entries, err := c.selected(names)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	cols := make([]series.Series, 0, len(entries))
	for _, e := range entries {
		pred, err := c.predictions(e, X, cacheable)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		values := pred.RawVector().Data
		if !c.encoder.CategoricalTarget() {
			cols = append(cols, series.New(append([]float64(nil), values...), series.Float, e.name))
			continue
		}
		labels := make([]string, len(values))
		for i, v := range values {
			if labels[i], err = c.encoder.DecodeTarget(v); err != nil {
				return dataframe.DataFrame{}, errors.NewModelError(op, e.name, err)
			}
		}
		cols = append(cols, series.New(labels, series.String, e.name))
	}
	return frameOf(op, cols)
}

// PredictProba は各モデルのクラス確率を "name [k]" という列で返す。k はエンコード後のクラス番号。
func (c *Comparison) PredictProba(ds *dataset.Dataset, names ...string) (dataframe.DataFrame, error) {
	const op = "Comparison.PredictProba"
	X, cacheable, err := c.inputs(op, ds)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	entries, pms, err := c.probabilistic(op, names)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	var cols []series.Series
	for i, e := range entries {
		proba, err := c.probabilities(e, pms[i], X, cacheable)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		_, k := proba.Dims()
		for j := 0; j < k; j++ {
			cols = append(cols, series.New(mat.Col(nil, j, proba), series.Float, fmt.Sprintf("%s [%d]", e.name, j)))
		}
	}
	return frameOf(op, cols)
}

// CutoffPredict はクラス番号 class の確率が cutoff 以上なら1、そうでなければ0を
// モデルごとの列で返す。
func (c *Comparison) CutoffPredict(class int, cutoff float64, ds *dataset.Dataset, names ...string) (dataframe.DataFrame, error) {
	const op = "Comparison.CutoffPredict"
	if cutoff < 0 || cutoff > 1 {
		return dataframe.DataFrame{}, errors.NewValidationError("cutoff", "must be in [0, 1]", cutoff)
	}
	X, cacheable, err := c.inputs(op, ds)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	entries, pms, err := c.probabilistic(op, names)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	var cols []series.Series
	for i, e := range entries {
		proba, err := c.probabilities(e, pms[i], X, cacheable)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		n, k := proba.Dims()
		if class < 0 || class >= k {
			return dataframe.DataFrame{}, errors.NewValidationError("class", fmt.Sprintf("must be in [0, %d)", k), class)
		}
		out := make([]float64, n)
		for r := 0; r < n; r++ {
			if proba.At(r, class) >= cutoff {
				out[r] = 1
			}
		}
		cols = append(cols, series.New(out, series.Float, e.name))
	}
	c.logger.Debug("Cutoff applied", log.ThresholdKey, cutoff, "class", class)
	return frameOf(op, cols)
}

func frameOf(op string, cols []series.Series) (dataframe.DataFrame, error) {
	if len(cols) == 0 {
		return dataframe.DataFrame{}, errors.NewValueError(op, "no models to predict with")
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, op)
	}
	return df, nil
}

func asProbabilistic(e *entry) (model.ProbabilisticModel, bool) {
	return model.AsProbabilistic(e.model)
}
