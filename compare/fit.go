package compare

import (
	"context"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/copper/core/parallel"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/metrics"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
)

// Fit は登録されたすべてのモデルを訓練データで学習させる。
// WithNJobs が2以上なら複数のモデルを並行して学習する。失敗したモデルがあっても
// 残りのモデルの学習は続け、最初に登録されたモデルのエラーを返す。
func (c *Comparison) Fit(ctx context.Context) error {
	if c.xTrain == nil {
		return errors.NewMissingDataError("Comparison.Fit", "train")
	}
	if len(c.names) == 0 {
		return errors.NewValueError("Comparison.Fit", "no models registered")
	}
	entries, _ := c.selected(nil)
	defer c.invalidate()

	errs := parallel.ForEach(ctx, len(entries), c.nJobs, func(ctx context.Context, i int) error {
		return c.fitEntry(ctx, entries[i])
	})
	return firstError(errs)
}

// FitModel は1つのモデルだけを学習させる
func (c *Comparison) FitModel(ctx context.Context, name string) error {
	if c.xTrain == nil {
		return errors.NewMissingDataError("Comparison.FitModel", "train")
	}
	e, err := c.lookup(name)
	if err != nil {
		return err
	}
	defer c.invalidate()
	return c.fitEntry(ctx, e)
}

func (c *Comparison) fitEntry(ctx context.Context, e *entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.fitted = false
	start := time.Now()
	if err := fitOn(e, c.xTrain, c.yTrain); err != nil {
		e.logger.Error("Model fit failed", err, log.OperationKey, log.OperationFit)
		return err
	}
	e.fitted = true
	e.logger.Info("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, c.xTrain.RawMatrix().Rows,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fitOn は外部モデルの Fit を呼び出し、パニックもエラーに変換する
func fitOn(e *entry, X, y mat.Matrix) error {
	err := errors.SafeExecute(e.name+".Fit", func() error {
		return e.model.Fit(X, y)
	})
	if err != nil {
		return errors.NewModelError("Comparison.Fit", e.name, err)
	}
	return nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ===========================================================================
// Cross validation
// ===========================================================================

// Fold は交差検証の1分割分のインデックス
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold はクラスの比率を保ったまま y を k 個に分割する。
// シャッフルはせず、各クラスのサンプルを出現順に分割へ1つずつ割り当てる。
func StratifiedKFold(y []float64, k int) ([]Fold, error) {
	if k < 2 {
		return nil, errors.NewValidationError("k", "must be at least 2", k)
	}
	if len(y) < k {
		return nil, errors.NewValidationError("k", "must not exceed the number of samples", k)
	}

	classIndices := make(map[float64][]int)
	for i, v := range y {
		classIndices[v] = append(classIndices[v], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for v := range classIndices {
		labels = append(labels, v)
	}
	sort.Float64s(labels)

	folds := make([]Fold, k)
	// 割り当て位置はクラスをまたいで続く
	offset := 0
	for _, label := range labels {
		indices := classIndices[label]
		for j, idx := range indices {
			f := (offset + j) % k
			folds[f].TestIndices = append(folds[f].TestIndices, idx)
		}
		offset = (offset + len(indices)) % k
	}

	for i := range folds {
		sort.Ints(folds[i].TestIndices)
		inTest := make(map[int]bool, len(folds[i].TestIndices))
		for _, idx := range folds[i].TestIndices {
			inTest[idx] = true
		}
		folds[i].TrainIndices = make([]int, 0, len(y)-len(folds[i].TestIndices))
		for j := range y {
			if !inTest[j] {
				folds[i].TrainIndices = append(folds[i].TrainIndices, j)
			}
		}
	}
	return folds, nil
}

func extractRows(m *mat.Dense, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	for i, idx := range indices {
		out.SetRow(i, m.RawRowView(idx))
	}
	return out
}

// CVAccuracy は訓練データ上の層化 k 分割交差検証で各モデルの平均正解率を計算する。
// 各分割でモデルを学習し直し、最後に訓練データ全体で学習し直した状態に戻す。
func (c *Comparison) CVAccuracy(ctx context.Context, k int) (dataset.Summary, error) {
	const op = "Comparison.CVAccuracy"
	if c.xTrain == nil {
		return dataset.Summary{}, errors.NewMissingDataError(op, "train")
	}
	folds, err := StratifiedKFold(mat.Col(nil, 0, c.yTrain), k)
	if err != nil {
		return dataset.Summary{}, err
	}
	entries, _ := c.selected(nil)
	defer c.invalidate()

	scores := make([]float64, len(entries))
	errs := parallel.ForEach(ctx, len(entries), c.nJobs, func(ctx context.Context, i int) error {
		score, err := c.crossValidate(ctx, entries[i], folds)
		if err != nil {
			return err
		}
		scores[i] = score
		return c.fitEntry(ctx, entries[i])
	})
	if err := firstError(errs); err != nil {
		return dataset.Summary{}, err
	}

	s := dataset.Summary{Name: "CV Accuracy", Values: scores}
	for _, e := range entries {
		s.Labels = append(s.Labels, e.name)
	}
	return s.Sorted(true), nil
}

// crossValidate は分割ごとに学習と予測を繰り返す。途中で失敗したモデルは未学習のまま残る。
func (c *Comparison) crossValidate(ctx context.Context, e *entry, folds []Fold) (_ float64, err error) {
	defer func() {
		if err != nil {
			e.fitted = false
		}
	}()
	scores := make([]float64, len(folds))
	for i, f := range folds {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		xTr, yTr := extractRows(c.xTrain, f.TrainIndices), extractRows(c.yTrain, f.TrainIndices)
		xTe, yTe := extractRows(c.xTrain, f.TestIndices), extractRows(c.yTrain, f.TestIndices)
		if err := fitOn(e, xTr, yTr); err != nil {
			return 0, err
		}
		e.fitted = true
		pred, err := predictOn(e, xTe)
		if err != nil {
			return 0, err
		}
		acc, err := metrics.Accuracy(mat.NewVecDense(len(f.TestIndices), mat.Col(nil, 0, yTe)), pred)
		if err != nil {
			return 0, errors.NewModelError("Comparison.CVAccuracy", e.name, err)
		}
		scores[i] = acc
		e.logger.Debug("Fold scored",
			log.FoldKey, i,
			log.MetricKey, "accuracy",
			log.MetricValueKey, acc,
		)
	}
	return stat.Mean(scores, nil), nil
}
