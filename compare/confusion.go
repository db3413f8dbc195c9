package compare

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/metrics"
	"github.com/YuminosukeSato/copper/pkg/errors"
)

// Profit の列名
const (
	ColLossFalsePositive = "Loss from False Positive"
	ColRevenue           = "Revenue"
	ColProfit            = "Profit"
)

type confusion struct {
	names  []string
	cms    map[string]*mat.Dense
	labels []float64
}

// confusions はテストデータに対する各モデルの混同行列を、共通のラベル順で計算する。
// ラベルは訓練データのクラス、テストデータの正解、全モデルの予測の和集合。
func (c *Comparison) confusions(op string, names []string) (*confusion, error) {
	y, err := c.testTarget(op)
	if err != nil {
		return nil, err
	}
	entries, err := c.selected(names)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.NewValueError(op, "no models registered")
	}

	yTrue := y.RawVector().Data
	preds := make([][]float64, len(entries))
	for i, e := range entries {
		p, err := c.predictions(e, c.xTest, c.cache != nil)
		if err != nil {
			return nil, err
		}
		preds[i] = p.RawVector().Data
	}
	labels := metrics.UniqueSorted(append([][]float64{c.trainLabels(), yTrue}, preds...)...)

	out := &confusion{cms: make(map[string]*mat.Dense, len(entries)), labels: labels}
	for i, e := range entries {
		cm, _, err := metrics.ConfusionMatrix(yTrue, preds[i], labels)
		if err != nil {
			return nil, errors.NewModelError(op, e.name, err)
		}
		out.names = append(out.names, e.name)
		out.cms[e.name] = cm
	}
	return out, nil
}

func (c *Comparison) labelNames(labels []float64) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = c.labelName(l)
	}
	return out
}

// ConfusionMatrix はモデルの混同行列とラベル名を返す。行が正解、列が予測。
func (c *Comparison) ConfusionMatrix(name string) (*mat.Dense, []string, error) {
	cf, err := c.confusions("Comparison.ConfusionMatrix", []string{name})
	if err != nil {
		return nil, nil, err
	}
	return cf.cms[name], c.labelNames(cf.labels), nil
}

// ConfusionMatrices はすべてのモデルの混同行列を共通のラベル順で返す
func (c *Comparison) ConfusionMatrices() (map[string]*mat.Dense, []string, error) {
	cf, err := c.confusions("Comparison.ConfusionMatrices", nil)
	if err != nil {
		return nil, nil, err
	}
	return cf.cms, c.labelNames(cf.labels), nil
}

// CMTable はクラスごとに予測数（Predicted）、正しく予測した数（Correct）、
// その割合（Rate）をモデルごとに並べた表を返す。values を省略するとテストデータに
// 現れるすべてのクラス。行は最後のクラスの Rate で降順に並ぶ（NaNは末尾）。
func (c *Comparison) CMTable(values ...string) (dataframe.DataFrame, error) {
	const op = "Comparison.CMTable"
	cf, err := c.confusions(op, nil)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	names := c.labelNames(cf.labels)
	if len(values) == 0 {
		values = c.labelNames(metrics.UniqueSorted(mat.Col(nil, 0, c.yTest)))
	}

	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	type block struct{ predicted, correct, rate []float64 }
	blocks := make([]block, len(values))
	for b, v := range values {
		k, ok := index[v]
		if !ok {
			return dataframe.DataFrame{}, errors.NewValueError(op, "unknown class value '"+v+"'")
		}
		for _, m := range cf.names {
			cm := cf.cms[m]
			predicted := mat.Sum(cm.ColView(k))
			correct := cm.At(k, k)
			blocks[b].predicted = append(blocks[b].predicted, predicted)
			blocks[b].correct = append(blocks[b].correct, correct)
			blocks[b].rate = append(blocks[b].rate, errors.SafeDivide(correct, predicted))
		}
	}

	last := blocks[len(blocks)-1].rate
	order := orderBy(cf.names, last)
	cols := []series.Series{series.New(permuteStrings(cf.names, order), series.String, "Model")}
	for b, v := range values {
		cols = append(cols,
			series.New(permute(blocks[b].predicted, order), series.Float, "Predicted "+v),
			series.New(permute(blocks[b].correct, order), series.Float, "Correct "+v),
			series.New(permute(blocks[b].rate, order), series.Float, "Rate "+v),
		)
	}
	return dataframe.New(cols...), nil
}

// orderBy returns the row order that sorts values descending, NaN last.
func orderBy(names []string, values []float64) []int {
	sorted := dataset.Summary{Labels: names, Values: values}.Sorted(true)
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	order := make([]int, len(names))
	for i, n := range sorted.Labels {
		order[i] = pos[n]
	}
	return order
}

func permute(values []float64, order []int) []float64 {
	out := make([]float64, len(order))
	for i, j := range order {
		out[i] = values[j]
	}
	return out
}

func permuteStrings(values []string, order []int) []string {
	out := make([]string, len(order))
	for i, j := range order {
		out[i] = values[j]
	}
	return out
}

// binary は二値分類のコスト計算に使う混同行列を返す
func (c *Comparison) binary(op string) (*confusion, error) {
	cf, err := c.confusions(op, nil)
	if err != nil {
		return nil, err
	}
	if len(cf.labels) != 2 {
		return nil, errors.NewValueError(op, "cost tables require a binary target")
	}
	return cf, nil
}

// Profit は各モデルを使った場合の偽陽性による損失、収益、利益を返す。
// by で並べ替える列を指定し（空なら Profit）、降順に並ぶ。
func (c *Comparison) Profit(by string) (dataframe.DataFrame, error) {
	const op = "Comparison.Profit"
	if by == "" {
		by = ColProfit
	}
	if by != ColLossFalsePositive && by != ColRevenue && by != ColProfit {
		return dataframe.DataFrame{}, errors.NewValidationError("by", "must be one of Loss from False Positive, Revenue, Profit", by)
	}
	cf, err := c.binary(op)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	n := len(cf.names)
	table := map[string][]float64{
		ColLossFalsePositive: make([]float64, n),
		ColRevenue:           make([]float64, n),
		ColProfit:            make([]float64, n),
	}
	for i, m := range cf.names {
		cm := cf.cms[m]
		loss := cm.At(0, 1) * c.costs[0][1]
		revenue := cm.At(1, 1) * c.costs[1][1]
		table[ColLossFalsePositive][i] = loss
		table[ColRevenue][i] = revenue
		table[ColProfit][i] = revenue - loss
	}

	order := orderBy(cf.names, table[by])
	return dataframe.New(
		series.New(permuteStrings(cf.names, order), series.String, "Model"),
		series.New(permute(table[ColLossFalsePositive], order), series.Float, ColLossFalsePositive),
		series.New(permute(table[ColRevenue], order), series.Float, ColRevenue),
		series.New(permute(table[ColProfit], order), series.Float, ColProfit),
	), nil
}

// OpportunityCost は偽陰性と偽陽性のコストの合計をモデルごとに降順で返す
func (c *Comparison) OpportunityCost() (dataset.Summary, error) {
	cf, err := c.binary("Comparison.OpportunityCost")
	if err != nil {
		return dataset.Summary{}, err
	}
	s := dataset.Summary{Name: "Opportunity cost"}
	for _, m := range cf.names {
		cm := cf.cms[m]
		s.Labels = append(s.Labels, m)
		s.Values = append(s.Values, cm.At(1, 0)*c.costs[1][0]+cm.At(0, 1)*c.costs[0][1])
	}
	return s.Sorted(true), nil
}

// CostNoML はモデルを使わずにすべてを陽性として扱った場合の費用、収益、純収益を返す
func (c *Comparison) CostNoML() (dataset.Summary, error) {
	y, err := c.testTarget("Comparison.CostNoML")
	if err != nil {
		return dataset.Summary{}, err
	}
	var negatives, positives float64
	for _, v := range y.RawVector().Data {
		switch v {
		case 0:
			negatives++
		case 1:
			positives++
		}
	}
	expense := negatives * c.costs[1][0]
	revenue := positives * c.costs[1][1]
	return dataset.Summary{
		Name:   "Costs of not using ML",
		Labels: []string{"Expense", "Revenue", "Net revenue"},
		Values: []float64{expense, revenue, revenue - expense},
	}, nil
}
