package metrics

import (
	"sort"

	"github.com/YuminosukeSato/copper/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy は予測ラベルが正解ラベルと一致した割合を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("Accuracy", "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionMatrix は混同行列を計算する。
// 行が正解ラベル、列が予測ラベルで、並びは labels の順序に従う。
// labels が nil の場合は yTrue と yPred に現れる値の和集合を昇順に並べたものを使う。
// labels に含まれない値を持つサンプルは集計されない。
func ConfusionMatrix(yTrue, yPred []float64, labels []float64) (*mat.Dense, []float64, error) {
	n := len(yTrue)
	if n == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if len(yPred) != n {
		return nil, nil, errors.NewDimensionError("ConfusionMatrix", n, len(yPred), 0)
	}
	if labels == nil {
		labels = UniqueSorted(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "no labels")
	}

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, okT := index[yTrue[i]]
		c, okP := index[yPred[i]]
		if !okT || !okP {
			continue
		}
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, labels, nil
}

// UniqueSorted は複数のスライスに現れる値の和集合を昇順で返す
func UniqueSorted(values ...[]float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, vs := range values {
		for _, v := range vs {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
