package metrics

import (
	"github.com/YuminosukeSato/copper/pkg/errors"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ROCCurve は二値分類のROC曲線を計算する。
// yTrue は0または1、yScore は陽性クラスのスコア（確率）。
// 戻り値の fpr と tpr は昇順で、thresholds の各値に対して score >= threshold を陽性とした場合の率を表す。
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	scores, classes, err := binaryInputs("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, thresholds = stat.ROC(nil, scores, classes, nil)
	return fpr, tpr, thresholds, nil
}

// AUC はROC曲線下面積を台形積分で計算する。
// yTrue に片方のクラスしか含まれない場合は0.5を返し、UndefinedMetricWarningを発生させる。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	scores, classes, err := binaryInputs("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}

	positives := 0
	for _, c := range classes {
		if c {
			positives++
		}
	}
	if positives == 0 || positives == len(classes) {
		errors.Warn(errors.NewUndefinedMetricWarning("AUC", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// AUCMatrix は行列形式の入力に対してAUCを計算する。複数列の場合は先頭列を使う。
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	if yTrue == nil || yScore == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	r, c := yTrue.Dims()
	rs, cs := yScore.Dims()
	if r == 0 || c == 0 || rs == 0 || cs == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if r != rs {
		return 0, errors.NewDimensionError("AUCMatrix", r, rs, 0)
	}

	t := mat.NewVecDense(r, nil)
	s := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		t.SetVec(i, yTrue.At(i, 0))
		s.SetVec(i, yScore.At(i, 0))
	}
	return AUC(t, s)
}

// binaryInputs はスコアのコピーと真偽値のクラスラベルを返す
func binaryInputs(op string, yTrue, yScore *mat.VecDense) ([]float64, []bool, error) {
	if yTrue == nil || yScore == nil {
		return nil, nil, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return nil, nil, errors.NewValueError(op, "empty vector")
	}
	if yScore.Len() != n {
		return nil, nil, errors.NewDimensionError(op, n, yScore.Len(), 0)
	}

	scores := make([]float64, n)
	classes := make([]bool, n)
	for i := 0; i < n; i++ {
		switch yTrue.AtVec(i) {
		case 0:
		case 1:
			classes[i] = true
		default:
			return nil, nil, errors.NewValueError(op, "y_true must contain only 0 and 1")
		}
		scores[i] = yScore.AtVec(i)
	}
	return scores, classes, nil
}
