// Package model は比較ハーネスが外部の推定器に要求するインターフェースを定義します。
// 推定器の実装そのものはこのモジュールには含まれず、gonumの mat.Matrix を受け付ける
// 任意のライブラリ（scigoなど）のモデルをそのまま登録できます。
package model

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う。結果は n×1 の行列
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Model は比較ハーネスに登録できるモデルです。
type Model interface {
	Fitter
	Predictor
}

// ProbabilisticModel はクラス確率を出力できるモデルです。
// PredictProba の結果は n×k の行列で、列はソート済みのクラス順に並びます。
type ProbabilisticModel interface {
	Model
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// AsProbabilistic は m が PredictProba を実装していればそれを返します。
func AsProbabilistic(m Model) (ProbabilisticModel, bool) {
	pm, ok := m.(ProbabilisticModel)
	return pm, ok
}

// TypeName はログ出力用にモデルの型名をパッケージ名なしで返します。
func TypeName(m interface{}) string {
	name := fmt.Sprintf("%T", m)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
