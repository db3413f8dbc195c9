// Package transform はデータセットを機械学習用の行列に変換します。
//
// Category入力列はone-hot列（"col [value]"）に、Category目的変数は0から始まるラベルに
// 変換されます。変換規則は訓練データで Fit したときに固定され、テストデータには同じ規則が
// 適用されます。
package transform

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/core/model"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
	"github.com/YuminosukeSato/copper/preprocessing"
)

// ToNumber は通貨記号や桁区切りを取り除いて文字列を数値に変換する。変換できなければNaN。
func ToNumber(s string) float64 {
	return dataset.ToNumber(s)
}

// EncoderOption は Encoder の設定オプション
type EncoderOption func(*Encoder)

// WithStandardize は数値入力列を訓練データの平均と標準偏差で標準化する
func WithStandardize() EncoderOption {
	return func(e *Encoder) { e.scaler = preprocessing.NewStandardScalerDefault() }
}

// WithScaler は数値入力列に任意のTransformerを適用する
func WithScaler(s model.Transformer) EncoderOption {
	return func(e *Encoder) { e.scaler = s }
}

// Encoder はデータセットのInput列とTarget列を行列に変換する
type Encoder struct {
	state  *model.StateManager
	scaler model.Transformer
	logger log.Logger

	inputs     []string
	inputTypes map[string]dataset.Type
	categories map[string][]string
	features   []string
	numeric    []int

	target     string
	targetType dataset.Type
	classes    []string
}

// NewEncoder は新しいEncoderを作成する
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		state:  model.NewStateManager("Encoder"),
		logger: log.GetLoggerWithName("transform"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit は入力列のカテゴリと目的変数のクラスを学習する。
// Target列がないデータセットでも Fit できるが、その場合 TransformTarget はエラーになる。
func (e *Encoder) Fit(ds *dataset.Dataset) error {
	inputs := ds.Filter(dataset.Filter{Roles: []dataset.Role{dataset.Input}})
	if len(inputs) == 0 {
		return errors.ErrNoInputs
	}

	e.inputs = inputs
	e.inputTypes = make(map[string]dataset.Type, len(inputs))
	e.categories = make(map[string][]string)
	e.features = e.features[:0]
	e.numeric = e.numeric[:0]
	for _, c := range inputs {
		t, _ := ds.Type(c)
		e.inputTypes[c] = t
		if t == dataset.Number {
			e.numeric = append(e.numeric, len(e.features))
			e.features = append(e.features, c)
			continue
		}
		s, _ := ds.Col(c)
		cats := uniqueRecords(s.Records(), dataset.MissingMask(s))
		e.categories[c] = cats
		for _, v := range cats {
			e.features = append(e.features, c+" ["+v+"]")
		}
	}

	if len(e.features) == 0 {
		return errors.ErrNoInputs
	}
	e.fitTarget(ds)

	e.state.SetFitted(len(e.features), ds.Len())
	if err := e.fitScaler("transform.Encoder.Fit", ds); err != nil {
		e.state.Reset()
		return err
	}

	e.logger.Debug("Encoder fitted",
		log.OperationKey, log.OperationFit,
		log.FeaturesKey, len(e.features),
		log.SamplesKey, ds.Len(),
		log.ClassesKey, len(e.classes),
	)
	return nil
}

// FitScaler は学習済みのカテゴリとクラスを保ったまま、数値入力列の Scaler だけを ds で学習し直す。
// カテゴリはデータ全体、Scaler は訓練行だけで学習したい場合に使う。Scaler がなければ何もしない。
func (e *Encoder) FitScaler(ds *dataset.Dataset) error {
	if err := e.state.RequireFitted("FitScaler"); err != nil {
		return err
	}
	return e.fitScaler("transform.Encoder.FitScaler", ds)
}

func (e *Encoder) fitScaler(op string, ds *dataset.Dataset) error {
	if e.scaler == nil || len(e.numeric) == 0 {
		return nil
	}
	raw, err := e.encode(ds)
	if err != nil {
		return err
	}
	if err := e.scaler.Fit(e.numericColumns(raw)); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

// Transform はInput列を行列に変換する。欠損値が残っている場合は MissingValueError。
func (e *Encoder) Transform(ds *dataset.Dataset) (*mat.Dense, error) {
	if err := e.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}
	X, err := e.encode(ds)
	if err != nil {
		return nil, err
	}
	if e.scaler != nil && len(e.numeric) > 0 {
		scaled, err := e.scaler.Transform(e.numericColumns(X))
		if err != nil {
			return nil, errors.Wrap(err, "transform.Encoder.Transform")
		}
		r, _ := X.Dims()
		col := make([]float64, r)
		for k, j := range e.numeric {
			X.SetCol(j, mat.Col(col, k, scaled))
		}
	}
	return X, nil
}

// FitTransform は Fit と Transform を続けて実行する
func (e *Encoder) FitTransform(ds *dataset.Dataset) (*mat.Dense, error) {
	if err := e.Fit(ds); err != nil {
		return nil, err
	}
	return e.Transform(ds)
}

func (e *Encoder) encode(ds *dataset.Dataset) (*mat.Dense, error) {
	for _, c := range e.inputs {
		if _, err := ds.Col(c); err != nil {
			return nil, err
		}
	}
	n := ds.Len()
	if n == 0 {
		return nil, errors.ErrEmptyData
	}

	X := mat.NewDense(n, len(e.features), nil)
	j := 0
	for _, c := range e.inputs {
		s, _ := ds.Col(c)
		if e.inputTypes[c] == dataset.Number {
			X.SetCol(j, s.Float())
			j++
			continue
		}
		cats := e.categories[c]
		index := make(map[string]int, len(cats))
		for k, v := range cats {
			index[v] = k
		}
		mask := dataset.MissingMask(s)
		for i, rec := range s.Records() {
			if mask[i] {
				for k := range cats {
					X.Set(i, j+k, math.NaN())
				}
				continue
			}
			// カテゴリが学習時に存在しなければすべて0
			if k, ok := index[rec]; ok {
				X.Set(i, j+k, 1)
			}
		}
		j += len(cats)
	}

	if err := errors.CheckMatrix("Encoder.Transform", X, n, len(e.features), e.features); err != nil {
		return nil, err
	}
	return X, nil
}

func (e *Encoder) numericColumns(X *mat.Dense) *mat.Dense {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(e.numeric), nil)
	col := make([]float64, r)
	for k, j := range e.numeric {
		out.SetCol(k, mat.Col(col, j, X))
	}
	return out
}

// fitTarget records the first Target column of ds, if any.
func (e *Encoder) fitTarget(ds *dataset.Dataset) {
	e.target, e.targetType, e.classes = "", "", nil
	name, err := ds.TargetName()
	if err != nil {
		return
	}
	e.target = name
	e.targetType, _ = ds.Type(name)
	if e.targetType == dataset.Category {
		s, _ := ds.Col(name)
		e.classes = uniqueRecords(s.Records(), dataset.MissingMask(s))
	}
}

// TransformTarget はTarget列を n×1 の行列に変換する
func (e *Encoder) TransformTarget(ds *dataset.Dataset) (*mat.Dense, error) {
	if err := e.state.RequireFitted("TransformTarget"); err != nil {
		return nil, err
	}
	if e.target == "" {
		return nil, errors.ErrNoTarget
	}
	s, err := ds.Col(e.target)
	if err != nil {
		return nil, errors.ErrNoTarget
	}

	y := mat.NewDense(s.Len(), 1, nil)
	mask := dataset.MissingMask(s)
	if e.targetType == dataset.Number {
		for i, v := range s.Float() {
			if mask[i] || math.IsNaN(v) {
				return nil, errors.NewMissingValueError("Encoder.TransformTarget", e.target, i)
			}
			y.Set(i, 0, v)
		}
		return y, nil
	}
	for i, rec := range s.Records() {
		if mask[i] {
			return nil, errors.NewMissingValueError("Encoder.TransformTarget", e.target, i)
		}
		v, err := e.EncodeLabel(rec)
		if err != nil {
			return nil, err
		}
		y.Set(i, 0, v)
	}
	return y, nil
}

// Features は出力行列の列名を返す
func (e *Encoder) Features() []string { return append([]string(nil), e.features...) }

// Classes はCategory目的変数のクラスをエンコード順に返す。Number目的変数ではnil。
func (e *Encoder) Classes() []string { return append([]string(nil), e.classes...) }

// TargetName は学習時のTarget列の名前を返す
func (e *Encoder) TargetName() string { return e.target }

// CategoricalTarget reports whether the target was label encoded.
func (e *Encoder) CategoricalTarget() bool { return e.targetType == dataset.Category }

// EncodeLabel はクラス名をエンコード後の値に変換する
func (e *Encoder) EncodeLabel(label string) (float64, error) {
	k := sort.SearchStrings(e.classes, label)
	if k == len(e.classes) || e.classes[k] != label {
		return 0, errors.NewValueError("Encoder.EncodeLabel", "unknown target class '"+label+"'")
	}
	return float64(k), nil
}

// DecodeTarget はエンコード後の値をクラス名に戻す
func (e *Encoder) DecodeTarget(v float64) (string, error) {
	k := int(math.Round(v))
	if k < 0 || k >= len(e.classes) {
		return "", errors.NewValueError("Encoder.DecodeTarget", "encoded value out of range")
	}
	return e.classes[k], nil
}

// InputsToML はデータセットだけでEncoderを学習し、入力行列と列名を返す
func InputsToML(ds *dataset.Dataset, opts ...EncoderOption) (*mat.Dense, []string, error) {
	e := NewEncoder(opts...)
	X, err := e.FitTransform(ds)
	if err != nil {
		return nil, nil, err
	}
	return X, e.Features(), nil
}

// TargetToML はデータセットだけで目的変数のエンコード規則を学習し、目的変数の行列を返す
func TargetToML(ds *dataset.Dataset) (*mat.Dense, []string, error) {
	e := NewEncoder()
	e.fitTarget(ds)
	if e.target == "" {
		return nil, nil, errors.ErrNoTarget
	}
	e.state.SetFitted(0, ds.Len())
	y, err := e.TransformTarget(ds)
	if err != nil {
		return nil, nil, err
	}
	return y, e.Classes(), nil
}

func uniqueRecords(records []string, mask []bool) []string {
	seen := make(map[string]struct{})
	var out []string
	for i, r := range records {
		if mask[i] {
			continue
		}
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}
