// Package compare は複数のモデルを同じ訓練・テストデータで学習させ、評価指標と
// 混同行列から導かれるコスト表で比較するハーネスです。
//
// 使用例:
//
//	mc := compare.New(compare.WithNJobs(4))
//	if err := mc.Sample(ds, 0.7, 42); err != nil {
//	    return err
//	}
//	_ = mc.Add("logistic", linear_model.NewLogisticRegression())
//	_ = mc.Add("pa", linear_model.NewPassiveAggressiveClassifier())
//	if err := mc.Fit(ctx); err != nil {
//	    return err
//	}
//	acc, _ := mc.Accuracy()
//	fmt.Println(acc)
package compare

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/core/model"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/metrics"
	"github.com/YuminosukeSato/copper/pkg/errors"
	"github.com/YuminosukeSato/copper/pkg/log"
	"github.com/YuminosukeSato/copper/transform"
)

// DefaultCacheSize はテストデータに対する予測結果をいくつまで保持するか
const DefaultCacheSize = 128

// DefaultCosts は混同行列の各セルに対する利益（正）と損失（負）。
// 行が正解、列が予測で、インデックス0が陰性、1が陽性。
var DefaultCosts = [2][2]float64{{1, -1}, {-1, 1}}

// Option は Comparison の設定オプション
type Option func(*Comparison)

// WithNJobs は Fit と CVAccuracy で同時に学習するモデルの数を設定する。1以下なら逐次実行。
func WithNJobs(n int) Option {
	return func(c *Comparison) { c.nJobs = n }
}

// WithLogger はログの出力先を設定する
func WithLogger(l log.Logger) Option {
	return func(c *Comparison) { c.logger = l }
}

// WithPredictionCache はテストデータに対する予測結果のキャッシュサイズを設定する。0でキャッシュを無効化。
func WithPredictionCache(size int) Option {
	return func(c *Comparison) { c.cacheSize = size }
}

// WithStandardize は数値入力列を訓練データで標準化してからモデルに渡す
func WithStandardize() Option {
	return func(c *Comparison) {
		c.encoderOpts = append(c.encoderOpts, transform.WithStandardize())
	}
}

type entry struct {
	name   string
	model  model.Model
	id     uuid.UUID
	fitted bool
	logger log.Logger
}

// Comparison は名前付きのモデル集合と、共有される訓練・テスト行列を保持する
type Comparison struct {
	names   []string
	entries map[string]*entry

	encoderOpts []transform.EncoderOption
	encoder     *transform.Encoder
	train, test *dataset.Dataset
	xTrain      *mat.Dense
	yTrain      *mat.Dense
	xTest       *mat.Dense
	yTest       *mat.Dense // テストデータにTarget列がなければnil

	costs     [2][2]float64
	nJobs     int
	cacheSize int
	cache     *lru.Cache[string, mat.Matrix]
	logger    log.Logger
}

// New は空の Comparison を作成する
func New(opts ...Option) *Comparison {
	c := &Comparison{
		entries:   make(map[string]*entry),
		costs:     DefaultCosts,
		nJobs:     1,
		cacheSize: DefaultCacheSize,
		logger:    log.GetLoggerWithName("compare"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheSize > 0 {
		// サイズが正なら lru.New は失敗しない
		c.cache, _ = lru.New[string, mat.Matrix](c.cacheSize)
	}
	return c
}

// invalidate はモデルやデータが変わったときに予測キャッシュを破棄する
func (c *Comparison) invalidate() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// ===========================================================================
// Data
// ===========================================================================

// SetTrain は訓練データを設定する。入力のエンコード規則は ds で学習し、
// 設定済みのテストデータがあれば新しい規則でエンコードし直す。
func (c *Comparison) SetTrain(ds *dataset.Dataset) error {
	enc := transform.NewEncoder(c.encoderOpts...)
	if err := enc.Fit(ds); err != nil {
		return errors.Wrap(err, "Comparison.SetTrain")
	}
	if err := c.setTrainWith(enc, ds); err != nil {
		return err
	}
	if c.test != nil {
		if err := c.SetTest(c.test); err != nil {
			c.test, c.xTest, c.yTest = nil, nil, nil
			return err
		}
	}
	return nil
}

func (c *Comparison) setTrainWith(enc *transform.Encoder, ds *dataset.Dataset) error {
	X, err := enc.Transform(ds)
	if err != nil {
		return errors.Wrap(err, "Comparison.SetTrain")
	}
	y, err := enc.TransformTarget(ds)
	if err != nil {
		return errors.Wrap(err, "Comparison.SetTrain")
	}
	c.encoder, c.train, c.xTrain, c.yTrain = enc, ds, X, y
	for _, e := range c.entries {
		e.fitted = false
	}
	c.invalidate()

	c.logger.Info("Training data set",
		log.SamplesKey, ds.Len(),
		log.FeaturesKey, len(enc.Features()),
		log.ClassesKey, len(enc.Classes()),
	)
	return nil
}

// SetTest はテストデータを設定する。Target列は任意で、ない場合は予測だけが可能。
func (c *Comparison) SetTest(ds *dataset.Dataset) error {
	if c.encoder == nil {
		return errors.NewMissingDataError("Comparison.SetTest", "train")
	}
	X, err := c.encoder.Transform(ds)
	if err != nil {
		return errors.Wrap(err, "Comparison.SetTest")
	}
	var y *mat.Dense
	if _, err := ds.Col(c.encoder.TargetName()); err == nil {
		if y, err = c.encoder.TransformTarget(ds); err != nil {
			return errors.Wrap(err, "Comparison.SetTest")
		}
	}
	c.test, c.xTest, c.yTest = ds, X, y
	c.invalidate()

	c.logger.Info("Test data set",
		log.SamplesKey, ds.Len(),
		"has_target", y != nil,
	)
	return nil
}

// Sample は ds をシャッフルして訓練データとテストデータに分割する。
// テストデータの行数は ceil((1-trainSize)·n)。カテゴリとクラスは ds 全体で、
// WithStandardize の Scaler は訓練行だけで学習する。
func (c *Comparison) Sample(ds *dataset.Dataset, trainSize float64, seed uint64) error {
	if trainSize <= 0 || trainSize >= 1 {
		return errors.NewValidationError("train_size", "must be in (0, 1)", trainSize)
	}
	n := ds.Len()
	// 1-0.7 のような浮動小数点誤差で1行多くならないよう丸める
	nTest := int(math.Ceil((1-trainSize)*float64(n) - 1e-9))
	if nTest < 1 || nTest >= n {
		return errors.NewValidationError("train_size", "leaves an empty train or test set", trainSize)
	}

	enc := transform.NewEncoder(c.encoderOpts...)
	if err := enc.Fit(ds); err != nil {
		return errors.Wrap(err, "Comparison.Sample")
	}

	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)
	train, err := ds.Rows(perm[nTest:])
	if err != nil {
		return err
	}
	test, err := ds.Rows(perm[:nTest])
	if err != nil {
		return err
	}
	// 標準化は訓練行だけで学習する
	if err := enc.FitScaler(train); err != nil {
		return errors.Wrap(err, "Comparison.Sample")
	}
	if err := c.setTrainWith(enc, train); err != nil {
		return err
	}
	c.logger.Debug("Dataset sampled",
		log.OperationKey, log.OperationSample,
		"train_rows", n-nTest,
		"test_rows", nTest,
	)
	return c.SetTest(test)
}

// Train は訓練データのデータセットを返す。未設定ならnil。
func (c *Comparison) Train() *dataset.Dataset { return c.train }

// Test はテストデータのデータセットを返す。未設定ならnil。
func (c *Comparison) Test() *dataset.Dataset { return c.test }

// Features はモデルに渡される入力行列の列名を返す
func (c *Comparison) Features() []string {
	if c.encoder == nil {
		return nil
	}
	return c.encoder.Features()
}

// Classes はCategory目的変数のクラスを返す。Number目的変数や訓練データ未設定ならnil。
func (c *Comparison) Classes() []string {
	if c.encoder == nil {
		return nil
	}
	return c.encoder.Classes()
}

// ===========================================================================
// Models
// ===========================================================================

// Add はモデルを登録する。同じ名前のモデルがあれば、一覧上の位置を保ったまま置き換える。
func (c *Comparison) Add(name string, m model.Model) error {
	if name == "" {
		return errors.NewValidationError("name", "must not be empty", name)
	}
	if m == nil {
		return errors.NewValidationError("model", "must not be nil", name)
	}
	id := uuid.New()
	e := &entry{
		name:  name,
		model: m,
		id:    id,
		logger: c.logger.With(
			log.ModelNameKey, name,
			log.ModelTypeKey, model.TypeName(m),
			log.EstimatorIDKey, id.String(),
		),
	}
	if _, ok := c.entries[name]; !ok {
		c.names = append(c.names, name)
	}
	c.entries[name] = e
	c.invalidate()
	e.logger.Debug("Model added")
	return nil
}

// AddAll は models を prefix_0, prefix_1, ... という名前で登録する
func (c *Comparison) AddAll(prefix string, models ...model.Model) error {
	for i, m := range models {
		if err := c.Add(prefix+"_"+strconv.Itoa(i), m); err != nil {
			return err
		}
	}
	return nil
}

// Remove は登録済みのモデルを削除する
func (c *Comparison) Remove(name string) error {
	if _, ok := c.entries[name]; !ok {
		return errors.NewUnknownModelError(name)
	}
	delete(c.entries, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
	c.invalidate()
	return nil
}

// Clear はすべてのモデルを削除する
func (c *Comparison) Clear() {
	c.names = nil
	c.entries = make(map[string]*entry)
	c.invalidate()
}

// Models は登録順のモデル名を返す
func (c *Comparison) Models() []string {
	return append([]string(nil), c.names...)
}

// Model は名前に対応するモデルを返す
func (c *Comparison) Model(name string) (model.Model, error) {
	e, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.model, nil
}

func (c *Comparison) lookup(name string) (*entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, errors.NewUnknownModelError(name)
	}
	return e, nil
}

// selected resolves names to entries; no names means every registered model.
func (c *Comparison) selected(names []string) ([]*entry, error) {
	if len(names) == 0 {
		names = c.names
	}
	out := make([]*entry, 0, len(names))
	for _, n := range names {
		e, err := c.lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ===========================================================================
// Costs
// ===========================================================================

// SetCosts は Profit、OpportunityCost、CostNoML で使うコスト行列を設定する
func (c *Comparison) SetCosts(costs [2][2]float64) {
	c.costs = costs
}

// Costs は現在のコスト行列を返す
func (c *Comparison) Costs() [2][2]float64 { return c.costs }

// trainLabels はエンコード後の目的変数が取りうる値を昇順で返す
func (c *Comparison) trainLabels() []float64 {
	if c.encoder.CategoricalTarget() {
		labels := make([]float64, len(c.encoder.Classes()))
		for i := range labels {
			labels[i] = float64(i)
		}
		return labels
	}
	return metrics.UniqueSorted(mat.Col(nil, 0, c.yTrain))
}

// labelName はエンコード後の値を表示用の名前に戻す
func (c *Comparison) labelName(v float64) string {
	if c.encoder != nil && c.encoder.CategoricalTarget() {
		if s, err := c.encoder.DecodeTarget(v); err == nil {
			return s
		}
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
