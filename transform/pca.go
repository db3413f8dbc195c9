package transform

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/copper/core/model"
	"github.com/YuminosukeSato/copper/dataset"
	"github.com/YuminosukeSato/copper/pkg/errors"
)

// PCAModel は標準化したエンコード済み入力を主成分へ射影する
type PCAModel struct {
	state     *model.StateManager
	encoder   *Encoder
	n         int
	means     []float64
	vectors   *mat.Dense
	variances []float64
}

// FitPCA は ds の入力から上位 n 個の主成分を学習する
func FitPCA(ds *dataset.Dataset, n int) (*PCAModel, error) {
	if n <= 0 {
		return nil, errors.NewValidationError("n", "must be positive", n)
	}
	enc := NewEncoder(WithStandardize())
	X, err := enc.FitTransform(ds)
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if k := min(rows, cols); n > k {
		return nil, errors.NewValidationError("n", fmt.Sprintf("must be at most %d", k), n)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(X, nil); !ok {
		return nil, errors.NewValueError("PCA", "principal component analysis did not converge")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	means := make([]float64, cols)
	col := make([]float64, rows)
	for j := range means {
		means[j] = stat.Mean(mat.Col(col, j, X), nil)
	}

	p := &PCAModel{
		state:     model.NewStateManager("PCA"),
		encoder:   enc,
		n:         n,
		means:     means,
		vectors:   mat.DenseCopyOf(vecs.Slice(0, cols, 0, n)),
		variances: pc.VarsTo(nil),
	}
	p.state.SetFitted(cols, rows)
	return p, nil
}

// PCA は ds を学習し、主成分 PC1..PCn と元のTarget列を持つデータセットを返す
func PCA(ds *dataset.Dataset, n int) (*dataset.Dataset, *PCAModel, error) {
	p, err := FitPCA(ds, n)
	if err != nil {
		return nil, nil, err
	}
	out, err := p.Apply(ds)
	if err != nil {
		return nil, nil, err
	}
	return out, p, nil
}

// Apply は学習済みの射影を ds に適用する。テストデータを訓練データの主成分空間に揃えるために使う。
func (p *PCAModel) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if err := p.state.RequireFitted("Apply"); err != nil {
		return nil, err
	}
	X, err := p.encoder.Transform(ds)
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	centered := mat.NewDense(rows, cols, nil)
	centered.Apply(func(_, j int, v float64) float64 { return v - p.means[j] }, X)

	var scores mat.Dense
	scores.Mul(centered, p.vectors)

	columns := make([]series.Series, 0, p.n+1)
	col := make([]float64, rows)
	for _, name := range p.Components() {
		k := len(columns)
		columns = append(columns, series.New(mat.Col(col, k, &scores), series.Float, name))
	}

	targetName := p.encoder.TargetName()
	if targetName != "" {
		if s, err := ds.Col(targetName); err == nil {
			columns = append(columns, s.Copy())
		} else {
			targetName = ""
		}
	}

	out, err := dataset.New(dataframe.New(columns...))
	if err != nil {
		return nil, err
	}
	for _, name := range p.Components() {
		if err := out.SetRole(dataset.Input, name); err != nil {
			return nil, err
		}
	}
	if targetName != "" {
		t, _ := ds.Type(targetName)
		if err := out.SetRole(dataset.Target, targetName); err != nil {
			return nil, err
		}
		if err := out.SetType(t, targetName); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Components は主成分の列名 PC1..PCn を返す
func (p *PCAModel) Components() []string {
	names := make([]string, p.n)
	for i := range names {
		names[i] = fmt.Sprintf("PC%d", i+1)
	}
	return names
}

// ExplainedVarianceRatio は上位 n 個の主成分が説明する分散の割合を返す
func (p *PCAModel) ExplainedVarianceRatio() []float64 {
	var total float64
	for _, v := range p.variances {
		total += v
	}
	out := make([]float64, p.n)
	for i := range out {
		out[i] = p.variances[i] / total
	}
	return out
}
