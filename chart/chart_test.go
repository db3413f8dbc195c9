package chart

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/copper/pkg/errors"
)

func requireSaved(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestHistogram(t *testing.T) {
	p, err := Histogram("age", []float64{1, 2, 2, 3, math.NaN(), 5}, 4)
	require.NoError(t, err)
	assert.Equal(t, "age", p.Title.Text)

	path := filepath.Join(t.TempDir(), "hist.png")
	require.NoError(t, Save(p, path, 3*vg.Inch))
	requireSaved(t, path)

	_, err = Histogram("empty", []float64{math.NaN()}, 4)
	assert.Error(t, err)

	_, err = Histogram("bins", []float64{1}, 0)
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestScatter(t *testing.T) {
	p, err := Scatter("xy", "x", "y", []float64{1, 2, 3}, []float64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, "x", p.X.Label.Text)

	_, err = Scatter("xy", "x", "y", []float64{1, 2}, []float64{1})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestGroupedScatterAndSave(t *testing.T) {
	p, err := GroupedScatter("groups", "PC1", "PC2", []Series{
		{Name: "a", X: []float64{0, 1}, Y: []float64{0, 1}},
		{Name: "b", X: []float64{2, 3}, Y: []float64{2, math.NaN()}},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "groups.svg")
	require.NoError(t, Save(p, path, 0))
	requireSaved(t, path)

	assert.Error(t, Save(p, filepath.Join(t.TempDir(), "noext"), 0))
}

func TestROC(t *testing.T) {
	p, err := ROC([]Series{
		{Name: "lr (AUC 0.750)", X: []float64{0, 0, 0.5, 0.5, 1}, Y: []float64{0, 0.5, 0.5, 1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.X.Max)

	path := filepath.Join(t.TempDir(), "roc.png")
	require.NoError(t, Save(p, path, 0))
	requireSaved(t, path)
}

func TestConfusionMatrix(t *testing.T) {
	cm := mat.NewDense(2, 2, []float64{5, 1, 2, 7})
	p, err := ConfusionMatrix("lr", cm, []string{"no", "yes"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cm.png")
	require.NoError(t, Save(p, path, 0))
	requireSaved(t, path)

	_, err = ConfusionMatrix("bad", cm, []string{"only"})
	assert.Error(t, err)
	_, err = ConfusionMatrix("bad", mat.NewDense(1, 2, nil), []string{"a"})
	assert.Error(t, err)
}

func TestCMGrid(t *testing.T) {
	g := cmGrid{m: mat.NewDense(2, 2, []float64{1, 2, 3, 4}), n: 2}
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	// the first matrix row is drawn on top
	assert.Equal(t, 3.0, g.Z(0, 0))
	assert.Equal(t, 2.0, g.Z(1, 1))
	assert.Equal(t, 1.0, g.rowY(0))
}
