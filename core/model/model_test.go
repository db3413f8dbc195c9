package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/pkg/errors"
)

type constModel struct{ v float64 }

func (m *constModel) Fit(X, y mat.Matrix) error { return nil }

func (m *constModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, m.v)
	}
	return out, nil
}

type probaModel struct{ constModel }

func (m *probaModel) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 2, nil), nil
}

func TestAsProbabilistic(t *testing.T) {
	_, ok := AsProbabilistic(&constModel{})
	assert.False(t, ok)

	pm, ok := AsProbabilistic(&probaModel{})
	require.True(t, ok)
	p, err := pm.PredictProba(mat.NewDense(3, 1, nil))
	require.NoError(t, err)
	r, c := p.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "constModel", TypeName(&constModel{}))
	assert.Equal(t, "probaModel", TypeName(probaModel{}))
}

func TestStateManager(t *testing.T) {
	s := NewStateManager("Encoder")
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("Transform")
	require.Error(t, err)
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Encoder", nf.ModelName)
	assert.Equal(t, "Transform", nf.Method)

	s.SetFitted(4, 100)
	assert.True(t, s.IsFitted())
	nFeatures, nSamples := s.Dimensions()
	assert.Equal(t, 4, nFeatures)
	assert.Equal(t, 100, nSamples)

	assert.NoError(t, s.RequireFeatures("Transform", 4))
	err = s.RequireFeatures("Transform", 3)
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.Expected)
	assert.Equal(t, 3, de.Got)

	s.Reset()
	assert.False(t, s.IsFitted())
}
