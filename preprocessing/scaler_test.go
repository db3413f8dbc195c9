package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/copper/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})

	scaler := NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{2.5, 10}, scaler.Mean, 1e-12)
	assert.InDelta(t, 1.118033988749895, scaler.Scale[0], 1e-12)
	assert.Equal(t, 1.0, scaler.Scale[1], "constant column keeps unit scale")

	col := mat.Col(nil, 0, out)
	assert.InDeltaSlice(t, []float64{-1.3416407865, -0.4472135955, 0.4472135955, 1.3416407865}, col, 1e-9)
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 1, out))

	back, err := scaler.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
}

func TestStandardScalerErrors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "StandardScaler", nf.ModelName)

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(2, 3, nil))
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Expected)
	assert.Equal(t, 3, de.Got)

	assert.Error(t, NewStandardScalerDefault().Fit(&mat.Dense{}))
}

func TestStandardScalerWithoutMean(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 4})
	scaler := NewStandardScaler(false, true)
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, scaler.Mean)
	assert.InDeltaSlice(t, []float64{2, 4}, mat.Col(nil, 0, out), 1e-12)
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, 5,
		5, 5,
		10, 5,
	})

	scaler := NewMinMaxScaler([2]float64{-1, 1})
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{-1, 0, 1}, mat.Col(nil, 0, out), 1e-12)
	assert.InDeltaSlice(t, []float64{-1, -1, -1}, mat.Col(nil, 1, out), 1e-12)

	back, err := scaler.InverseTransform(out)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))
	assert.True(t, scaler.IsFitted())
}
