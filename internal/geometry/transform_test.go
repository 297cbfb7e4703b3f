package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaleMapApply(t *testing.T) {
	t.Parallel()

	m := ScaleMap{Factor: 2.5}
	x, y, err := m.Apply(100, 40)
	require.NoError(t, err)
	assert.Equal(t, 250.0, x)
	assert.Equal(t, 100.0, y)
}

func TestHomographyMapsCornerPairs(t *testing.T) {
	t.Parallel()

	src := [4]Point{{X: 10, Y: 20}, {X: 15, Y: 520}, {X: 610, Y: 25}, {X: 600, Y: 530}}
	dst := [4]Point{{X: 0, Y: 0}, {X: 0, Y: 500}, {X: 500, Y: 0}, {X: 500, Y: 500}}

	hm, err := Homography(src, dst)
	require.NoError(t, err)

	for i := range src {
		u, v, err := hm.Apply(src[i].X, src[i].Y)
		require.NoError(t, err)
		assert.InDelta(t, dst[i].X, u, 1e-6, "corner %d x", i)
		assert.InDelta(t, dst[i].Y, v, 1e-6, "corner %d y", i)
	}
}

func TestHomographyIdentity(t *testing.T) {
	t.Parallel()

	square := [4]Point{{X: 0, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 0}, {X: 100, Y: 100}}
	hm, err := Homography(square, square)
	require.NoError(t, err)

	// An identity homography must leave arbitrary interior and exterior
	// points alone, not just the corners.
	for _, p := range []Point{{X: 33, Y: 7}, {X: 50, Y: 50}, {X: 250, Y: -40}} {
		u, v, err := hm.Apply(p.X, p.Y)
		require.NoError(t, err)
		assert.InDelta(t, p.X, u, 1e-6)
		assert.InDelta(t, p.Y, v, 1e-6)
	}
}

func TestHomographyDegenerateCorners(t *testing.T) {
	t.Parallel()

	// Three collinear source corners cannot define a plane mapping.
	src := [4]Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 100, Y: 0}}
	dst := [4]Point{{X: 0, Y: 0}, {X: 0, Y: 100}, {X: 100, Y: 0}, {X: 100, Y: 100}}

	_, err := Homography(src, dst)
	assert.Error(t, err)
}

func TestHomographyMatrixIsACopy(t *testing.T) {
	t.Parallel()

	square := [4]Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	hm, err := Homography(square, square)
	require.NoError(t, err)

	m := hm.Matrix()
	m.Set(0, 0, 99)

	u, _, err := hm.Apply(1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, u, 1e-6, "mutating the returned matrix must not affect the map")
}
