package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVecArithmetic(t *testing.T) {
	t.Parallel()

	a := Vec{X: 3, Y: 4}
	b := Vec{X: 1, Y: -2}

	assert.Equal(t, Vec{X: 4, Y: 2}, a.Add(b))
	assert.Equal(t, Vec{X: 2, Y: 6}, a.Sub(b))
	assert.Equal(t, Vec{X: 6, Y: 8}, a.Mul(2))
	assert.InDelta(t, 5.0, a.Mag(), 1e-9)
	assert.InDelta(t, -5.0, a.Dot(b), 1e-9)
}

func TestVecDist(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 5.0, Vec{X: 1, Y: 1}.Dist(Vec{X: 4, Y: 5}), 1e-9)
	assert.Zero(t, Vec{X: 2, Y: 2}.Dist(Vec{X: 2, Y: 2}))
}

func TestVecNormalize(t *testing.T) {
	t.Parallel()

	n := Vec{X: 0, Y: 10}.Normalize()
	assert.InDelta(t, 0.0, n.X, 1e-9)
	assert.InDelta(t, 1.0, n.Y, 1e-9)

	// Degenerate input normalizes to zero, not NaN.
	z := Vec{}.Normalize()
	assert.Equal(t, Vec{}, z)
}

func TestVecPerp(t *testing.T) {
	t.Parallel()
	v := Vec{X: 2, Y: 1}
	p := v.Perp()
	assert.InDelta(t, 0.0, v.Dot(p), 1e-9)
	assert.InDelta(t, v.Mag(), p.Mag(), 1e-9)
}

func TestVecLerp(t *testing.T) {
	t.Parallel()
	a, b := Vec{X: 0, Y: 0}, Vec{X: 10, Y: 20}
	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
	assert.Equal(t, Vec{X: 5, Y: 10}, a.Lerp(b, 0.5))
}

func TestVecLimit(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 2.0, Vec{X: 3, Y: 4}.Limit(2).Mag(), 1e-9)
	short := Vec{X: 1, Y: 0}
	assert.Equal(t, short, short.Limit(5))
}
