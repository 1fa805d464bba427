package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomographyFromQuadMapsCorners(t *testing.T) {
	src := [4]Point2D{{X: 37, Y: 52}, {X: 461, Y: 30}, {X: 490, Y: 470}, {X: 12, Y: 455}}
	dst := [4]Point2D{{X: 0, Y: 0}, {X: 495, Y: 0}, {X: 495, Y: 495}, {X: 0, Y: 495}}

	h, err := HomographyFromQuad(src, dst)
	require.NoError(t, err)

	for i := range src {
		got := h.Apply(src[i])
		assert.InDelta(t, dst[i].X, got.X, 1e-6)
		assert.InDelta(t, dst[i].Y, got.Y, 1e-6)
	}
}

func TestHomographyInverse(t *testing.T) {
	src := [4]Point2D{{X: 10, Y: 20}, {X: 300, Y: 5}, {X: 320, Y: 280}, {X: 0, Y: 310}}
	dst := [4]Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}}

	h, err := HomographyFromQuad(src, dst)
	require.NoError(t, err)
	inv, err := h.Inverse()
	require.NoError(t, err)

	assert.True(t, inv.Compose(h).ApproxEqual(IdentityHomography(), 1e-9))
	assert.True(t, h.Compose(inv).ApproxEqual(IdentityHomography(), 1e-9))

	p := Point2D{X: 150, Y: 140}
	back := inv.Apply(h.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestHomographyFromCollinearQuad(t *testing.T) {
	src := [4]Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}
	dst := [4]Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

	_, err := HomographyFromQuad(src, dst)
	assert.ErrorIs(t, err, ErrSingular)
}

func TestHomographySingularInverse(t *testing.T) {
	h := Homography{{1, 2, 3}, {2, 4, 6}, {0, 0, 1}}
	_, err := h.Inverse()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestCollinear(t *testing.T) {
	assert.True(t, Collinear(Point2D{X: 0, Y: 0}, Point2D{X: 5, Y: 5}, Point2D{X: 10, Y: 10}, 1e-9))
	assert.False(t, Collinear(Point2D{X: 0, Y: 0}, Point2D{X: 5, Y: 0}, Point2D{X: 0, Y: 5}, 1e-9))
	assert.True(t, IsConvex([]Point2D{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}, {X: 0, Y: 5}}))
	assert.False(t, IsConvex([]Point2D{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 5, Y: 0}, {X: 0, Y: 5}}))
}

func TestTranslationComposes(t *testing.T) {
	h := Homography{{2, 0, 0}, {0, 2, 0}, {0, 0, 1}}.Compose(Translation(100, 50))
	p := h.Apply(Point2D{X: 1, Y: 1})
	assert.InDelta(t, 202, p.X, 1e-9)
	assert.InDelta(t, 102, p.Y, 1e-9)
}
