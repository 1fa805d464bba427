package lines

import (
	"math"
	"testing"

	"gridlens/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// borderLines returns Hough-style lines for an axis-aligned square with
// near-duplicate detections on every side.
func borderLines(lo, hi float64) []geometry.Line {
	return []geometry.Line{
		{Rho: lo, Theta: math.Pi / 2},
		{Rho: lo + 2, Theta: math.Pi/2 + 0.01},
		{Rho: hi, Theta: math.Pi / 2},
		{Rho: lo, Theta: 0},
		{Rho: lo + 1, Theta: 0.01},
		{Rho: hi, Theta: 0},
		{Rho: -hi, Theta: math.Pi - 0.005}, // right side reported with flipped sign
	}
}

func TestPartition(t *testing.T) {
	policy := DefaultFamilyPolicy()
	a, b := policy.Partition(borderLines(20, 474))

	assert.Len(t, a, 3)
	assert.Len(t, b, 4)
	for _, l := range a {
		assert.True(t, l.Theta >= 1 && l.Theta <= 3)
	}
}

func TestPartitionBoundariesAreInclusive(t *testing.T) {
	policy := DefaultFamilyPolicy()
	assert.True(t, policy.InFamilyA(geometry.Line{Theta: 1}))
	assert.True(t, policy.InFamilyA(geometry.Line{Theta: 3}))
	assert.False(t, policy.InFamilyA(geometry.Line{Theta: 0.999}))
	assert.False(t, policy.InFamilyA(geometry.Line{Theta: 3.001}))
}

func TestCandidatesSkipsParallelPairs(t *testing.T) {
	a := []geometry.Line{{Rho: 10, Theta: 1.5}}
	b := []geometry.Line{{Rho: 30, Theta: 1.5}, {Rho: 5, Theta: 0}}

	points, skipped := Candidates(a, b)
	assert.Equal(t, 1, skipped)
	assert.Len(t, points, 1)
}

func TestClusterFindsFourCorners(t *testing.T) {
	c := NewClusterer(DefaultFamilyPolicy(), 10)

	res, err := c.Cluster(borderLines(20, 474))
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 12)
	require.Len(t, res.Corners, 4)

	want := []geometry.PointInt{{X: 20, Y: 20}, {X: 474, Y: 20}, {X: 20, Y: 474}, {X: 474, Y: 474}}
	for _, w := range want {
		found := false
		for _, got := range res.Corners {
			// Tilted duplicates pull the fused corner a few pixels.
			if geometry.SquaredDistance(w, got) <= 36 {
				found = true
			}
		}
		assert.True(t, found, "no corner near %v in %v", w, res.Corners)
	}
}

func TestClusterSingleFamily(t *testing.T) {
	c := NewClusterer(DefaultFamilyPolicy(), 10)
	lines := []geometry.Line{
		{Rho: 20, Theta: math.Pi / 2},
		{Rho: 200, Theta: math.Pi / 2},
		{Rho: 474, Theta: math.Pi/2 + 0.02},
	}

	res, err := c.Cluster(lines)
	assert.ErrorIs(t, err, ErrInsufficientCorners)
	require.NotNil(t, res)
	assert.Empty(t, res.Corners)
}

func TestClusterTooFewAfterFusion(t *testing.T) {
	c := NewClusterer(DefaultFamilyPolicy(), 10)
	// Two horizontal and one vertical line give only two corners.
	lines := []geometry.Line{
		{Rho: 20, Theta: math.Pi / 2},
		{Rho: 400, Theta: math.Pi / 2},
		{Rho: 50, Theta: 0},
	}

	_, err := c.Cluster(lines)
	assert.ErrorIs(t, err, ErrInsufficientCorners)
}
