package rectify

import (
	"image"
	"testing"

	"gridlens/internal/lines"
	"gridlens/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(xy ...int) []geometry.PointInt {
	out := make([]geometry.PointInt, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geometry.PointInt{X: xy[i], Y: xy[i+1]})
	}
	return out
}

func TestOrderCorners(t *testing.T) {
	c, err := OrderCorners(pts(474, 474, 20, 474, 474, 20, 20, 20, 200, 210))
	require.NoError(t, err)
	assert.Equal(t, geometry.PointInt{X: 20, Y: 20}, c.TopLeft)
	assert.Equal(t, geometry.PointInt{X: 474, Y: 20}, c.TopRight)
	assert.Equal(t, geometry.PointInt{X: 474, Y: 474}, c.BottomRight)
	assert.Equal(t, geometry.PointInt{X: 20, Y: 474}, c.BottomLeft)
}

func TestOrderCornersTiesKeepFirst(t *testing.T) {
	// (10,30) and (30,10) tie on x+y; the first one is kept as top-left.
	c, err := OrderCorners(pts(10, 30, 30, 10, 400, 0, 0, 400, 400, 400))
	require.NoError(t, err)
	assert.Equal(t, geometry.PointInt{X: 10, Y: 30}, c.TopLeft)
}

func TestOrderCornersTooFew(t *testing.T) {
	_, err := OrderCorners(pts(0, 0, 10, 0, 10, 10))
	assert.ErrorIs(t, err, lines.ErrInsufficientCorners)
}

func TestOrderCornersSharedRole(t *testing.T) {
	// (20,0) is both the largest x+y and the largest x-y.
	_, err := OrderCorners(pts(0, 0, 10, 0, 5, 0, 20, 0))
	assert.ErrorIs(t, err, ErrDegenerateQuad)
}

func TestTransformCollinearCorners(t *testing.T) {
	r := NewRectifier(100)
	_, _, err := r.Transform(Corners{
		TopLeft:     geometry.PointInt{X: 0, Y: 0},
		TopRight:    geometry.PointInt{X: 50, Y: 0},
		BottomRight: geometry.PointInt{X: 100, Y: 0},
		BottomLeft:  geometry.PointInt{X: 0, Y: 100},
	})
	assert.ErrorIs(t, err, ErrDegenerateQuad)
}

func TestTransformNonConvexCorners(t *testing.T) {
	r := NewRectifier(100)
	cases := []struct {
		name    string
		corners Corners
	}{
		{"crossed", Corners{
			TopLeft:     geometry.PointInt{X: 0, Y: 0},
			TopRight:    geometry.PointInt{X: 100, Y: 0},
			BottomRight: geometry.PointInt{X: 0, Y: 100},
			BottomLeft:  geometry.PointInt{X: 100, Y: 100},
		}},
		{"dart", Corners{
			TopLeft:     geometry.PointInt{X: 0, Y: 0},
			TopRight:    geometry.PointInt{X: 100, Y: 0},
			BottomRight: geometry.PointInt{X: 30, Y: 30},
			BottomLeft:  geometry.PointInt{X: 0, Y: 100},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := r.Transform(tc.corners)
			assert.ErrorIs(t, err, ErrDegenerateQuad)
		})
	}
}

func TestRectifyMapsCornersToCanonicalSquare(t *testing.T) {
	cases := []struct {
		name    string
		points  []geometry.PointInt
		corners [4]geometry.PointInt
	}{
		{
			name:    "tilted",
			points:  pts(30, 40, 400, 25, 430, 420, 15, 390),
			corners: [4]geometry.PointInt{{X: 30, Y: 40}, {X: 400, Y: 25}, {X: 430, Y: 420}, {X: 15, Y: 390}},
		},
		{
			name:    "keystone",
			points:  pts(120, 60, 360, 60, 460, 440, 20, 440),
			corners: [4]geometry.PointInt{{X: 120, Y: 60}, {X: 360, Y: 60}, {X: 460, Y: 440}, {X: 20, Y: 440}},
		},
		{
			name:    "small and skewed",
			points:  pts(200, 210, 260, 190, 290, 260, 215, 280),
			corners: [4]geometry.PointInt{{X: 200, Y: 210}, {X: 260, Y: 190}, {X: 290, Y: 260}, {X: 215, Y: 280}},
		},
		{
			name: "extra interior points",
			points: pts(240, 230, 40, 50, 130, 140, 420, 30, 300, 300,
				440, 410, 25, 400, 200, 380),
			corners: [4]geometry.PointInt{{X: 40, Y: 50}, {X: 420, Y: 30}, {X: 440, Y: 410}, {X: 25, Y: 400}},
		},
	}

	img := image.NewGray(image.Rect(0, 0, 480, 460))
	r := NewRectifier(495)
	canon := Canonical(495)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rect, err := r.Rectify(img, tc.points)
			require.NoError(t, err)
			assert.Equal(t, 495, rect.Size)
			assert.Equal(t, image.Rect(0, 0, 495, 495), rect.Image.Bounds())

			quad := rect.Corners.Quad()
			for i := range quad {
				assert.Equal(t, tc.corners[i].ToFloat(), quad[i], "corner %d", i)

				got := rect.ToCanonical(quad[i])
				assert.LessOrEqual(t, got.Distance(canon[i]), 1.0, "corner %d mapped to %v", i, got)

				back := rect.ToSource(canon[i])
				assert.LessOrEqual(t, back.Distance(quad[i]), 1.0)
			}

			product := rect.Forward.Compose(rect.Inverse)
			assert.True(t, product.ApproxEqual(geometry.IdentityHomography(), 1e-6), "%v", product)
		})
	}
}

func TestRectifyTranslationSamplesSource(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 130, 130))
	img.Pix[img.PixOffset(50, 60)] = 255

	r := NewRectifier(100)
	rect, err := r.Rectify(img, pts(10, 10, 110, 10, 110, 110, 10, 110))
	require.NoError(t, err)

	assert.Equal(t, uint8(255), rect.Image.GrayAt(40, 50).Y)
	assert.Equal(t, uint8(0), rect.Image.GrayAt(41, 50).Y)
}

func TestRectifyTooFewPoints(t *testing.T) {
	r := NewRectifier(495)
	rect, err := r.Rectify(image.NewGray(image.Rect(0, 0, 10, 10)), pts(1, 1, 5, 5))
	assert.ErrorIs(t, err, lines.ErrInsufficientCorners)
	assert.Nil(t, rect)
}

func TestWarpOutsideReadsZero(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	out, err := Warp(src, geometry.IdentityHomography(), 20, 20)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out.GrayAt(5, 5).Y)
	assert.Equal(t, uint8(255), out.GrayAt(9, 9).Y)
	assert.Equal(t, uint8(0), out.GrayAt(15, 15).Y)
}

func TestWarpSingular(t *testing.T) {
	_, err := Warp(image.NewGray(image.Rect(0, 0, 4, 4)), geometry.Homography{}, 4, 4)
	assert.ErrorIs(t, err, ErrDegenerateQuad)
}

func TestWarpInverseMatchesPointSampling(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 48))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 7)
	}
	inv := geometry.Homography{{0.9, 0.1, 3}, {-0.05, 1.1, 2}, {0.0005, 0.0002, 1}}

	out := WarpInverse(src, inv, 70, 61)
	for y := 0; y < 61; y++ {
		for x := 0; x < 70; x++ {
			p := inv.Apply(geometry.Point2D{X: float64(x), Y: float64(y)})
			require.Equal(t, sampleBilinear(src, p.X, p.Y), out.GrayAt(x, y).Y, "(%d,%d)", x, y)
		}
	}
}

func TestWarpSubImageReadsParentCoordinates(t *testing.T) {
	page := image.NewGray(image.Rect(0, 0, 40, 40))
	page.Pix[page.PixOffset(25, 22)] = 255
	sub := page.SubImage(image.Rect(20, 20, 40, 40)).(*image.Gray)

	out := WarpInverse(sub, geometry.Translation(20, 20), 20, 20)
	assert.Equal(t, uint8(255), out.GrayAt(5, 2).Y)
	assert.Equal(t, uint8(0), out.GrayAt(6, 2).Y)
}

func TestSampleBilinear(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.Pix[1] = 200

	assert.Equal(t, uint8(100), sampleBilinear(src, 0.5, 0))
	assert.Equal(t, uint8(200), sampleBilinear(src, 1, 0))
	// Half a pixel past the right edge blends with the black border.
	assert.Equal(t, uint8(100), sampleBilinear(src, 1.5, 0))
	assert.Equal(t, uint8(0), sampleBilinear(src, 5, 0))
}
