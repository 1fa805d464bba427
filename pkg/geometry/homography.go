package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned when a projective system has no unique solution.
var ErrSingular = errors.New("singular homography")

const quadEpsilon = 1e-6

// Homography is a 3x3 projective transform, row-major.
//
//	[h00 h01 h02]
//	[h10 h11 h12]
//	[h20 h21 h22]
type Homography [3][3]float64

// IdentityHomography returns the identity transform.
func IdentityHomography() Homography {
	return Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// HomographyFromQuad computes the homography mapping src[i] to dst[i].
// The result is normalized so that h22 = 1.
func HomographyFromQuad(src, dst [4]Point2D) (Homography, error) {
	if AnyCollinear(src[:], quadEpsilon) || AnyCollinear(dst[:], quadEpsilon) {
		return Homography{}, fmt.Errorf("three of four points are collinear: %w", ErrSingular)
	}

	// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
	// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		A.Set(r, 0, X)
		A.Set(r, 1, Y)
		A.Set(r, 2, 1)
		A.Set(r, 6, -X*x)
		A.Set(r, 7, -Y*x)
		b.SetVec(r, x)

		A.Set(r+1, 3, X)
		A.Set(r+1, 4, Y)
		A.Set(r+1, 5, 1)
		A.Set(r+1, 6, -X*y)
		A.Set(r+1, 7, -Y*y)
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return Homography{}, fmt.Errorf("solve 8x8 system: %v: %w", err, ErrSingular)
	}

	H := Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}
	for _, row := range H {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Homography{}, fmt.Errorf("non-finite coefficient: %w", ErrSingular)
			}
		}
	}
	return H, nil
}

// Dense returns the transform as a gonum matrix.
func (h Homography) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	})
}

func fromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r][c] = m.At(r, c)
		}
	}
	return h
}

// Translation returns the homography that shifts points by (dx, dy).
func Translation(dx, dy float64) Homography {
	return Homography{{1, 0, dx}, {0, 1, dy}, {0, 0, 1}}
}

// Apply maps p through the transform. Points sent to infinity come back
// with infinite coordinates.
func (h Homography) Apply(p Point2D) Point2D {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
}

// Compose returns h * other, the transform that applies other first.
func (h Homography) Compose(other Homography) Homography {
	var out mat.Dense
	out.Mul(h.Dense(), other.Dense())
	return fromDense(&out)
}

// Inverse returns the inverse transform, normalized so that h22 = 1 when
// possible.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, fmt.Errorf("invert: %v: %w", err, ErrSingular)
	}
	out := fromDense(&inv)
	if s := out[2][2]; s != 0 && !math.IsNaN(s) {
		for r := range out {
			for c := range out[r] {
				out[r][c] /= s
			}
		}
	}
	return out, nil
}

// ApproxEqual reports whether h and other agree element-wise within tol
// after both are scaled so that h22 = 1.
func (h Homography) ApproxEqual(other Homography, tol float64) bool {
	a, b := h.normalized(), other.normalized()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(a[r][c]-b[r][c]) > tol {
				return false
			}
		}
	}
	return true
}

func (h Homography) normalized() Homography {
	s := h[2][2]
	if s == 0 {
		return h
	}
	for r := range h {
		for c := range h[r] {
			h[r][c] /= s
		}
	}
	return h
}
