package rectify

import (
	"errors"
	"fmt"
	"image"

	"gridlens/pkg/geometry"
)

// Rectification is the canonical view of one grid and the transforms linking
// it to the source photo.
type Rectification struct {
	Corners Corners
	Size    int
	Image   *image.Gray         // Size x Size
	Forward geometry.Homography // source -> canonical
	Inverse geometry.Homography // canonical -> source
}

// Rectifier maps a detected quadrilateral onto a Size x Size square.
type Rectifier struct {
	Size int
}

// NewRectifier creates a Rectifier for a canonical square of side size.
func NewRectifier(size int) *Rectifier {
	return &Rectifier{Size: size}
}

// Transform computes the forward and inverse homographies for corners.
// Corners with three collinear points, or that do not bound a convex
// quadrilateral, are rejected with ErrDegenerateQuad.
func (r *Rectifier) Transform(c Corners) (forward, inverse geometry.Homography, err error) {
	quad := c.Quad()
	if geometry.AnyCollinear(quad[:], CollinearEpsilon) {
		return forward, inverse, fmt.Errorf("%w: three corners are collinear (%s)", ErrDegenerateQuad, c)
	}
	if !geometry.IsConvex(quad[:]) {
		return forward, inverse, fmt.Errorf("%w: corners do not form a convex quadrilateral (%s)", ErrDegenerateQuad, c)
	}

	forward, err = geometry.HomographyFromQuad(quad, Canonical(r.Size))
	if err != nil {
		return forward, inverse, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}
	inverse, err = forward.Inverse()
	if err != nil {
		return forward, inverse, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}
	return forward, inverse, nil
}

// Rectify orders points into corners and warps img into the canonical square.
func (r *Rectifier) Rectify(img *image.Gray, points []geometry.PointInt) (*Rectification, error) {
	if r.Size <= 0 {
		return nil, errors.New("rectifier size must be positive")
	}

	corners, err := OrderCorners(points)
	if err != nil {
		return nil, err
	}

	forward, inverse, err := r.Transform(corners)
	if err != nil {
		return nil, err
	}

	return &Rectification{
		Corners: corners,
		Size:    r.Size,
		Image:   WarpInverse(img, inverse, r.Size, r.Size),
		Forward: forward,
		Inverse: inverse,
	}, nil
}

// ToSource maps a point of the canonical square back into the photo.
func (r *Rectification) ToSource(p geometry.Point2D) geometry.Point2D {
	return r.Inverse.Apply(p)
}

// ToCanonical maps a photo point into the canonical square.
func (r *Rectification) ToCanonical(p geometry.Point2D) geometry.Point2D {
	return r.Forward.Apply(p)
}
