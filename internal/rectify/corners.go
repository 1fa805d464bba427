// Package rectify orders grid corners and warps the grid into a canonical square.
package rectify

import (
	"errors"
	"fmt"

	"gridlens/internal/lines"
	"gridlens/pkg/geometry"
)

// ErrDegenerateQuad is returned when the corners cannot define an invertible
// projective transform.
var ErrDegenerateQuad = errors.New("degenerate quadrilateral")

// CollinearEpsilon is the smallest triangle area (px^2, doubled) accepted
// between any three corners.
const CollinearEpsilon = 1.0

// Corners names the four extreme points of the grid in image coordinates
// (y grows downward).
type Corners struct {
	TopLeft     geometry.PointInt `json:"top_left"`
	TopRight    geometry.PointInt `json:"top_right"`
	BottomRight geometry.PointInt `json:"bottom_right"`
	BottomLeft  geometry.PointInt `json:"bottom_left"`
}

// Quad returns the corners clockwise from the top left.
func (c Corners) Quad() [4]geometry.Point2D {
	return [4]geometry.Point2D{
		c.TopLeft.ToFloat(),
		c.TopRight.ToFloat(),
		c.BottomRight.ToFloat(),
		c.BottomLeft.ToFloat(),
	}
}

func (c Corners) String() string {
	return fmt.Sprintf("TL(%d,%d) TR(%d,%d) BR(%d,%d) BL(%d,%d)",
		c.TopLeft.X, c.TopLeft.Y, c.TopRight.X, c.TopRight.Y,
		c.BottomRight.X, c.BottomRight.Y, c.BottomLeft.X, c.BottomLeft.Y)
}

// Canonical returns the destination square for a side of size pixels, in the
// same order as Corners.Quad.
func Canonical(size int) [4]geometry.Point2D {
	s := float64(size)
	return [4]geometry.Point2D{{X: 0, Y: 0}, {X: s, Y: 0}, {X: s, Y: s}, {X: 0, Y: s}}
}

// OrderCorners picks the four grid corners from fused points:
//
//	top-left     = min(x+y)
//	bottom-right = max(x+y)
//	top-right    = max(x-y)
//	bottom-left  = min(x-y)
//
// Ties keep the first point in input order. When one point wins two roles the
// quad is degenerate.
func OrderCorners(points []geometry.PointInt) (Corners, error) {
	if len(points) < lines.MinCorners {
		return Corners{}, fmt.Errorf("%w: need %d points, have %d",
			lines.ErrInsufficientCorners, lines.MinCorners, len(points))
	}

	tl, br, tr, bl := 0, 0, 0, 0
	for i, p := range points {
		sum, diff := p.X+p.Y, p.X-p.Y
		if sum < points[tl].X+points[tl].Y {
			tl = i
		}
		if sum > points[br].X+points[br].Y {
			br = i
		}
		if diff > points[tr].X-points[tr].Y {
			tr = i
		}
		if diff < points[bl].X-points[bl].Y {
			bl = i
		}
	}

	roles := [4]int{tl, tr, br, bl}
	for i := 0; i < len(roles); i++ {
		for j := i + 1; j < len(roles); j++ {
			if roles[i] == roles[j] {
				return Corners{}, fmt.Errorf("%w: point (%d,%d) is extreme in two directions",
					ErrDegenerateQuad, points[roles[i]].X, points[roles[i]].Y)
			}
		}
	}

	return Corners{
		TopLeft:     points[tl],
		TopRight:    points[tr],
		BottomRight: points[br],
		BottomLeft:  points[bl],
	}, nil
}
