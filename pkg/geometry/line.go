package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ParallelEpsilon is the smallest |sin(t2-t1)| two lines may have and still
// be intersected.
const ParallelEpsilon = 1e-9

// ErrDegenerateGeometry is returned when two lines have no unique intersection.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// Line is a line in Hesse normal form: x*cos(Theta) + y*sin(Theta) = Rho.
// Theta is in [0, pi); Rho is the signed distance from the origin.
type Line struct {
	Rho   float64 `json:"rho"`
	Theta float64 `json:"theta"`
}

// NewLine creates a Line, normalizing Theta into [0, pi).
func NewLine(rho, theta float64) Line {
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	if theta >= math.Pi {
		theta -= math.Pi
		rho = -rho
	}
	return Line{Rho: rho, Theta: theta}
}

// LineThrough returns the line through p whose normal has angle theta.
func LineThrough(p Point2D, theta float64) Line {
	return NewLine(p.X*math.Cos(theta)+p.Y*math.Sin(theta), theta)
}

// Translate returns the line shifted by (dx, dy).
func (l Line) Translate(dx, dy float64) Line {
	return NewLine(l.Rho+dx*math.Cos(l.Theta)+dy*math.Sin(l.Theta), l.Theta)
}

// Normal returns the unit normal (cos Theta, sin Theta).
func (l Line) Normal() Point2D {
	return Point2D{X: math.Cos(l.Theta), Y: math.Sin(l.Theta)}
}

// Residual returns the signed distance of p from the line.
func (l Line) Residual(p Point2D) float64 {
	n := l.Normal()
	return p.X*n.X + p.Y*n.Y - l.Rho
}

// IntersectExact solves the 2x2 system for the intersection of a and b.
func IntersectExact(a, b Line) (Point2D, error) {
	c1, s1 := math.Cos(a.Theta), math.Sin(a.Theta)
	c2, s2 := math.Cos(b.Theta), math.Sin(b.Theta)

	det := c1*s2 - s1*c2
	if math.Abs(det) < ParallelEpsilon {
		return Point2D{}, fmt.Errorf("lines (%.2f, %.4f) and (%.2f, %.4f) are parallel: %w",
			a.Rho, a.Theta, b.Rho, b.Theta, ErrDegenerateGeometry)
	}

	x := (a.Rho*s2 - b.Rho*s1) / det
	y := (c1*b.Rho - c2*a.Rho) / det
	return Point2D{X: x, Y: y}, nil
}

// Intersect returns the intersection of a and b rounded to the nearest pixel.
func Intersect(a, b Line) (PointInt, error) {
	p, err := IntersectExact(a, b)
	if err != nil {
		return PointInt{}, err
	}
	return p.Round(), nil
}

// SquaredDistance returns the squared Euclidean distance between two pixels.
func SquaredDistance(p, q PointInt) int {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}
