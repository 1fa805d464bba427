package geometry

import "math"

// IsConvex returns true if the polygon vertices form a convex polygon.
// A self-intersecting quadrilateral turns both ways and is not convex; for
// more vertices the polygon is assumed to be simple.
func IsConvex(polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	n := len(polygon)
	var sign int

	for i := 0; i < n; i++ {
		cross := crossProduct(
			polygon[i],
			polygon[(i+1)%n],
			polygon[(i+2)%n],
		)

		if cross != 0 {
			currentSign := 1
			if cross < 0 {
				currentSign = -1
			}

			if sign == 0 {
				sign = currentSign
			} else if currentSign != sign {
				return false
			}
		}
	}

	return sign != 0
}

// Collinear reports whether a, b and c span a triangle with twice-area
// at most eps.
func Collinear(a, b, c Point2D, eps float64) bool {
	return math.Abs(crossProduct(a, b, c)) <= eps
}

// AnyCollinear reports whether any three of the given points are collinear.
func AnyCollinear(points []Point2D, eps float64) bool {
	n := len(points)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				if Collinear(points[i], points[j], points[k], eps) {
					return true
				}
			}
		}
	}
	return false
}

// crossProduct returns the z-component of (b-a) x (c-a).
func crossProduct(a, b, c Point2D) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
