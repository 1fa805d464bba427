// Package geometry provides basic geometric types used throughout the pipeline.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Round returns the nearest pixel, rounding halves to even.
func (p Point2D) Round() PointInt {
	return PointInt{X: int(math.RoundToEven(p.X)), Y: int(math.RoundToEven(p.Y))}
}

// PointInt represents a pixel coordinate.
type PointInt struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ToFloat converts to Point2D.
func (p PointInt) ToFloat() Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Inset returns the rectangle shrunk by margin on every side.
func (r RectInt) Inset(margin int) RectInt {
	return RectInt{X: r.X + margin, Y: r.Y + margin, Width: r.Width - 2*margin, Height: r.Height - 2*margin}
}

// ImageRect converts to an image.Rectangle.
func (r RectInt) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}
