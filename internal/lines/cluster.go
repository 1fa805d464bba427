// Package lines turns detected Hough lines into fused grid corner candidates.
package lines

import (
	"errors"
	"fmt"

	"gridlens/pkg/geometry"
)

// ErrInsufficientCorners is returned when fewer than four corners survive fusion.
var ErrInsufficientCorners = errors.New("insufficient corners")

// MinCorners is the number of fused points needed to rectify.
const MinCorners = 4

// FamilyPolicy splits lines into two roughly perpendicular families by angle.
// Lines with MinTheta <= Theta <= MaxTheta belong to family A (near
// horizontal for Theta around pi/2), all others to family B.
type FamilyPolicy struct {
	MinTheta float64
	MaxTheta float64
}

// DefaultFamilyPolicy returns the 1..3 radian split.
func DefaultFamilyPolicy() FamilyPolicy {
	return FamilyPolicy{MinTheta: 1, MaxTheta: 3}
}

// InFamilyA reports whether l belongs to family A.
func (p FamilyPolicy) InFamilyA(l geometry.Line) bool {
	return l.Theta >= p.MinTheta && l.Theta <= p.MaxTheta
}

// Partition splits lines into the two families, preserving input order.
func (p FamilyPolicy) Partition(lines []geometry.Line) (a, b []geometry.Line) {
	for _, l := range lines {
		if p.InFamilyA(l) {
			a = append(a, l)
		} else {
			b = append(b, l)
		}
	}
	return a, b
}

// Candidates intersects every (a, b) pair in a-major order. Parallel pairs
// are skipped and counted.
func Candidates(a, b []geometry.Line) (points []geometry.PointInt, skipped int) {
	points = make([]geometry.PointInt, 0, len(a)*len(b))
	for _, la := range a {
		for _, lb := range b {
			p, err := geometry.Intersect(la, lb)
			if err != nil {
				skipped++
				continue
			}
			points = append(points, p)
		}
	}
	return points, skipped
}

// Result carries the intermediate products of one clustering pass.
type Result struct {
	FamilyA    []geometry.Line
	FamilyB    []geometry.Line
	Candidates []geometry.PointInt
	Skipped    int
	Corners    []geometry.PointInt // fused
}

// Clusterer fuses line intersections into corner candidates.
type Clusterer struct {
	Policy         FamilyPolicy
	FusionDistance float64
}

// NewClusterer creates a Clusterer.
func NewClusterer(policy FamilyPolicy, fusionDistance float64) *Clusterer {
	return &Clusterer{Policy: policy, FusionDistance: fusionDistance}
}

// Cluster partitions lines, intersects the families and fuses the result.
// The partial Result is returned alongside ErrInsufficientCorners.
func (c *Clusterer) Cluster(lines []geometry.Line) (*Result, error) {
	res := &Result{}
	res.FamilyA, res.FamilyB = c.Policy.Partition(lines)
	res.Candidates, res.Skipped = Candidates(res.FamilyA, res.FamilyB)
	res.Corners = geometry.Fuse(res.Candidates, c.FusionDistance)

	if len(res.Corners) < MinCorners {
		return res, fmt.Errorf("%w: %d fused points from %d lines (%d/%d per family, %d parallel pairs)",
			ErrInsufficientCorners, len(res.Corners), len(lines),
			len(res.FamilyA), len(res.FamilyB), res.Skipped)
	}
	return res, nil
}
