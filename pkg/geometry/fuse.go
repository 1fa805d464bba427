package geometry

// Fuse merges points that lie closer than d into single representatives.
//
// Each pass visits points in input order. An unclaimed point seeds a cluster
// and claims every later unclaimed point whose squared distance to the seed is
// below d*d; the cluster is replaced by its mean, rounded half to even.
// Passes repeat until one merges nothing, so no two returned points are closer
// than d and fusing the result again returns it unchanged.
//
// The clustering is greedy and order dependent, not globally optimal.
func Fuse(points []PointInt, d float64) []PointInt {
	fused, merged := fusePass(points, d)
	for merged {
		fused, merged = fusePass(fused, d)
	}
	return fused
}

// fusePass runs one greedy pass and reports whether any points were merged.
func fusePass(points []PointInt, d float64) ([]PointInt, bool) {
	limit := d * d
	taken := make([]bool, len(points))
	fused := make([]PointInt, 0, len(points))
	merged := false

	for i := range points {
		if taken[i] {
			continue
		}
		taken[i] = true
		sumX, sumY := points[i].X, points[i].Y
		count := 1

		for j := i + 1; j < len(points); j++ {
			if taken[j] {
				continue
			}
			if float64(SquaredDistance(points[i], points[j])) < limit {
				sumX += points[j].X
				sumY += points[j].Y
				count++
				taken[j] = true
			}
		}

		if count == 1 {
			fused = append(fused, points[i])
			continue
		}
		merged = true
		mean := Point2D{X: float64(sumX) / float64(count), Y: float64(sumY) / float64(count)}
		fused = append(fused, mean.Round())
	}

	return fused, merged
}
