package geometry

import "math"

const parallelEpsilon = 1e-10

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 Point) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ProjectPointOnSegment returns the closest point on segment [a,b] to p,
// clamped to the segment ends rather than the infinite line.
func ProjectPointOnSegment(p, a, b Point) Point {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Point{X: a.X + t*dx, Y: a.Y + t*dy}
}

// SegmentIntersection returns the intersection point of segments [p1,p2] and
// [p3,p4] when it lies within both segments' parametric range [0,1]. Parallel
// or non-overlapping segments return ok=false.
func SegmentIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	denom := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(denom) < parallelEpsilon {
		return Point{}, false
	}

	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / denom
	u := ((p1.X-p3.X)*(p1.Y-p2.Y) - (p1.Y-p3.Y)*(p1.X-p2.X)) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return Point{X: p1.X + t*(p2.X-p1.X), Y: p1.Y + t*(p2.Y-p1.Y)}, true
}

// lineIntersection intersects the infinite lines through [p1,p2] and [p3,p4].
func lineIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	denom := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(denom) < parallelEpsilon {
		return Point{}, false
	}
	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / denom
	return Point{X: p1.X + t*(p2.X-p1.X), Y: p1.Y + t*(p2.Y-p1.Y)}, true
}

// Area computes the unsigned shoelace area of a closed ring.
func Area(ring []Point) float64 {
	return math.Abs(signedArea(ring))
}

// signedArea is positive for counter-clockwise winding in a Y-down space.
func signedArea(ring []Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum / 2
}

// Length computes the total Euclidean length of an open path.
func Length(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1], path[i])
	}
	return total
}

// Perimeter computes the closed-ring boundary length.
func Perimeter(ring []Point) float64 {
	if len(ring) < 2 {
		return 0
	}
	return Length(ring) + Distance(ring[len(ring)-1], ring[0])
}

// nearestVertex returns the index of the path vertex closest to p.
func nearestVertex(path []Point, p Point) int {
	best := 0
	bestDist := Distance(path[0], p)
	for i, v := range path[1:] {
		if d := Distance(v, p); d < bestDist {
			bestDist = d
			best = i + 1
		}
	}
	return best
}

// nearestOnPath returns the closest boundary point to p along an open path,
// together with the index of the segment it falls on.
func nearestOnPath(path []Point, p Point) (Point, int) {
	bestPoint := path[0]
	bestSeg := 0
	bestDist := math.Inf(1)
	for i := 0; i < len(path)-1; i++ {
		candidate := ProjectPointOnSegment(p, path[i], path[i+1])
		if d := Distance(candidate, p); d < bestDist {
			bestDist = d
			bestPoint = candidate
			bestSeg = i
		}
	}
	return bestPoint, bestSeg
}
