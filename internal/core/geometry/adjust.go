package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/planscale/takeoff-engine/internal/core/fault"
)

// joinTolerance is the maximum endpoint gap, in pixels, that Join bridges.
const joinTolerance = 1.0

type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Result is the outcome of an adjustment: the new geometry plus its
// recomputed pixel quantity.
type Result struct {
	Geometry      Geometry `json:"geometry"`
	PixelQuantity float64  `json:"pixel_quantity"`
}

// SplitResult carries both halves of a split. The caller owns creating a
// sibling measurement and revision node for Second.
type SplitResult struct {
	First  Result `json:"first"`
	Second Result `json:"second"`
}

func resultOf(g Geometry) Result {
	return Result{Geometry: g, PixelQuantity: g.PixelQuantity()}
}

// Nudge translates every vertex by distance pixels in the given direction.
func Nudge(g Geometry, direction Direction, distance float64) (Result, error) {
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	if distance <= 0 {
		return Result{}, fault.Wrap(fault.ErrValidation, "nudge",
			fmt.Errorf("distance must be positive, got %v", distance))
	}

	var dx, dy float64
	switch direction {
	case DirectionUp:
		dy = -distance
	case DirectionDown:
		dy = distance
	case DirectionLeft:
		dx = -distance
	case DirectionRight:
		dx = distance
	default:
		return Result{}, fault.Wrap(fault.ErrValidation, "nudge",
			fmt.Errorf("unknown direction %q", direction))
	}

	out := g.Clone()
	for i := range out.Points {
		out.Points[i].X += dx
		out.Points[i].Y += dy
	}
	return resultOf(out), nil
}

// SnapToGrid rounds every vertex to the nearest multiple of gridSize.
// Degenerate results (zero-area polygon, zero-length line or polyline) are
// rejected.
func SnapToGrid(g Geometry, gridSize float64) (Result, error) {
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	if gridSize <= 0 {
		return Result{}, fault.Wrap(fault.ErrValidation, "snap to grid",
			fmt.Errorf("grid size must be positive, got %v", gridSize))
	}

	out := g.Clone()
	for i := range out.Points {
		out.Points[i].X = math.Round(out.Points[i].X/gridSize) * gridSize
		out.Points[i].Y = math.Round(out.Points[i].Y/gridSize) * gridSize
	}

	switch out.Kind {
	case KindPolygon:
		if Area(out.Points) == 0 {
			return Result{}, fault.Wrap(fault.ErrValidation, "snap to grid",
				errors.New("snapping collapsed polygon to zero area"))
		}
	case KindLine, KindPolyline:
		if Length(out.Points) == 0 {
			return Result{}, fault.Wrap(fault.ErrValidation, "snap to grid",
				errors.New("snapping collapsed path to zero length"))
		}
	}
	return resultOf(out), nil
}

// Extend pushes the terminal vertex of a line or polyline further along the
// terminal segment's direction so the new endpoint lies at the projection of
// target onto that direction. The target must project beyond the current
// endpoint.
func Extend(g Geometry, target Point) (Result, error) {
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	if g.Kind != KindLine && g.Kind != KindPolyline {
		return Result{}, fault.Wrap(fault.ErrValidation, "extend",
			fmt.Errorf("cannot extend a %s", g.Kind))
	}

	n := len(g.Points)
	anchor := g.Points[n-2]
	end := g.Points[n-1]
	segLen := Distance(anchor, end)
	if segLen == 0 {
		return Result{}, fault.Wrap(fault.ErrValidation, "extend",
			errors.New("terminal segment has zero length"))
	}

	ux := (end.X - anchor.X) / segLen
	uy := (end.Y - anchor.Y) / segLen
	t := (target.X-anchor.X)*ux + (target.Y-anchor.Y)*uy
	if t <= segLen {
		return Result{}, fault.Wrap(fault.ErrValidation, "extend",
			errors.New("target does not extend beyond the terminal segment"))
	}

	out := g.Clone()
	out.Points[n-1] = Point{X: anchor.X + t*ux, Y: anchor.Y + t*uy}
	return resultOf(out), nil
}

// Trim keeps the sub-path from the start through the vertex closest to
// trimPoint, discarding everything beyond it. Fails if fewer than 2 vertices
// would remain.
func Trim(g Geometry, trimPoint Point) (Result, error) {
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	if g.Kind != KindLine && g.Kind != KindPolyline {
		return Result{}, fault.Wrap(fault.ErrValidation, "trim",
			fmt.Errorf("cannot trim a %s", g.Kind))
	}

	idx := nearestVertex(g.Points, trimPoint)
	if idx < 1 {
		return Result{}, fault.Wrap(fault.ErrValidation, "trim",
			errors.New("trim would leave fewer than 2 points"))
	}

	kept := clonePoints(g.Points[:idx+1])
	kind := KindPolyline
	if len(kept) == 2 {
		kind = KindLine
	}
	return resultOf(Geometry{Kind: kind, Points: kept}), nil
}

// Offset produces a parallel contour at perpendicular distance. side selects
// the offset direction: +1 offsets toward the right of travel (outward for a
// counter-clockwise polygon in a Y-down space), -1 the opposite. Source
// geometry with self-intersections is rejected.
func Offset(g Geometry, distance float64, side int) (Result, error) {
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	if g.Kind != KindPolyline && g.Kind != KindPolygon {
		return Result{}, fault.Wrap(fault.ErrValidation, "offset",
			fmt.Errorf("cannot offset a %s", g.Kind))
	}
	if distance <= 0 {
		return Result{}, fault.Wrap(fault.ErrValidation, "offset",
			fmt.Errorf("distance must be positive, got %v", distance))
	}
	if side != 1 && side != -1 {
		return Result{}, fault.Wrap(fault.ErrValidation, "offset",
			fmt.Errorf("side must be +1 or -1, got %d", side))
	}
	if selfIntersects(g) {
		return Result{}, fault.Wrap(fault.ErrValidation, "offset",
			errors.New("source geometry self-intersects"))
	}

	d := distance * float64(side)
	closed := g.Kind == KindPolygon

	type seg struct{ a, b Point }
	segments := make([]seg, 0, len(g.Points))
	n := len(g.Points)
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		a := g.Points[i]
		b := g.Points[(i+1)%n]
		segLen := Distance(a, b)
		if segLen == 0 {
			return Result{}, fault.Wrap(fault.ErrValidation, "offset",
				errors.New("zero-length segment in source geometry"))
		}
		// Perpendicular to the right of travel direction.
		nx := -(b.Y - a.Y) / segLen * d
		ny := (b.X - a.X) / segLen * d
		segments = append(segments, seg{
			a: Point{X: a.X + nx, Y: a.Y + ny},
			b: Point{X: b.X + nx, Y: b.Y + ny},
		})
	}

	out := make([]Point, 0, n)
	if closed {
		for i := range segments {
			prev := segments[(i-1+len(segments))%len(segments)]
			cur := segments[i]
			if p, ok := lineIntersection(prev.a, prev.b, cur.a, cur.b); ok {
				out = append(out, p)
			} else {
				out = append(out, cur.a)
			}
		}
		result, err := NewPolygon(out)
		if err != nil {
			return Result{}, err
		}
		return resultOf(result), nil
	}

	out = append(out, segments[0].a)
	for i := 1; i < len(segments); i++ {
		prev := segments[i-1]
		cur := segments[i]
		if p, ok := lineIntersection(prev.a, prev.b, cur.a, cur.b); ok {
			out = append(out, p)
		} else {
			out = append(out, cur.a)
		}
	}
	out = append(out, segments[len(segments)-1].b)
	result, err := NewPolyline(out)
	if err != nil {
		return Result{}, err
	}
	return resultOf(result), nil
}

// Split cuts the geometry at the nearest point on its boundary to splitPoint
// and returns two independent geometries. Polygons are opened into two
// polyline halves along the ring. Splitting at or next to an endpoint fails
// because one side would be degenerate.
func Split(g Geometry, splitPoint Point) (SplitResult, error) {
	if err := g.Validate(); err != nil {
		return SplitResult{}, err
	}

	var path []Point
	switch g.Kind {
	case KindLine, KindPolyline:
		path = g.Points
	case KindPolygon:
		path = append(clonePoints(g.Points), g.Points[0])
	default:
		return SplitResult{}, fault.Wrap(fault.ErrValidation, "split",
			fmt.Errorf("cannot split a %s", g.Kind))
	}

	cut, segIdx := nearestOnPath(path, splitPoint)

	first := clonePoints(path[:segIdx+1])
	if Distance(first[len(first)-1], cut) > 0 {
		first = append(first, cut)
	}
	second := []Point{cut}
	for _, p := range path[segIdx+1:] {
		if Distance(p, cut) > 0 || len(second) > 1 {
			second = append(second, p)
		}
	}

	if len(first) < 2 || len(second) < 2 {
		return SplitResult{}, fault.Wrap(fault.ErrValidation, "split",
			errors.New("split point too close to an endpoint"))
	}

	a, err := NewPolyline(first)
	if err != nil {
		return SplitResult{}, err
	}
	b, err := NewPolyline(second)
	if err != nil {
		return SplitResult{}, err
	}
	return SplitResult{First: resultOf(a), Second: resultOf(b)}, nil
}

// Join concatenates two linear geometries whose endpoints meet within a small
// tolerance into one polyline.
func Join(a, b Geometry) (Result, error) {
	if err := a.Validate(); err != nil {
		return Result{}, err
	}
	if err := b.Validate(); err != nil {
		return Result{}, err
	}
	if (a.Kind != KindLine && a.Kind != KindPolyline) || (b.Kind != KindLine && b.Kind != KindPolyline) {
		return Result{}, fault.Wrap(fault.ErrValidation, "join",
			fmt.Errorf("cannot join %s and %s", a.Kind, b.Kind))
	}

	ap := clonePoints(a.Points)
	bp := clonePoints(b.Points)

	type pairing struct {
		gap        float64
		revA, revB bool
	}
	candidates := []pairing{
		{gap: Distance(ap[len(ap)-1], bp[0])},
		{gap: Distance(ap[len(ap)-1], bp[len(bp)-1]), revB: true},
		{gap: Distance(ap[0], bp[0]), revA: true},
		{gap: Distance(ap[0], bp[len(bp)-1]), revA: true, revB: true},
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.gap < best.gap {
			best = c
		}
	}
	if best.gap > joinTolerance {
		return Result{}, fault.Wrap(fault.ErrValidation, "join",
			fmt.Errorf("no shared endpoint within %v px (closest gap %.2f px)", joinTolerance, best.gap))
	}

	if best.revA {
		reversePoints(ap)
	}
	if best.revB {
		reversePoints(bp)
	}

	joined := ap
	start := 0
	if Distance(ap[len(ap)-1], bp[0]) == 0 {
		start = 1
	}
	joined = append(joined, bp[start:]...)

	out, err := NewPolyline(joined)
	if err != nil {
		return Result{}, err
	}
	return resultOf(out), nil
}

// selfIntersects reports whether any two non-adjacent segments of the
// geometry cross.
func selfIntersects(g Geometry) bool {
	pts := g.Points
	n := len(pts)
	segCount := n - 1
	closed := g.Kind == KindPolygon
	if closed {
		segCount = n
	}

	segAt := func(i int) (Point, Point) {
		return pts[i%n], pts[(i+1)%n]
	}

	for i := 0; i < segCount; i++ {
		for j := i + 2; j < segCount; j++ {
			// Skip the closing segment's adjacency with the first.
			if closed && i == 0 && j == segCount-1 {
				continue
			}
			a1, a2 := segAt(i)
			b1, b2 := segAt(j)
			if _, ok := SegmentIntersection(a1, a2, b1, b2); ok {
				return true
			}
		}
	}
	return false
}
