// Package geometry provides the measurement geometry model and the pure
// adjustment operations applied to it. All coordinates are page-pixel space
// with Y growing downward. Operations never mutate their input; callers may
// keep the original for comparison and undo.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/planscale/takeoff-engine/internal/core/fault"
)

type Kind string

const (
	KindPoint    Kind = "point"
	KindLine     Kind = "line"
	KindPolyline Kind = "polyline"
	KindPolygon  Kind = "polygon"
)

// Point represents a 2D point with floating-point pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry is the tagged union of point, line, polyline and polygon.
// Construct values through NewPoint, NewLine, NewPolyline and NewPolygon so
// the vertex-count and winding invariants hold; adjustment operations assume
// them.
type Geometry struct {
	Kind   Kind    `json:"kind"`
	Points []Point `json:"points"`
}

func NewPoint(p Point) Geometry {
	return Geometry{Kind: KindPoint, Points: []Point{p}}
}

func NewLine(p1, p2 Point) (Geometry, error) {
	if p1 == p2 {
		return Geometry{}, fault.Wrap(fault.ErrValidation, "new line", errors.New("zero-length line"))
	}
	return Geometry{Kind: KindLine, Points: []Point{p1, p2}}, nil
}

func NewPolyline(points []Point) (Geometry, error) {
	if len(points) < 2 {
		return Geometry{}, fault.Wrap(fault.ErrValidation, "new polyline",
			fmt.Errorf("need at least 2 points, got %d", len(points)))
	}
	return Geometry{Kind: KindPolyline, Points: clonePoints(points)}, nil
}

// NewPolygon builds an implicitly-closed polygon. Vertices are normalized to
// counter-clockwise winding so downstream operations can rely on it.
func NewPolygon(points []Point) (Geometry, error) {
	if len(points) < 3 {
		return Geometry{}, fault.Wrap(fault.ErrValidation, "new polygon",
			fmt.Errorf("need at least 3 points, got %d", len(points)))
	}
	pts := clonePoints(points)
	if signedArea(pts) < 0 {
		reversePoints(pts)
	}
	return Geometry{Kind: KindPolygon, Points: pts}, nil
}

// Validate re-checks the construction invariants, for geometries that arrive
// from outside the package (JSON payloads, database rows).
func (g Geometry) Validate() error {
	switch g.Kind {
	case KindPoint:
		if len(g.Points) != 1 {
			return fault.Wrap(fault.ErrValidation, "validate geometry",
				fmt.Errorf("point needs exactly 1 vertex, got %d", len(g.Points)))
		}
	case KindLine:
		if len(g.Points) != 2 {
			return fault.Wrap(fault.ErrValidation, "validate geometry",
				fmt.Errorf("line needs exactly 2 vertices, got %d", len(g.Points)))
		}
	case KindPolyline:
		if len(g.Points) < 2 {
			return fault.Wrap(fault.ErrValidation, "validate geometry",
				fmt.Errorf("polyline needs at least 2 vertices, got %d", len(g.Points)))
		}
	case KindPolygon:
		if len(g.Points) < 3 {
			return fault.Wrap(fault.ErrValidation, "validate geometry",
				fmt.Errorf("polygon needs at least 3 vertices, got %d", len(g.Points)))
		}
	default:
		return fault.Wrap(fault.ErrValidation, "validate geometry",
			fmt.Errorf("unknown kind %q", g.Kind))
	}
	return nil
}

func (g Geometry) Clone() Geometry {
	return Geometry{Kind: g.Kind, Points: clonePoints(g.Points)}
}

// PixelQuantity returns the raw pixel-space quantity matching the geometry's
// dimensionality: area in px² for polygons, length in px for lines and
// polylines, 1 for points (count).
func (g Geometry) PixelQuantity() float64 {
	switch g.Kind {
	case KindPolygon:
		return Area(g.Points)
	case KindLine, KindPolyline:
		return Length(g.Points)
	case KindPoint:
		return 1
	default:
		return 0
	}
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width && r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height && r.Y+r.Height > other.Y
}

// ToPolygon converts the rect corners into a polygon geometry.
func (r Rect) ToPolygon() Geometry {
	g, _ := NewPolygon([]Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y + r.Height},
		{X: r.X, Y: r.Y + r.Height},
	})
	return g
}

// BoundingBox computes the axis-aligned bounding box of the geometry.
func (g Geometry) BoundingBox() Rect {
	if len(g.Points) == 0 {
		return Rect{}
	}
	minX, minY := g.Points[0].X, g.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range g.Points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Centroid computes the average vertex position.
func (g Geometry) Centroid() Point {
	if len(g.Points) == 0 {
		return Point{}
	}
	var sumX, sumY float64
	for _, p := range g.Points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(g.Points))
	return Point{X: sumX / n, Y: sumY / n}
}

func clonePoints(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	return out
}

func reversePoints(points []Point) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}
