// Package geom provides the small pixel-space geometry helpers shared by
// the tracking and zone packages.
package geom

import "math"

// Point is a position in pixel space.
type Point struct {
	X float64
	Y float64
}

// BBox is an axis-aligned bounding box in pixel coordinates.
// X1,Y1 is the top-left corner and X2,Y2 the bottom-right.
type BBox struct {
	X1 int
	Y1 int
	X2 int
	Y2 int
}

// Centroid returns the integer-truncated centre of the box, matching the
// detector's pixel grid.
func (b BBox) Centroid() Point {
	return Point{
		X: float64((b.X1 + b.X2) / 2),
		Y: float64((b.Y1 + b.Y2) / 2),
	}
}

// Width returns the box width in pixels.
func (b BBox) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Empty reports whether the box has no area.
func (b BBox) Empty() bool { return b.X2 <= b.X1 || b.Y2 <= b.Y1 }

// Distance returns the Euclidean distance between two points.
func Distance(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}
