package game

import "math"

// Rect is an axis-aligned rectangle given by its top-left corner.
type Rect struct {
	X, Y float64
	W, H float64
}

// Contains reports whether the point lies inside or on the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Segment is a line segment from (X1, Y1) to (X2, Y2).
type Segment struct {
	X1, Y1 float64
	X2, Y2 float64
}

// WeaponSegment returns the attack segment starting at the centre of a
// body whose top-left is (x, y), pointing along angle.
func WeaponSegment(x, y, bodySize, angle, reach float64) Segment {
	cx := x + bodySize/2
	cy := y + bodySize/2
	return Segment{
		X1: cx,
		Y1: cy,
		X2: cx + math.Cos(angle)*reach,
		Y2: cy + math.Sin(angle)*reach,
	}
}

// SegmentsIntersect is the parametric segment-segment test. Parallel
// segments (zero denominator) never intersect.
func SegmentsIntersect(a, b Segment) bool {
	d := (b.Y2-b.Y1)*(a.X2-a.X1) - (b.X2-b.X1)*(a.Y2-a.Y1)
	if d == 0 {
		return false
	}
	ua := ((b.X2-b.X1)*(a.Y1-b.Y1) - (b.Y2-b.Y1)*(a.X1-b.X1)) / d
	ub := ((a.X2-a.X1)*(a.Y1-b.Y1) - (a.Y2-a.Y1)*(a.X1-b.X1)) / d
	return ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1
}

// SegmentIntersectsRect reports whether the segment touches the rectangle:
// either endpoint inside, or a crossing with one of the four edges.
func SegmentIntersectsRect(s Segment, r Rect) bool {
	if r.Contains(s.X1, s.Y1) || r.Contains(s.X2, s.Y2) {
		return true
	}

	left, right := r.X, r.X+r.W
	top, bottom := r.Y, r.Y+r.H
	edges := [4]Segment{
		{left, top, right, top},
		{right, top, right, bottom},
		{right, bottom, left, bottom},
		{left, bottom, left, top},
	}
	for _, e := range edges {
		if SegmentsIntersect(s, e) {
			return true
		}
	}
	return false
}
