package game

import (
	"math"
	"testing"
)

func TestSegmentsIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Segment
		want bool
	}{
		{"crossing X", Segment{0, 0, 10, 10}, Segment{0, 10, 10, 0}, true},
		{"parallel", Segment{0, 0, 10, 0}, Segment{0, 5, 10, 5}, false},
		{"collinear overlap treated as parallel", Segment{0, 0, 10, 0}, Segment{5, 0, 15, 0}, false},
		{"would cross if extended", Segment{0, 0, 4, 4}, Segment{0, 10, 10, 0}, false},
		{"touching endpoint", Segment{0, 0, 5, 5}, Segment{5, 5, 10, 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentsIntersect(tt.a, tt.b); got != tt.want {
				t.Errorf("SegmentsIntersect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegmentIntersectsRect(t *testing.T) {
	body := Rect{X: 100, Y: 100, W: 50, H: 50}

	tests := []struct {
		name string
		seg  Segment
		want bool
	}{
		{"passes through", Segment{50, 125, 200, 125}, true},
		{"tip inside", Segment{50, 125, 110, 125}, true},
		{"starts inside", Segment{125, 125, 300, 300}, true},
		{"falls short", Segment{0, 125, 90, 125}, false},
		{"misses above", Segment{50, 90, 200, 90}, false},
		{"clips corner", Segment{90, 110, 110, 90}, true},
		{"diagonal through", Segment{80, 80, 170, 170}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SegmentIntersectsRect(tt.seg, body); got != tt.want {
				t.Errorf("SegmentIntersectsRect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeaponSegment(t *testing.T) {
	seg := WeaponSegment(0, 0, 50, 0, 100)
	if seg.X1 != 25 || seg.Y1 != 25 {
		t.Errorf("Segment should start at body centre, got (%v,%v)", seg.X1, seg.Y1)
	}
	if math.Abs(seg.X2-125) > 1e-9 || math.Abs(seg.Y2-25) > 1e-9 {
		t.Errorf("Segment should end 100 units right, got (%v,%v)", seg.X2, seg.Y2)
	}

	down := WeaponSegment(0, 0, 50, math.Pi/2, 40)
	if math.Abs(down.X2-25) > 1e-9 || math.Abs(down.Y2-65) > 1e-9 {
		t.Errorf("Segment should point down, got (%v,%v)", down.X2, down.Y2)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		v, want float64
	}{
		{0, 0},
		{850, 850},
		{851, -50},
		{-51, 850},
	}
	for _, tt := range tests {
		if got := wrap(tt.v, -50, 850); got != tt.want {
			t.Errorf("wrap(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
