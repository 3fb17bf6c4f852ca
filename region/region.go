// Package region splits a rectangular area of interest into a left and right
// half and sorts detection boxes into those halves.
package region

import (
	"image"
	"math"
)

// Box is a detection rectangle in image pixel space.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the midpoint of the box.
func (b Box) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Rect rounds the box down to integral pixels.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

// normalize swaps inverted corners and reports whether the box has a finite,
// non-zero area.
func (b Box) normalize() (Box, bool) {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return b, false
		}
	}

	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}

	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}

	return b, b.X1 < b.X2 && b.Y1 < b.Y2
}

// Region is the axis-aligned area considered for counting.
type Region struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// RegionFor insets a w x h frame by margin on every side.
func RegionFor(w, h int, margin float64) Region {
	return Region{
		X1: margin,
		Y1: margin,
		X2: float64(w) - margin,
		Y2: float64(h) - margin,
	}
}

// Degenerate reports a region with zero or negative extent.
func (r Region) Degenerate() bool {
	return !(r.X2 > r.X1 && r.Y2 > r.Y1)
}

// Contains is inclusive on every edge.
func (r Region) Contains(x, y float64) bool {
	return r.X1 <= x && x <= r.X2 && r.Y1 <= y && y <= r.Y2
}

// Mid is the default split coordinate.
func (r Region) Mid() float64 {
	return math.Floor((r.X1 + r.X2) / 2)
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2))
}
