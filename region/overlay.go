package region

import (
	"fmt"
	"image"
	"image/color"
)

// Kind selects the shape an Instruction draws.
type Kind int

const (
	KindRect Kind = iota
	KindLine
	KindText
)

// Instruction is a single drawing step handed to a renderer. Rect is used by
// KindRect, From/To by KindLine, and From is the text origin for KindText.
type Instruction struct {
	Kind      Kind
	Rect      image.Rectangle
	From      image.Point
	To        image.Point
	Text      string
	Color     color.RGBA
	Scale     float64
	Thickness int
}

const (
	Thickness   = 2
	PersonLabel = "Person"
)

var (
	LeftColor   = color.RGBA{0, 0, 255, 255}
	RightColor  = color.RGBA{0, 255, 0, 255}
	BorderColor = color.RGBA{255, 255, 0, 255}
	SplitColor  = color.RGBA{255, 0, 0, 255}
)

// Overlay returns the region border, the split line and the two count labels
// for res. A degenerate region yields nothing.
func Overlay(res *Result) []Instruction {
	if res == nil || res.Region.Degenerate() {
		return nil
	}

	r := res.Region.Rect()
	mid := int(res.MidX)

	return []Instruction{
		{Kind: KindRect, Rect: r, Color: BorderColor, Thickness: Thickness},
		{
			Kind:      KindLine,
			From:      image.Pt(mid, r.Min.Y),
			To:        image.Pt(mid, r.Max.Y),
			Color:     SplitColor,
			Thickness: Thickness,
		},
		{
			Kind:      KindText,
			Text:      fmt.Sprintf("Left: %d", res.Left),
			From:      image.Pt(r.Min.X+20, r.Min.Y+40),
			Color:     LeftColor,
			Scale:     1,
			Thickness: Thickness,
		},
		{
			Kind:      KindText,
			Text:      fmt.Sprintf("Right: %d", res.Right),
			From:      image.Pt(mid+20, r.Min.Y+40),
			Color:     RightColor,
			Scale:     1,
			Thickness: Thickness,
		},
	}
}

// Instructions concatenates the per-box annotations with the overlay. Boxes
// are drawn first so the overlay stays on top.
func Instructions(res *Result) []Instruction {
	out := make([]Instruction, 0, len(res.Annotations)+4)
	out = append(out, res.Annotations...)
	return append(out, Overlay(res)...)
}
