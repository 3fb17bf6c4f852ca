package region

import "image"

// Partition is the side of the split line a box was assigned to.
type Partition int

const (
	Excluded Partition = iota
	Left
	Right
)

func (p Partition) String() string {
	switch p {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "excluded"
	}
}

// Assignment tags one input box.
type Assignment struct {
	Index     int
	Box       Box
	Partition Partition
}

// Result holds the outcome of one Classify call.
type Result struct {
	Region      Region
	MidX        float64
	Assignments []Assignment
	Left        int
	Right       int
	Annotations []Instruction
}

// InRegion is the number of boxes counted on either side.
func (r *Result) InRegion() int {
	return r.Left + r.Right
}

// Classify assigns every box whose center lies inside reg to the left or right
// of the split. A nil split means the middle of the region; a non-nil split is
// used verbatim, even outside the region. Centers on the split go right.
func Classify(boxes []Box, reg Region, split *float64) *Result {
	res := &Result{Region: reg, MidX: reg.Mid()}
	if split != nil {
		res.MidX = *split
	}

	if reg.Degenerate() {
		return res
	}

	res.Assignments = make([]Assignment, 0, len(boxes))
	for i, b := range boxes {
		a := Assignment{Index: i, Box: b}

		nb, ok := b.normalize()
		if !ok {
			res.Assignments = append(res.Assignments, a)
			continue
		}
		a.Box = nb

		cx, cy := nb.Center()
		if !reg.Contains(cx, cy) {
			res.Assignments = append(res.Assignments, a)
			continue
		}

		c := RightColor
		if cx < res.MidX {
			a.Partition = Left
			c = LeftColor
			res.Left++
		} else {
			a.Partition = Right
			res.Right++
		}

		r := nb.Rect()
		res.Annotations = append(res.Annotations,
			Instruction{Kind: KindRect, Rect: r, Color: c, Thickness: Thickness},
			Instruction{
				Kind:      KindText,
				Text:      PersonLabel,
				From:      image.Pt(r.Min.X, r.Min.Y-10),
				Color:     c,
				Scale:     0.6,
				Thickness: Thickness,
			},
		)
		res.Assignments = append(res.Assignments, a)
	}

	return res
}
