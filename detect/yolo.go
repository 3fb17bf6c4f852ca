package detect

import (
	"image"

	"github.com/pkg/errors"

	"github.com/model-collapse/split-count/region"
)

type candidate struct {
	rect  image.Rectangle
	box   region.Box
	score float32
}

// decodeYOLO reads a [1, 4+classes, anchors] output tensor laid out row-major.
// Rows 0..3 hold the box center and size in network pixels, rows 4.. hold the
// per-class scores. An anchor is kept only when classID is its best class.
func decodeYOLO(data []float32, shape []int, classID int, minConf, scale float32) ([]candidate, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, errors.Errorf("unexpected output shape %v", shape)
	}

	rows, anchors := shape[1], shape[2]
	if classID < 0 || 4+classID >= rows {
		return nil, errors.Errorf("class %d outside output with %d rows", classID, rows)
	}

	if len(data) < rows*anchors {
		return nil, errors.Errorf("output has %d values, want %d", len(data), rows*anchors)
	}

	var out []candidate
	for i := 0; i < anchors; i++ {
		best := 4
		for r := 5; r < rows; r++ {
			if data[r*anchors+i] > data[best*anchors+i] {
				best = r
			}
		}

		score := data[best*anchors+i]
		if best != 4+classID || score < minConf {
			continue
		}

		cx := data[i]
		cy := data[anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		b := region.Box{
			X1: float64((cx - w/2) * scale),
			Y1: float64((cy - h/2) * scale),
			X2: float64((cx + w/2) * scale),
			Y2: float64((cy + h/2) * scale),
		}
		out = append(out, candidate{rect: b.Rect(), box: b, score: score})
	}

	return out, nil
}
