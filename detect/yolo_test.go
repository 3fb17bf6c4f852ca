package detect

import (
	"testing"

	"go.viam.com/test"

	"github.com/model-collapse/split-count/region"
)

// tensor builds a [1, 4+classes, anchors] output from per-anchor rows.
func tensor(classes int, anchors [][]float32) ([]float32, []int) {
	rows := 4 + classes
	n := len(anchors)
	data := make([]float32, rows*n)
	for i, a := range anchors {
		for r := 0; r < rows; r++ {
			data[r*n+i] = a[r]
		}
	}

	return data, []int{1, rows, n}
}

func TestDecodeYOLO(t *testing.T) {
	data, shape := tensor(2, [][]float32{
		{100, 100, 20, 40, 0.9, 0.1},
		{200, 50, 10, 10, 0.2, 0.95},
		{300, 300, 40, 40, 0.5, 0.0},
	})

	cands, err := decodeYOLO(data, shape, 0, 0.3, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cands, test.ShouldHaveLength, 2)

	test.That(t, cands[0].box, test.ShouldResemble, region.Box{X1: 180, Y1: 160, X2: 220, Y2: 240})
	test.That(t, cands[0].score, test.ShouldEqual, float32(0.9))
	test.That(t, cands[1].box, test.ShouldResemble, region.Box{X1: 560, Y1: 560, X2: 640, Y2: 640})

	cands, err = decodeYOLO(data, shape, 1, 0.3, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cands, test.ShouldHaveLength, 1)
	test.That(t, cands[0].rect.Min.X, test.ShouldEqual, 195)
}

func TestDecodeYOLOTopClassOnly(t *testing.T) {
	data, shape := tensor(2, [][]float32{
		{100, 100, 20, 40, 0.5, 0.9},
		{200, 100, 20, 40, 0.6, 0.4},
	})

	cands, err := decodeYOLO(data, shape, 0, 0.3, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cands, test.ShouldHaveLength, 1)
	test.That(t, cands[0].box.X1, test.ShouldEqual, 190.0)
	test.That(t, cands[0].score, test.ShouldEqual, float32(0.6))

	cands, err = decodeYOLO(data, shape, 1, 0.3, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cands, test.ShouldHaveLength, 1)
	test.That(t, cands[0].box.X1, test.ShouldEqual, 90.0)
}

func TestDecodeYOLOBadShape(t *testing.T) {
	_, err := decodeYOLO(nil, []int{84, 8400}, 0, 0.3, 1)
	test.That(t, err, test.ShouldNotBeNil)

	data, shape := tensor(1, [][]float32{{1, 1, 1, 1, 1}})
	_, err = decodeYOLO(data, shape, 3, 0.3, 1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "outside output")

	_, err = decodeYOLO(data[:2], shape, 0, 0.3, 1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "output has")
}
