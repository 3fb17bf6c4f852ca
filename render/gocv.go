package render

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/model-collapse/split-count/region"
)

// GoCV renders with OpenCV, matching the look of the Hershey-font overlays
// the detector's tooling produces.
type GoCV struct{}

func (GoCV) Decode(data []byte) (Canvas, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	if img.Empty() {
		img.Close()
		return nil, errors.New("decode image: unreadable or corrupt")
	}

	return &matCanvas{img: img}, nil
}

type matCanvas struct {
	img gocv.Mat
}

func (c *matCanvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.img.Cols(), c.img.Rows())
}

func (c *matCanvas) Draw(instrs []region.Instruction) error {
	for _, in := range instrs {
		switch in.Kind {
		case region.KindRect:
			gocv.Rectangle(&c.img, in.Rect, in.Color, in.Thickness)
		case region.KindLine:
			gocv.Line(&c.img, in.From, in.To, in.Color, in.Thickness)
		case region.KindText:
			gocv.PutText(&c.img, in.Text, in.From, gocv.FontHersheySimplex, in.Scale, in.Color, in.Thickness)
		default:
			return errors.Errorf("unknown instruction kind %d", in.Kind)
		}
	}

	return nil
}

func (c *matCanvas) Encode() ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.img, []int{int(gocv.IMWriteJpegQuality), jpegQuality})
	if err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	defer buf.Close()

	// the buffer is backed by native memory released on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}

func (c *matCanvas) Close() error {
	return c.img.Close()
}
