package render

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/model-collapse/split-count/region"
)

// Draw2D renders in pure Go. Text uses a fixed bitmap face, so Scale is
// ignored for labels.
type Draw2D struct{}

func (Draw2D) Decode(data []byte) (Canvas, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	return &rgbaCanvas{img: dst}, nil
}

type rgbaCanvas struct {
	img *image.RGBA
}

func (c *rgbaCanvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

func (c *rgbaCanvas) Draw(instrs []region.Instruction) error {
	gc := draw2dimg.NewGraphicContext(c.img)

	for _, in := range instrs {
		switch in.Kind {
		case region.KindRect:
			gc.SetStrokeColor(in.Color)
			gc.SetLineWidth(float64(in.Thickness))
			r := in.Rect
			draw2dkit.Rectangle(gc, float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y))
			gc.Stroke()
		case region.KindLine:
			gc.SetStrokeColor(in.Color)
			gc.SetLineWidth(float64(in.Thickness))
			gc.MoveTo(float64(in.From.X), float64(in.From.Y))
			gc.LineTo(float64(in.To.X), float64(in.To.Y))
			gc.Stroke()
		case region.KindText:
			d := font.Drawer{
				Dst:  c.img,
				Src:  image.NewUniform(in.Color),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(in.From.X, in.From.Y),
			}
			d.DrawString(in.Text)
		default:
			return errors.Errorf("unknown instruction kind %d", in.Kind)
		}
	}

	return nil
}

func (c *rgbaCanvas) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, c.img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}

	return buf.Bytes(), nil
}

func (c *rgbaCanvas) Close() error {
	return nil
}
