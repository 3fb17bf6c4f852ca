// Package render draws region instructions onto uploaded images and encodes
// the annotated result.
package render

import (
	"image"

	"github.com/pkg/errors"

	"github.com/model-collapse/split-count/region"
)

const jpegQuality = 90

// Renderer turns encoded bytes into a drawable canvas.
type Renderer interface {
	Decode(data []byte) (Canvas, error)
}

// Canvas is a decoded image that can be drawn on and re-encoded as JPEG.
type Canvas interface {
	Bounds() image.Rectangle
	Draw(instrs []region.Instruction) error
	Encode() ([]byte, error)
	Close() error
}

const (
	BackendGoCV   = "gocv"
	BackendDraw2D = "draw2d"
)

func New(name string) (Renderer, error) {
	switch name {
	case BackendGoCV:
		return GoCV{}, nil
	case BackendDraw2D:
		return Draw2D{}, nil
	default:
		return nil, errors.Errorf("unknown renderer %q", name)
	}
}
