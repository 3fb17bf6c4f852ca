// Package detect wraps the pretrained person detector behind a small
// capability interface.
package detect

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/model-collapse/split-count/region"
)

// Detection is one object found by a detector.
type Detection struct {
	Box        region.Box `json:"box"`
	ClassID    int        `json:"class_id"`
	Confidence float32    `json:"confidence"`
}

// Detector finds objects in an encoded image.
type Detector interface {
	// Detect returns detections already filtered to the configured class and
	// confidence threshold.
	Detect(ctx context.Context, img []byte) ([]Detection, error)
	Close() error
}

// Config selects and parameterizes a Detector backend.
type Config struct {
	Backend      string
	ModelPath    string
	InferenceURL string
	Confidence   float32
	NMSThreshold float32
	ClassID      int
	InputSize    int
	Workers      int
}

const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
)

// New builds the backend named by cfg.Backend.
func New(cfg Config, logger *zap.Logger) (Detector, error) {
	switch cfg.Backend {
	case BackendONNX:
		return NewONNX(cfg, logger)
	case BackendRemote:
		return NewRemote(cfg, logger), nil
	default:
		return nil, errors.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// Filter keeps detections of classID with confidence >= minConf.
func Filter(dets []Detection, classID int, minConf float32) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.ClassID == classID && d.Confidence >= minConf {
			out = append(out, d)
		}
	}

	return out
}

func Boxes(dets []Detection) []region.Box {
	boxes := make([]region.Box, len(dets))
	for i, d := range dets {
		boxes[i] = d.Box
	}

	return boxes
}
