// Package service runs one upload through detection, left/right counting and
// annotation.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/model-collapse/split-count/detect"
	"github.com/model-collapse/split-count/region"
	"github.com/model-collapse/split-count/render"
	"github.com/model-collapse/split-count/store"
)

// Config holds the counting geometry.
type Config struct {
	Margin float64
	// SplitX overrides the split coordinate when non-nil.
	SplitX *float64
}

type Service struct {
	cfg      Config
	detector detect.Detector
	renderer render.Renderer
	store    *store.Store
	logger   *zap.Logger
}

func New(cfg Config, det detect.Detector, rend render.Renderer, st *store.Store, logger *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		detector: det,
		renderer: rend,
		store:    st,
		logger:   logger,
	}
}

type Upload struct {
	Filename string
	Data     []byte
}

type Outcome struct {
	OutputName string
	Left       int
	Right      int
	Detections int
}

// Count stores the upload, detects people, counts them per side of the split
// and saves the annotated image. Nothing is cleaned up on failure.
func (s *Service) Count(ctx context.Context, up Upload) (*Outcome, error) {
	if len(up.Data) == 0 {
		return nil, &InputError{Msg: "No file uploaded"}
	}

	start := time.Now()
	log := s.logger.With(zap.String("filename", up.Filename), zap.Int("bytes", len(up.Data)))

	uploadPath, err := s.store.SaveUpload(up.Filename, up.Data)
	if err != nil {
		return nil, processing(err, "save upload")
	}

	canvas, err := s.renderer.Decode(up.Data)
	if err != nil {
		return nil, processing(err, "read image")
	}
	defer func() {
		if cerr := canvas.Close(); cerr != nil {
			log.Warn("close canvas", zap.Error(cerr))
		}
	}()

	dets, err := s.detector.Detect(ctx, up.Data)
	if err != nil {
		return nil, processing(err, "detect")
	}

	b := canvas.Bounds()
	res := region.Classify(detect.Boxes(dets), region.RegionFor(b.Dx(), b.Dy(), s.cfg.Margin), s.cfg.SplitX)
	if res.Region.Degenerate() {
		log.Warn("region is empty, margin too large for image",
			zap.Int("width", b.Dx()), zap.Int("height", b.Dy()), zap.Float64("margin", s.cfg.Margin))
	}

	if err := canvas.Draw(region.Instructions(res)); err != nil {
		return nil, processing(err, "draw")
	}

	data, err := canvas.Encode()
	if err != nil {
		return nil, processing(err, "encode")
	}

	name, err := s.store.SaveOutput(data)
	if err != nil {
		return nil, processing(err, "save output")
	}

	log.Info("counted",
		zap.String("upload", uploadPath),
		zap.String("output", name),
		zap.Int("detections", len(dets)),
		zap.Int("left", res.Left),
		zap.Int("right", res.Right),
		zap.Float64("mid_x", res.MidX),
		zap.Duration("took", time.Since(start)))

	return &Outcome{
		OutputName: name,
		Left:       res.Left,
		Right:      res.Right,
		Detections: len(dets),
	}, nil
}

// Output resolves a generated output name to a file path.
func (s *Service) Output(name string) (string, error) {
	path, err := s.store.Resolve(name)
	if errors.Is(err, store.ErrNotFound) {
		return "", &NotFoundError{Name: name}
	}

	return path, err
}
