package detect

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ONNX runs a YOLO export through OpenCV's DNN module. gocv.Net is not safe
// for concurrent use, so the detector keeps a fixed pool of loaded nets.
type ONNX struct {
	cfg    Config
	logger *zap.Logger
	nets   chan *gocv.Net
}

// NewONNX loads cfg.Workers copies of the model at cfg.ModelPath.
func NewONNX(cfg Config, logger *zap.Logger) (*ONNX, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}

	nets, err := loadNets(cfg.Workers, func() *gocv.Net {
		net := gocv.ReadNetFromONNX(cfg.ModelPath)
		return &net
	})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load model %s", cfg.ModelPath)
	}

	d := &ONNX{cfg: cfg, logger: logger, nets: make(chan *gocv.Net, cfg.Workers)}
	for _, net := range nets {
		d.nets <- net
	}

	logger.Info("model loaded",
		zap.String("path", cfg.ModelPath),
		zap.Int("nets", cfg.Workers),
		zap.Int("input", cfg.InputSize))

	return d, nil
}

type emptyCloser interface {
	Empty() bool
	Close() error
}

// loadNets calls load n times. If any result is empty, it and every net
// loaded before it are closed.
func loadNets[T emptyCloser](n int, load func() T) ([]T, error) {
	nets := make([]T, 0, n)
	for i := 0; i < n; i++ {
		net := load()
		if net.Empty() {
			err := multierr.Append(errors.New("empty net"), net.Close())
			for _, loaded := range nets {
				err = multierr.Append(err, loaded.Close())
			}
			return nil, err
		}

		nets = append(nets, net)
	}

	return nets, nil
}

func (d *ONNX) Detect(ctx context.Context, data []byte) ([]Detection, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	defer img.Close()

	if img.Empty() {
		return nil, errors.New("decode image: empty result")
	}

	var net *gocv.Net
	select {
	case net = <-d.nets:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { d.nets <- net }()

	return d.forward(net, img)
}

func (d *ONNX) forward(net *gocv.Net, img gocv.Mat) ([]Detection, error) {
	height, width := img.Rows(), img.Cols()
	maxDim := max(height, width)

	// pad to a square with the image in the top-left corner so one scale
	// factor maps network coordinates back onto the frame
	square := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), maxDim, maxDim, gocv.MatTypeCV8UC3)
	defer square.Close()

	roi := square.Region(image.Rect(0, 0, width, height))
	img.CopyTo(&roi)
	roi.Close()

	size := d.cfg.InputSize
	scale := float32(maxDim) / float32(size)

	blob := gocv.BlobFromImage(square, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	out := net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read model output")
	}

	cands, err := decodeYOLO(data, out.Size(), d.cfg.ClassID, d.cfg.Confidence, scale)
	if err != nil {
		return nil, err
	}

	if len(cands) == 0 {
		return nil, nil
	}

	rects := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		rects[i] = c.rect
		scores[i] = c.score
	}

	keep := gocv.NMSBoxes(rects, scores, d.cfg.Confidence, d.cfg.NMSThreshold)
	dets := make([]Detection, 0, len(keep))
	for _, i := range keep {
		dets = append(dets, Detection{
			Box:        cands[i].box,
			ClassID:    d.cfg.ClassID,
			Confidence: cands[i].score,
		})
	}

	d.logger.Debug("forward pass",
		zap.Int("candidates", len(cands)),
		zap.Int("kept", len(dets)))

	return dets, nil
}

// Close releases every net currently idle in the pool.
func (d *ONNX) Close() error {
	var err error
	for {
		select {
		case net := <-d.nets:
			err = multierr.Append(err, net.Close())
		default:
			return err
		}
	}
}
