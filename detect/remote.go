package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/model-collapse/split-count/region"
)

const remoteTimeout = 60 * time.Second

// Remote posts images to an inference service that hosts the model.
type Remote struct {
	cfg    Config
	logger *zap.Logger
	client *fasthttp.Client
}

func NewRemote(cfg Config, logger *zap.Logger) *Remote {
	return &Remote{
		cfg:    cfg,
		logger: logger,
		client: &fasthttp.Client{Name: "split-count"},
	}
}

type remoteBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	ClassID    int     `json:"class_id"`
	Confidence float32 `json:"confidence"`
}

type remoteResponse struct {
	Detections []remoteBox `json:"detections"`
}

func (d *Remote) Detect(ctx context.Context, img []byte) ([]Detection, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, errors.Wrap(err, "create form file")
	}

	if _, err := part.Write(img); err != nil {
		return nil, errors.Wrap(err, "write image")
	}

	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close multipart")
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.cfg.InferenceURL)
	args := req.URI().QueryArgs()
	args.Set("conf", strconv.FormatFloat(float64(d.cfg.Confidence), 'f', -1, 32))
	args.Set("classes", strconv.Itoa(d.cfg.ClassID))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(w.FormDataContentType())
	req.SetBody(body.Bytes())

	if err := d.do(ctx, req, resp); err != nil {
		return nil, errors.Wrap(err, "send request")
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, errors.Errorf("inference failed with status %d", resp.StatusCode())
	}

	var out remoteResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}

	dets := make([]Detection, 0, len(out.Detections))
	for _, b := range out.Detections {
		dets = append(dets, Detection{
			Box:        region.Box{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2},
			ClassID:    b.ClassID,
			Confidence: b.Confidence,
		})
	}

	// the service is asked to filter, but may ignore the query
	filtered := Filter(dets, d.cfg.ClassID, d.cfg.Confidence)
	d.logger.Debug("remote inference",
		zap.Int("returned", len(dets)),
		zap.Int("kept", len(filtered)))

	return filtered, nil
}

// CheckHealth calls {inference_url}/health.
func (d *Remote) CheckHealth(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(strings.TrimSuffix(d.cfg.InferenceURL, "/") + "/health")
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := d.do(ctx, req, resp); err != nil {
		return err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return errors.Errorf("inference service unhealthy: %d", resp.StatusCode())
	}

	return nil
}

func (d *Remote) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(remoteTimeout)
	}

	return d.client.DoDeadline(req, resp, deadline)
}

func (d *Remote) Close() error {
	d.client.CloseIdleConnections()
	return nil
}
