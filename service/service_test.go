package service

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/model-collapse/split-count/detect"
	"github.com/model-collapse/split-count/region"
	"github.com/model-collapse/split-count/render"
	"github.com/model-collapse/split-count/store"
)

type fakeDetector struct {
	dets  []detect.Detection
	err   error
	calls int
}

func (f *fakeDetector) Detect(context.Context, []byte) ([]detect.Detection, error) {
	f.calls++
	return f.dets, f.err
}

func (f *fakeDetector) Close() error { return nil }

func person(cx, cy float64) detect.Detection {
	return detect.Detection{
		Box:        region.Box{X1: cx - 5, Y1: cy - 10, X2: cx + 5, Y2: cy + 10},
		Confidence: 0.9,
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))), test.ShouldBeNil)
	return buf.Bytes()
}

func newService(t *testing.T, cfg Config, det detect.Detector) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"))
	test.That(t, err, test.ShouldBeNil)
	return New(cfg, det, render.Draw2D{}, st, zaptest.NewLogger(t)), dir
}

func TestCount(t *testing.T) {
	det := &fakeDetector{dets: []detect.Detection{person(30, 50), person(70, 50), person(5, 5)}}
	svc, dir := newService(t, Config{Margin: 10}, det)

	out, err := svc.Count(context.Background(), Upload{Filename: "court.png", Data: pngBytes(t, 100, 100)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Left, test.ShouldEqual, 1)
	test.That(t, out.Right, test.ShouldEqual, 1)
	test.That(t, out.Detections, test.ShouldEqual, 3)

	path, err := svc.Output(out.OutputName)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, filepath.Dir(path), test.ShouldEqual, filepath.Join(dir, "outputs"))

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	img, err := jpeg.Decode(bytes.NewReader(data))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 100, 100))

	uploads, err := os.ReadDir(filepath.Join(dir, "uploads"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, uploads, test.ShouldHaveLength, 1)
}

func TestCountSplitOverride(t *testing.T) {
	split := 20.0
	det := &fakeDetector{dets: []detect.Detection{person(30, 50), person(70, 50)}}
	svc, _ := newService(t, Config{Margin: 10, SplitX: &split}, det)

	out, err := svc.Count(context.Background(), Upload{Data: pngBytes(t, 100, 100)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Left, test.ShouldEqual, 0)
	test.That(t, out.Right, test.ShouldEqual, 2)
}

func TestCountIndependentRequests(t *testing.T) {
	det := &fakeDetector{dets: []detect.Detection{person(30, 50)}}
	svc, _ := newService(t, Config{Margin: 10}, det)

	first, err := svc.Count(context.Background(), Upload{Data: pngBytes(t, 100, 100)})
	test.That(t, err, test.ShouldBeNil)
	second, err := svc.Count(context.Background(), Upload{Data: pngBytes(t, 100, 100)})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, second.Left, test.ShouldEqual, first.Left)
	test.That(t, second.OutputName, test.ShouldNotEqual, first.OutputName)
}

func TestCountDegenerateRegion(t *testing.T) {
	det := &fakeDetector{dets: []detect.Detection{person(10, 10)}}
	svc, _ := newService(t, Config{Margin: 50}, det)

	out, err := svc.Count(context.Background(), Upload{Data: pngBytes(t, 80, 80)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Left+out.Right, test.ShouldEqual, 0)
}

func TestCountErrors(t *testing.T) {
	det := &fakeDetector{}
	svc, _ := newService(t, Config{Margin: 10}, det)

	_, err := svc.Count(context.Background(), Upload{Filename: "empty.jpg"})
	test.That(t, IsInput(err), test.ShouldBeTrue)
	test.That(t, det.calls, test.ShouldEqual, 0)

	_, err = svc.Count(context.Background(), Upload{Data: []byte("not an image")})
	test.That(t, IsProcessing(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "read image")
	test.That(t, det.calls, test.ShouldEqual, 0)

	det.err = errors.New("model exploded")
	_, err = svc.Count(context.Background(), Upload{Data: pngBytes(t, 100, 100)})
	test.That(t, IsProcessing(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "model exploded")
}

type leakyRenderer struct{ render.Draw2D }

func (r leakyRenderer) Decode(data []byte) (render.Canvas, error) {
	c, err := r.Draw2D.Decode(data)
	if err != nil {
		return nil, err
	}
	return leakyCanvas{c}, nil
}

type leakyCanvas struct{ render.Canvas }

func (c leakyCanvas) Close() error {
	return multierr.Append(c.Canvas.Close(), errors.New("release failed"))
}

func TestCountCloseFailure(t *testing.T) {
	svc, _ := newService(t, Config{Margin: 10}, &fakeDetector{dets: []detect.Detection{person(30, 50)}})
	svc.renderer = leakyRenderer{}

	out, err := svc.Count(context.Background(), Upload{Data: pngBytes(t, 100, 100)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotBeNil)
	test.That(t, out.Left, test.ShouldEqual, 1)

	path, err := svc.Output(out.OutputName)
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
}

func TestOutputNotFound(t *testing.T) {
	svc, _ := newService(t, Config{}, &fakeDetector{})

	_, err := svc.Output("missing.jpg")
	test.That(t, IsNotFound(err), test.ShouldBeTrue)
	test.That(t, IsInput(err), test.ShouldBeFalse)
}
