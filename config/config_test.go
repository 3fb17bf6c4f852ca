package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.yaml")
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)
	return path
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg, test.ShouldResemble, Default())
	test.That(t, cfg.SplitX, test.ShouldBeNil)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	path := writeConf(t, `
detector: remote
inference_url: http://infer:8000/predict
confidence: 0.5
margin: 0
split_x: 0
renderer: draw2d
`)

	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Port, test.ShouldEqual, 9090)
	test.That(t, cfg.Detector, test.ShouldEqual, "remote")
	test.That(t, cfg.Confidence, test.ShouldEqual, float32(0.5))
	test.That(t, cfg.Margin, test.ShouldEqual, 0.0)
	test.That(t, cfg.Workers, test.ShouldEqual, 2)

	// an explicit zero split is kept, not treated as unset
	test.That(t, cfg.SplitX, test.ShouldNotBeNil)
	test.That(t, *cfg.SplitX, test.ShouldEqual, 0.0)
	test.That(t, *cfg.ServiceConfig().SplitX, test.ShouldEqual, 0.0)

	dc := cfg.DetectorConfig()
	test.That(t, dc.Backend, test.ShouldEqual, "remote")
	test.That(t, dc.ClassID, test.ShouldEqual, 0)
}

func TestLoadNullSplit(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(writeConf(t, "split_x: null\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.SplitX, test.ShouldBeNil)
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("PORT", "")

	_, err := Load(writeConf(t, "margin: -1\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "margin")

	_, err = Load(writeConf(t, "confidence: 1.5\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "confidence")

	_, err = Load(writeConf(t, "split_x: .nan\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "split_x")

	_, err = Load(writeConf(t, "split_x: -.inf\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "split_x")

	_, err = Load(writeConf(t, "detector: magic\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown detector")

	_, err = Load(writeConf(t, "renderer: svg\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown renderer")

	_, err = Load(writeConf(t, "workers: 0\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "workers")

	_, err = Load(writeConf(t, "port: [\n"))
	test.That(t, err.Error(), test.ShouldContainSubstring, "parse")

	t.Setenv("PORT", "http")
	_, err = Load(writeConf(t, ""))
	test.That(t, err.Error(), test.ShouldContainSubstring, "invalid PORT")
}
