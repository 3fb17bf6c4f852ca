// Package config loads the service configuration.
package config

import (
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/model-collapse/split-count/detect"
	"github.com/model-collapse/split-count/render"
	"github.com/model-collapse/split-count/service"
)

type Config struct {
	Port int `yaml:"port"`

	Detector     string  `yaml:"detector"`
	ModelPath    string  `yaml:"model_path"`
	InferenceURL string  `yaml:"inference_url"`
	Confidence   float32 `yaml:"confidence"`
	NMSThreshold float32 `yaml:"nms_threshold"`
	PersonClass  int     `yaml:"person_class"`
	InputSize    int     `yaml:"input_size"`
	Workers      int     `yaml:"workers"`

	Margin float64 `yaml:"margin"`
	// SplitX is left out or null to split the region down the middle.
	SplitX *float64 `yaml:"split_x"`

	Renderer    string `yaml:"renderer"`
	UploadDir   string `yaml:"upload_dir"`
	OutputDir   string `yaml:"output_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

func Default() Config {
	return Config{
		Port:         5000,
		Detector:     detect.BackendONNX,
		ModelPath:    "yolo11n.onnx",
		InferenceURL: "http://localhost:8000/predict",
		Confidence:   0.3,
		NMSThreshold: 0.45,
		PersonClass:  0,
		InputSize:    640,
		Workers:      2,
		Margin:       10,
		Renderer:     render.BackendGoCV,
		UploadDir:    "uploads",
		OutputDir:    "outputs",
		MaxUploadMB:  50,
	}
}

// Load reads path over the defaults. A missing file leaves the defaults in
// place. PORT, when set, overrides the port.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", path)
		}
	case !os.IsNotExist(err):
		return cfg, errors.Wrapf(err, "read %s", path)
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid PORT %q", p)
		}
		cfg.Port = port
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return errors.Errorf("port %d out of range", c.Port)
	case c.Detector != detect.BackendONNX && c.Detector != detect.BackendRemote:
		return errors.Errorf("unknown detector %q", c.Detector)
	case c.Detector == detect.BackendONNX && c.ModelPath == "":
		return errors.New("model_path is required for the onnx detector")
	case c.Detector == detect.BackendRemote && c.InferenceURL == "":
		return errors.New("inference_url is required for the remote detector")
	case c.Confidence < 0 || c.Confidence > 1:
		return errors.Errorf("confidence %v outside [0,1]", c.Confidence)
	case c.NMSThreshold < 0 || c.NMSThreshold > 1:
		return errors.Errorf("nms_threshold %v outside [0,1]", c.NMSThreshold)
	case c.PersonClass < 0:
		return errors.Errorf("person_class %d is negative", c.PersonClass)
	case c.Workers < 1:
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.Margin < 0:
		return errors.Errorf("margin %v is negative", c.Margin)
	case c.SplitX != nil && (math.IsNaN(*c.SplitX) || math.IsInf(*c.SplitX, 0)):
		return errors.Errorf("split_x %v is not a finite coordinate", *c.SplitX)
	case c.Renderer != render.BackendGoCV && c.Renderer != render.BackendDraw2D:
		return errors.Errorf("unknown renderer %q", c.Renderer)
	case c.UploadDir == "" || c.OutputDir == "":
		return errors.New("upload_dir and output_dir are required")
	case c.MaxUploadMB < 1:
		return errors.Errorf("max_upload_mb must be at least 1, got %d", c.MaxUploadMB)
	}

	return nil
}

func (c Config) DetectorConfig() detect.Config {
	return detect.Config{
		Backend:      c.Detector,
		ModelPath:    c.ModelPath,
		InferenceURL: c.InferenceURL,
		Confidence:   c.Confidence,
		NMSThreshold: c.NMSThreshold,
		ClassID:      c.PersonClass,
		InputSize:    c.InputSize,
		Workers:      c.Workers,
	}
}

func (c Config) ServiceConfig() service.Config {
	return service.Config{Margin: c.Margin, SplitX: c.SplitX}
}
