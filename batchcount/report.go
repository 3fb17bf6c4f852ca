package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ImageResult is the outcome for one file in the input directory.
type ImageResult struct {
	FileName   string `json:"file_name"`
	Output     string `json:"output,omitempty"`
	Left       int    `json:"left_count"`
	Right      int    `json:"right_count"`
	Detections int    `json:"detections"`
	Error      string `json:"error,omitempty"`
}

type Report struct {
	Images []ImageResult `json:"images"`
	Left   int           `json:"left_total"`
	Right  int           `json:"right_total"`
	Failed int           `json:"failed"`

	mu sync.Mutex
}

func (r *Report) Add(res ImageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Images = append(r.Images, res)
	if res.Error != "" {
		r.Failed++
		return
	}

	r.Left += res.Left
	r.Right += res.Right
}

// Save writes the report sorted by file name.
func (r *Report) Save(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.Slice(r.Images, func(i, j int) bool { return r.Images[i].FileName < r.Images[j].FileName })

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}

	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// ListImages returns the regular files in dir with an image extension.
// Extensions are matched case-insensitively.
func ListImages(dir string) ([]string, error) {
	lst, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}

	ret := make([]string, 0, len(lst))
	for _, f := range lst {
		if f.Type().IsRegular() && imageExts[strings.ToLower(filepath.Ext(f.Name()))] {
			ret = append(ret, f.Name())
		}
	}

	return ret, nil
}
