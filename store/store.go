// Package store persists uploads and annotated outputs under generated names.
package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotFound is returned for names that were never generated here or whose
// file no longer exists.
var ErrNotFound = errors.New("artifact not found")

// Store writes into two directories created on demand.
type Store struct {
	uploadDir string
	outputDir string
}

func New(uploadDir, outputDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %s", dir)
		}
	}

	return &Store{uploadDir: uploadDir, outputDir: outputDir}, nil
}

// NewName returns a time-ordered UUIDv7 followed by ext.
func NewName(ext string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generate id")
	}

	return id.String() + ext, nil
}

// SaveUpload stores data under a generated name, keeping only the extension
// of the client's filename.
func (s *Store) SaveUpload(filename string, data []byte) (string, error) {
	name, err := NewName(cleanExt(filename))
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.uploadDir, name)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}

	return path, nil
}

// SaveOutput stores an encoded JPEG and returns its public name.
func (s *Store) SaveOutput(data []byte) (string, error) {
	name, err := NewName(".jpg")
	if err != nil {
		return "", err
	}

	if err := writeAtomic(filepath.Join(s.outputDir, name), data); err != nil {
		return "", err
	}

	return name, nil
}

// Resolve maps a public output name to its path on disk.
func (s *Store) Resolve(name string) (string, error) {
	if !validOutputName(name) {
		return "", ErrNotFound
	}

	path := filepath.Join(s.outputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", errors.Wrapf(err, "stat %s", name)
	}

	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}

	return path, nil
}

func validOutputName(name string) bool {
	id, ok := strings.CutSuffix(name, ".jpg")
	if !ok {
		return false
	}

	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

func cleanExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}

	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}

	return ext
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}

	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(err, "write temp file")
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "close temp file")
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename to %s", path)
	}

	return nil
}
