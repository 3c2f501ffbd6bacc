// Package tempfile owns the scratch directory uploads are written to
// before OCR. Every saved path is deleted by the caller once processing
// ends.
package tempfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/ocr-service/constants"
	"github.com/joseph-ayodele/ocr-service/internal/common"
)

type Store struct {
	dir     string
	maxSize int64 // 0 = unlimited
	logger  *slog.Logger
}

func NewStore(dir string, maxSize int64, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, maxSize: maxSize, logger: logger}
}

// Dir returns the root scratch directory.
func (s *Store) Dir() string { return s.dir }

// Save streams r into <dir>/<uuid><ext>, keeping the extension of filename.
// Content over the size cap is rejected and the partial file removed.
func (s *Store) Save(r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	ext := ""
	if e := constants.NormalizeExt(filepath.Ext(filename)); e != "" {
		ext = "." + e
	}
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		s.discard(path)
		return "", fmt.Errorf("write temp file: %w", copyErr)
	case closeErr != nil:
		s.discard(path)
		return "", fmt.Errorf("close temp file: %w", closeErr)
	case s.maxSize > 0 && n > s.maxSize:
		s.discard(path)
		return "", common.NewValidationError(
			fmt.Sprintf("File size exceeds limit. Max size: %s.", common.HumanBytes(s.maxSize)),
			common.ErrFileTooLarge,
		)
	}

	s.logger.Debug("saved upload", "path", path, "bytes", n)
	return path, nil
}

// SaveFile copies an existing file into the store.
func (s *Store) SaveFile(src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.Save(f, filepath.Base(src))
}

// Delete removes a file or directory tree. A path that does not exist is
// not an error, so Delete can be called more than once.
func (s *Store) Delete(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Purge removes the whole scratch directory.
func (s *Store) Purge() error {
	return s.Delete(s.dir)
}

func (s *Store) discard(path string) {
	if err := s.Delete(path); err != nil {
		s.logger.Error("failed to remove partial upload", "path", path, "error", err)
	}
}
