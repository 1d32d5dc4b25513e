package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalSource resolves demo files bundled with the theme.
type LocalSource struct {
	BaseDir string
}

func NewLocalSource(baseDir string) *LocalSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalSource{BaseDir: baseDir}
}

// Resolve joins relative paths onto the base directory.
func (s *LocalSource) Resolve(sourcePath string) string {
	if sourcePath == "" || filepath.IsAbs(sourcePath) {
		return sourcePath
	}
	return filepath.Join(s.BaseDir, sourcePath)
}

// Exists reports whether sourcePath names a regular file.
func (s *LocalSource) Exists(sourcePath string) bool {
	if sourcePath == "" {
		return false
	}
	info, err := os.Stat(s.Resolve(sourcePath))
	return err == nil && info.Mode().IsRegular()
}

func (s *LocalSource) Open(ctx context.Context, sourcePath string) (io.ReadCloser, error) {
	_ = ctx

	path := s.Resolve(sourcePath)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}
