package file

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Uploads is the media library directory, served under BaseURL.
type Uploads struct {
	root    string
	baseURL string
}

func NewUploads(root, baseURL string) *Uploads {
	if root == "" {
		root = "./uploads"
	}
	return &Uploads{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *Uploads) Path(relPath string) string {
	return filepath.Join(u.root, filepath.FromSlash(path.Clean("/" + relPath)))
}

func (u *Uploads) URL(relPath string) string {
	clean := strings.TrimPrefix(path.Clean("/"+relPath), "/")
	if u.baseURL == "" {
		return "/" + clean
	}
	escaped := (&url.URL{Path: clean}).EscapedPath()
	return u.baseURL + "/" + escaped
}

func (u *Uploads) Create(ctx context.Context, relPath string) (io.WriteCloser, error) {
	_ = ctx

	full := u.Path(relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload %s: %w", relPath, err)
	}
	return f, nil
}

func (u *Uploads) Exists(ctx context.Context, relPath string) bool {
	_ = ctx

	_, err := os.Stat(u.Path(relPath))
	return err == nil
}

func (u *Uploads) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	_ = ctx

	f, err := os.Open(u.Path(relPath))
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", relPath, err)
	}
	return f, nil
}

func (u *Uploads) Remove(ctx context.Context, relPath string) error {
	_ = ctx

	if err := os.Remove(u.Path(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload %s: %w", relPath, err)
	}
	return nil
}
