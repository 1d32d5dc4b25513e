package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

const DefaultAttachmentMaxBytes = 8 << 20

// Attachment is a downloaded file registered in the uploads store.
type Attachment struct {
	RelPath  string `json:"file"`
	URL      string `json:"url"`
	MimeType string `json:"type"`
	Size     int64  `json:"size"`
}

// Sideloader fetches remote media into the uploads store.
type Sideloader struct {
	files    content.FileStore
	fetcher  content.Fetcher
	maxBytes int64
	now      func() time.Time
	logger   *zap.Logger
}

func NewSideloader(files content.FileStore, fetcher content.Fetcher, maxBytes int64, logger *zap.Logger) *Sideloader {
	if maxBytes <= 0 {
		maxBytes = DefaultAttachmentMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sideloader{
		files:    files,
		fetcher:  fetcher,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger,
	}
}

// Sideload downloads the media of an attachment post. The upload
// directory follows the post date.
func (s *Sideloader) Sideload(ctx context.Context, post content.Post, baseURL string) (Attachment, error) {
	remote := post.AttachmentURL
	if remote == "" {
		remote = post.GUID
	}
	if remote == "" {
		return Attachment{}, ErrNoAttachmentURL
	}
	return s.Fetch(ctx, absoluteURL(remote, baseURL), post.Date)
}

// Fetch downloads rawURL into the uploads directory for date ("" means now).
// Nothing is left behind when a check fails.
func (s *Sideloader) Fetch(ctx context.Context, rawURL, date string) (Attachment, error) {
	name := fileName(rawURL)
	if name == "" {
		return Attachment{}, fmt.Errorf("%w: %s", ErrNoAttachmentURL, rawURL)
	}
	rel := s.uniquePath(ctx, path.Join(uploadDir(date, s.now()), name))

	w, err := s.files.Create(ctx, rel)
	if err != nil {
		return Attachment{}, fmt.Errorf("create %s: %w", rel, err)
	}
	capped := &cappedWriter{w: w, left: s.maxBytes}
	res, fetchErr := s.fetcher.Fetch(ctx, rawURL, capped)
	closeErr := w.Close()

	err = s.check(res, errors.Join(fetchErr, closeErr), rawURL)
	if capped.exceeded {
		err = fmt.Errorf("%w, limit is %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	if err != nil {
		if rmErr := s.files.Remove(context.WithoutCancel(ctx), rel); rmErr != nil {
			s.logger.Warn("partial download not removed", zap.String("file", rel), zap.Error(rmErr))
		}
		return Attachment{}, err
	}

	mimeType, err := s.detect(ctx, rel)
	if err != nil {
		if rmErr := s.files.Remove(context.WithoutCancel(ctx), rel); rmErr != nil {
			s.logger.Warn("rejected download not removed", zap.String("file", rel), zap.Error(rmErr))
		}
		return Attachment{}, err
	}

	return Attachment{
		RelPath:  rel,
		URL:      s.files.URL(rel),
		MimeType: mimeType,
		Size:     res.Written,
	}, nil
}

func (s *Sideloader) check(res content.FetchResult, err error, rawURL string) error {
	switch {
	case err != nil:
		return fmt.Errorf("download %s: %w", rawURL, err)
	case res.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %d %s for %s", ErrRemoteStatus, res.StatusCode, http.StatusText(res.StatusCode), rawURL)
	case res.ContentLength >= 0 && res.ContentLength != res.Written:
		return ErrSizeMismatch
	case res.Written == 0:
		return ErrEmptyFile
	case res.Written > s.maxBytes:
		return fmt.Errorf("%w, limit is %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	return nil
}

// detect sniffs the content and falls back to the extension when the
// content has no recognisable signature.
func (s *Sideloader) detect(ctx context.Context, rel string) (string, error) {
	r, err := s.files.Open(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", rel, err)
	}
	defer r.Close()

	detected, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", rel, err)
	}
	if !detected.Is("application/octet-stream") {
		mediaType, _, _ := strings.Cut(detected.String(), ";")
		return mediaType, nil
	}
	if byExt := mime.TypeByExtension(path.Ext(rel)); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType, nil
		}
	}
	return "", ErrUnsupportedMedia
}

// cappedWriter refuses the byte past the download limit, which stops the
// copy instead of landing the whole body on disk first.
type cappedWriter struct {
	w        io.Writer
	left     int64
	exceeded bool
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	if int64(len(p)) <= c.left {
		n, err := c.w.Write(p)
		c.left -= int64(n)
		return n, err
	}
	c.exceeded = true
	n, err := c.w.Write(p[:c.left])
	c.left -= int64(n)
	if err != nil {
		return n, err
	}
	return n, ErrFileTooLarge
}

// uniquePath appends -1, -2, ... before the extension until the name is free.
func (s *Sideloader) uniquePath(ctx context.Context, rel string) string {
	if !s.files.Exists(ctx, rel) {
		return rel
	}
	ext := path.Ext(rel)
	stem := strings.TrimSuffix(rel, ext)
	for i := 1; ; i++ {
		candidate := stem + "-" + strconv.Itoa(i) + ext
		if !s.files.Exists(ctx, candidate) {
			return candidate
		}
	}
}

func uploadDir(date string, now time.Time) string {
	t, err := time.Parse(time.DateTime, date)
	if err != nil || t.Year() < 1970 {
		t = now
	}
	return t.Format("2006/01")
}

func fileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func absoluteURL(rawURL, baseURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.IsAbs() || baseURL == "" {
		return rawURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return rawURL
	}
	return base.ResolveReference(u).String()
}
