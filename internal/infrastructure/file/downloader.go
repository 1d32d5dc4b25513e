package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultDownloadTimeout = 20 * time.Second
	downloadMaxElapsed     = time.Minute
)

// Downloader saves remote demo files into one directory, reusing files
// that are already there.
type Downloader struct {
	dir        string
	client     *http.Client
	timeout    time.Duration
	maxElapsed time.Duration
	logger     *zap.Logger
}

type DownloaderConfig struct {
	Dir     string
	Timeout time.Duration
	// MaxElapsed bounds the retries of one download.
	MaxElapsed time.Duration
}

func NewDownloader(cfg DownloaderConfig, client *http.Client, logger *zap.Logger) *Downloader {
	if cfg.Dir == "" {
		cfg.Dir = "./uploads"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDownloadTimeout
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = downloadMaxElapsed
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		dir:        cfg.Dir,
		client:     client,
		timeout:    cfg.Timeout,
		maxElapsed: cfg.MaxElapsed,
		logger:     logger,
	}
}

func (d *Downloader) Dir() string {
	return d.dir
}

// Existing returns the path of filename when it was downloaded before.
func (d *Downloader) Existing(filename string) (string, bool) {
	full := filepath.Join(d.dir, filepath.Base(filename))
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return full, true
}

// Download fetches rawURL into filename. Transport errors and 5xx answers
// are retried with exponential backoff; anything else fails at once.
func (d *Downloader) Download(ctx context.Context, rawURL, filename string) (string, error) {
	if rawURL == "" {
		return "", ErrMissingURL
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveDownload, err)
	}
	full := filepath.Join(d.dir, filepath.Base(filename))

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.maxElapsed

	var body []byte
	err := backoff.Retry(func() error {
		b, err := d.get(ctx, rawURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		d.logger.Error("download failed", zap.String("url", rawURL), zap.String("filename", filename), zap.Error(err))
		return "", err
	}

	if len(body) == 0 {
		return "", fmt.Errorf("%w: empty body from %s", ErrSaveDownload, rawURL)
	}
	tmp := full + ".part"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveDownload, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: %v", ErrSaveDownload, err)
	}
	return full, nil
}

// Fetch reuses an earlier download of filename or downloads it.
func (d *Downloader) Fetch(ctx context.Context, rawURL, filename string) (string, error) {
	if existing, ok := d.Existing(filename); ok {
		return existing, nil
	}
	return d.Download(ctx, rawURL, filename)
}

func (d *Downloader) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s: %v", ErrDownload, rawURL, err))
	}
	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrDownload, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: %s: %d - %s", ErrDownload, rawURL, resp.StatusCode, http.StatusText(resp.StatusCode))
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDownload, rawURL, err)
	}
	return body, nil
}
