package file_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/infrastructure/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLocalSourceResolvesRelativePaths(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content.xml"), []byte("<rss/>"), 0o644))

	src := file.NewLocalSource(dir)
	assert.True(t, src.Exists("content.xml"))
	assert.False(t, src.Exists("missing.xml"))
	assert.False(t, src.Exists(""))
	assert.Equal(t, "/abs/x.xml", src.Resolve("/abs/x.xml"))

	r, err := src.Open(context.Background(), "content.xml")
	require.NoError(t, err)
	defer r.Close()
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "<rss/>", string(body))
}

func TestUploads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	up := file.NewUploads(t.TempDir(), "http://site.test/wp-content/uploads/")

	w, err := up.Create(ctx, "2024/05/my photo.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, up.Exists(ctx, "2024/05/my photo.png"))
	assert.Equal(t, "http://site.test/wp-content/uploads/2024/05/my%20photo.png", up.URL("2024/05/my photo.png"))

	_, err = up.Create(ctx, "2024/05/my photo.png")
	assert.Error(t, err, "existing uploads are never overwritten")

	require.NoError(t, up.Remove(ctx, "2024/05/my photo.png"))
	require.NoError(t, up.Remove(ctx, "2024/05/my photo.png"))
	assert.False(t, up.Exists(ctx, "2024/05/my photo.png"))

	assert.Equal(t, up.Path("etc/passwd"), up.Path("../../etc/passwd"))
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("hello"))
	}))
	t.Cleanup(srv.Close)

	f := file.NewHTTPFetcher(srv.Client(), time.Second)

	var buf bytes.Buffer
	res, err := f.Fetch(context.Background(), srv.URL+"/a.png", &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, int64(5), res.Written)
	assert.Equal(t, "hello", buf.String())

	buf.Reset()
	res, err = f.Fetch(context.Background(), srv.URL+"/missing", &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Zero(t, buf.Len())
}

func TestDownloaderRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("<rss/>"))
	}))
	t.Cleanup(srv.Close)

	d := file.NewDownloader(file.DownloaderConfig{Dir: t.TempDir(), MaxElapsed: 10 * time.Second}, srv.Client(), zaptest.NewLogger(t))
	path, err := d.Download(context.Background(), srv.URL, "content-x.xml")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<rss/>", string(body))

	again, err := d.Fetch(context.Background(), srv.URL, "content-x.xml")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, int32(3), calls.Load(), "existing file is reused")
}

func TestDownloaderGivesUpOnClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	d := file.NewDownloader(file.DownloaderConfig{Dir: t.TempDir()}, srv.Client(), zaptest.NewLogger(t))
	_, err := d.Download(context.Background(), srv.URL, "widgets-x.json")
	assert.ErrorIs(t, err, file.ErrDownload)
	assert.Equal(t, int32(1), calls.Load())

	_, err = d.Download(context.Background(), "", "widgets-x.json")
	assert.ErrorIs(t, err, file.ErrMissingURL)
}
