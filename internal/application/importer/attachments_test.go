package importer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type memFiles struct {
	mu    sync.Mutex
	files map[string]*bytes.Buffer
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string]*bytes.Buffer{}}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (m *memFiles) Create(_ context.Context, rel string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := &bytes.Buffer{}
	m.files[rel] = buf
	return nopCloser{buf}, nil
}

func (m *memFiles) Exists(_ context.Context, rel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[rel]
	return ok
}

func (m *memFiles) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.files[rel]
	if !ok {
		return nil, content.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func (m *memFiles) Remove(_ context.Context, rel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, rel)
	return nil
}

func (m *memFiles) URL(rel string) string  { return "http://local/uploads/" + rel }
func (m *memFiles) Path(rel string) string { return "/uploads/" + rel }

type fakeFetcher struct {
	status int
	body   []byte
	length int64
	err    error
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, w io.Writer) (content.FetchResult, error) {
	f.urls = append(f.urls, url)
	n, _ := w.Write(f.body)
	return content.FetchResult{StatusCode: f.status, ContentLength: f.length, Written: int64(n)}, f.err
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestSideloaderStoresDatedFile(t *testing.T) {
	t.Parallel()
	files := newMemFiles()
	fetcher := &fakeFetcher{status: http.StatusOK, body: pngHeader, length: int64(len(pngHeader))}
	loader := importer.NewSideloader(files, fetcher, 0, zaptest.NewLogger(t))

	post := content.Post{Type: "attachment", Date: "2023-07-04 10:00:00", AttachmentURL: "/wp-content/uploads/logo"}
	att, err := loader.Sideload(context.Background(), post, "http://demo.test")
	require.NoError(t, err)

	assert.Equal(t, []string{"http://demo.test/wp-content/uploads/logo"}, fetcher.urls)
	assert.Equal(t, "2023/07/logo", att.RelPath)
	assert.Equal(t, "image/png", att.MimeType)
	assert.Equal(t, "http://local/uploads/2023/07/logo", att.URL)

	// A second download of the same name gets a suffix.
	again, err := loader.Sideload(context.Background(), post, "http://demo.test")
	require.NoError(t, err)
	assert.Equal(t, "2023/07/logo-1", again.RelPath)
}

func TestSideloaderRejectsBadDownloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fetcher *fakeFetcher
		max     int64
		want    error
	}{
		{
			name:    "not found",
			fetcher: &fakeFetcher{status: http.StatusNotFound, body: []byte("nope"), length: -1},
			want:    importer.ErrRemoteStatus,
		},
		{
			name:    "short body",
			fetcher: &fakeFetcher{status: http.StatusOK, body: pngHeader, length: 999},
			want:    importer.ErrSizeMismatch,
		},
		{
			name:    "empty",
			fetcher: &fakeFetcher{status: http.StatusOK, length: -1},
			want:    importer.ErrEmptyFile,
		},
		{
			name:    "too large",
			fetcher: &fakeFetcher{status: http.StatusOK, body: pngHeader, length: -1},
			max:     4,
			want:    importer.ErrFileTooLarge,
		},
		{
			name:    "unknown type",
			fetcher: &fakeFetcher{status: http.StatusOK, body: []byte{0x00, 0x01, 0x02, 0x03, 0xfe}, length: -1},
			want:    importer.ErrUnsupportedMedia,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			files := newMemFiles()
			loader := importer.NewSideloader(files, tc.fetcher, tc.max, zaptest.NewLogger(t))

			_, err := loader.Fetch(context.Background(), "http://demo.test/blob", "2024-01-01 00:00:00")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.False(t, files.Exists(context.Background(), "2024/01/blob"), "partial file left behind")
		})
	}
}

func TestSideloaderFallsBackToExtension(t *testing.T) {
	t.Parallel()
	files := newMemFiles()
	fetcher := &fakeFetcher{status: http.StatusOK, body: []byte{0x00, 0x01, 0x02, 0x03, 0xfe}, length: 5}
	loader := importer.NewSideloader(files, fetcher, 0, zaptest.NewLogger(t))

	att, err := loader.Fetch(context.Background(), "http://demo.test/photo.webp", "2024-01-01 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", att.MimeType)
}

type streamFetcher struct {
	read int64
}

func (f *streamFetcher) Read(p []byte) (int, error) {
	f.read += int64(len(p))
	return len(p), nil
}

// Fetch copies an endless body the way the HTTP fetcher copies a response.
func (f *streamFetcher) Fetch(_ context.Context, _ string, w io.Writer) (content.FetchResult, error) {
	n, err := io.Copy(w, io.LimitReader(f, 64<<20))
	return content.FetchResult{StatusCode: http.StatusOK, ContentLength: -1, Written: n}, err
}

func TestSideloaderStopsOversizedDownload(t *testing.T) {
	t.Parallel()
	files := newMemFiles()
	fetcher := &streamFetcher{}
	loader := importer.NewSideloader(files, fetcher, 1024, zaptest.NewLogger(t))

	_, err := loader.Fetch(context.Background(), "http://demo.test/huge.png", "2024-01-01 00:00:00")
	require.ErrorIs(t, err, importer.ErrFileTooLarge)
	assert.Less(t, fetcher.read, int64(1<<20), "body read past the limit")
	assert.False(t, files.Exists(context.Background(), "2024/01/huge.png"))
}

func TestSideloaderNeedsURL(t *testing.T) {
	t.Parallel()
	loader := importer.NewSideloader(newMemFiles(), &fakeFetcher{}, 0, zaptest.NewLogger(t))

	_, err := loader.Sideload(context.Background(), content.Post{Type: "attachment"}, "")
	assert.ErrorIs(t, err, importer.ErrNoAttachmentURL)
}
