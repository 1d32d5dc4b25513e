package onboarding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	"go.uber.org/zap"
)

const (
	baseNameKey        = "merlin_import_file_base_name"
	baseNameLayout     = "2006-01-02__15-04-05"
	DefaultBaseNameTTL = time.Minute
)

// Downloader reuses an earlier download of filename or fetches rawURL.
type Downloader interface {
	Fetch(ctx context.Context, rawURL, filename string) (string, error)
}

type LocalFiles interface {
	Resolve(path string) string
	Exists(path string) bool
}

// ImportFiles are the local paths of one demo's files; empty means absent.
type ImportFiles struct {
	Content string      `json:"content,omitempty"`
	Widgets string      `json:"widgets,omitempty"`
	Options string      `json:"options,omitempty"`
	Sliders string      `json:"sliders,omitempty"`
	Redux   []ReduxItem `json:"redux,omitempty"`
}

type FileResolver struct {
	scratch    content.ScratchStore
	downloader Downloader
	local      LocalFiles
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewFileResolver(scratch content.ScratchStore, downloader Downloader, local LocalFiles, ttl time.Duration, logger *zap.Logger) *FileResolver {
	if ttl <= 0 {
		ttl = DefaultBaseNameTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileResolver{
		scratch:    scratch,
		downloader: downloader,
		local:      local,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

// BaseName returns the batch name shared by every file downloaded in this
// session and extends its lifetime.
func (r *FileResolver) BaseName(ctx context.Context) (string, error) {
	raw, ok, err := r.scratch.Get(ctx, baseNameKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBaseNameToken, err)
	}
	name := string(raw)
	if !ok || name == "" {
		name = r.now().Format(baseNameLayout)
	}
	if err := r.scratch.Set(ctx, baseNameKey, []byte(name), r.ttl); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBaseNameToken, err)
	}
	return name, nil
}

// Forget drops the batch name so the next import downloads fresh files.
func (r *FileResolver) Forget(ctx context.Context) error {
	if err := r.scratch.Delete(ctx, baseNameKey); err != nil {
		return fmt.Errorf("%w: %v", ErrBaseNameToken, err)
	}
	return nil
}

// Resolve finds or downloads every file of demo. A file that cannot be
// fetched is logged and left empty.
func (r *FileResolver) Resolve(ctx context.Context, demo Demo) (ImportFiles, error) {
	var files ImportFiles

	needsDownload := demo.ContentURL != "" || demo.WidgetsURL != "" || demo.CustomizerURL != "" ||
		demo.SliderURL != "" || len(demo.Redux) > 0
	base := ""
	if needsDownload {
		var err error
		if base, err = r.BaseName(ctx); err != nil {
			return files, err
		}
	}

	files.Content = r.pick(ctx, demo.ContentURL, "content-"+base+".xml", demo.LocalContent)
	files.Widgets = r.pick(ctx, demo.WidgetsURL, "widgets-"+base+".json", demo.LocalWidgets)
	files.Options = r.pick(ctx, demo.CustomizerURL, "options-"+base+".dat", demo.LocalCustomizer)
	files.Sliders = r.pick(ctx, demo.SliderURL, "slider-"+base+".zip", demo.LocalSlider)

	switch {
	case len(demo.Redux) > 0:
		for i, item := range demo.Redux {
			name := "redux-" + strconv.Itoa(i) + "-" + base + ".json"
			files.Redux = append(files.Redux, ReduxItem{
				OptionName: item.OptionName,
				FilePath:   r.download(ctx, item.FileURL, name),
			})
		}
	case len(demo.LocalRedux) > 0:
		for _, item := range demo.LocalRedux {
			if r.local.Exists(item.FilePath) {
				files.Redux = append(files.Redux, ReduxItem{OptionName: item.OptionName, FilePath: r.local.Resolve(item.FilePath)})
			}
		}
	}
	return files, nil
}

func (r *FileResolver) pick(ctx context.Context, rawURL, filename, local string) string {
	if rawURL != "" {
		return r.download(ctx, rawURL, filename)
	}
	if local != "" && r.local.Exists(local) {
		return r.local.Resolve(local)
	}
	return ""
}

func (r *FileResolver) download(ctx context.Context, rawURL, filename string) string {
	path, err := r.downloader.Fetch(ctx, rawURL, filename)
	if err != nil {
		r.logger.Error("import file could not be downloaded",
			zap.String("url", rawURL),
			zap.String("filename", filename),
			zap.Error(err),
		)
		return ""
	}
	return path
}
